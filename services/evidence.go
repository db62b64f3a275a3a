package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"milestone_dashboard/logger"
)

// EvidenceKind separates documents from site photos.
type EvidenceKind string

const (
	EvidenceDocuments EvidenceKind = "documents"
	EvidencePhotos    EvidenceKind = "photos"
)

// evidenceFormat is one accepted file type. A file is accepted only when
// its extension is listed for the kind and its content sniffs as sniffed.
// The stored copy always gets ext and is served as contentType.
type evidenceFormat struct {
	sniffed     string
	ext         string
	contentType string
}

var (
	pdfFormat  = evidenceFormat{"application/pdf", ".pdf", "application/pdf"}
	pngFormat  = evidenceFormat{"image/png", ".png", "image/png"}
	jpegFormat = evidenceFormat{"image/jpeg", ".jpg", "image/jpeg"}
	webpFormat = evidenceFormat{"image/webp", ".webp", "image/webp"}
	gifFormat  = evidenceFormat{"image/gif", ".gif", "image/gif"}
	docxFormat = evidenceFormat{"application/zip", ".docx", "application/vnd.openxmlformats-officedocument.wordprocessingml.document"}
	xlsxFormat = evidenceFormat{"application/zip", ".xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"}
	zipFormat  = evidenceFormat{"application/zip", ".zip", "application/zip"}
)

// evidenceFormats maps a lowercase upload extension to its format.
var evidenceFormats = map[EvidenceKind]map[string]evidenceFormat{
	EvidenceDocuments: {
		".pdf":  pdfFormat,
		".png":  pngFormat,
		".jpg":  jpegFormat,
		".jpeg": jpegFormat,
		".docx": docxFormat,
		".xlsx": xlsxFormat,
		".zip":  zipFormat,
	},
	EvidencePhotos: {
		".png":  pngFormat,
		".jpg":  jpegFormat,
		".jpeg": jpegFormat,
		".webp": webpFormat,
		".gif":  gifFormat,
	},
}

// storedContentTypes maps the extension of a stored key to the type it is
// served with. Anything else is served as application/octet-stream.
var storedContentTypes = func() map[string]string {
	types := make(map[string]string)
	for _, formats := range evidenceFormats {
		for _, f := range formats {
			types[f.ext] = f.contentType
		}
	}
	return types
}()

// EvidenceAccept is the file input accept list for kind.
func EvidenceAccept(kind EvidenceKind) string {
	exts := make([]string, 0, len(evidenceFormats[kind]))
	for ext := range evidenceFormats[kind] {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return strings.Join(exts, ",")
}

// ErrInvalidEvidence wraps every rejected upload.
var ErrInvalidEvidence = errors.New("invalid evidence file")

// MaxEvidenceFiles bounds one upload request.
const MaxEvidenceFiles = 10

// EvidenceFile is an uploaded file ready to render.
type EvidenceFile struct {
	Kind EvidenceKind
	Name string
	Size int64
	URL  string
	StoredObject
}

// EvidenceService attaches proof-of-completion files to milestones.
type EvidenceService struct {
	storage StorageProvider
	maxSize int64
	logger  *zap.Logger
}

func NewEvidenceService(storage StorageProvider, maxSize int64, l *zap.Logger) *EvidenceService {
	return &EvidenceService{storage: storage, maxSize: maxSize, logger: logger.OrNop(l)}
}

// EvidencePrefix is the storage prefix of one milestone's evidence.
func EvidencePrefix(projectID, milestoneID int64) string {
	return fmt.Sprintf("projects/%d/milestones/%d", projectID, milestoneID)
}

// Upload validates and stores every file. Nothing is stored when any file
// is rejected, and files already written are removed again when a later
// one fails to store.
func (s *EvidenceService) Upload(ctx context.Context, projectID, milestoneID int64, kind EvidenceKind, files []*multipart.FileHeader) ([]EvidenceFile, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no files selected", ErrInvalidEvidence)
	}
	if len(files) > MaxEvidenceFiles {
		return nil, fmt.Errorf("%w: at most %d files per upload", ErrInvalidEvidence, MaxEvidenceFiles)
	}

	type pending struct {
		header  *multipart.FileHeader
		content []byte
		format  evidenceFormat
	}
	var ready []pending
	for _, fh := range files {
		content, format, err := s.read(fh, kind)
		if err != nil {
			return nil, err
		}
		ready = append(ready, pending{header: fh, content: content, format: format})
	}

	prefix := path.Join(EvidencePrefix(projectID, milestoneID), string(kind))
	stored := make([]EvidenceFile, 0, len(ready))
	var written []string
	for _, p := range ready {
		key := GenerateStorageKey(prefix, p.header.Filename, p.format.ext)
		obj, err := s.storage.Put(ctx, key, bytes.NewReader(p.content), p.format.contentType, int64(len(p.content)))
		if err != nil {
			s.logger.Error("Failed to store evidence",
				zap.Int64("project_id", projectID),
				zap.Int64("milestone_id", milestoneID),
				zap.String("key", key),
				zap.Error(err),
			)
			s.rollback(ctx, written)
			return nil, err
		}
		written = append(written, obj.Key)
		file, err := s.describe(ctx, *obj)
		if err != nil {
			s.rollback(ctx, written)
			return nil, err
		}
		stored = append(stored, file)
	}

	s.logger.Info("Evidence uploaded",
		zap.Int64("project_id", projectID),
		zap.Int64("milestone_id", milestoneID),
		zap.String("kind", string(kind)),
		zap.Int("files", len(stored)),
		zap.String("storage", s.storage.Name()),
	)
	return stored, nil
}

// rollback removes the files of a failed batch. It runs even when ctx was
// cancelled mid-upload.
func (s *EvidenceService) rollback(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Error("Failed to remove evidence of failed upload", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *EvidenceService) read(fh *multipart.FileHeader, kind EvidenceKind) ([]byte, evidenceFormat, error) {
	ext := strings.ToLower(path.Ext(SanitizeFilename(fh.Filename)))
	format, ok := evidenceFormats[kind][ext]
	if !ok {
		return nil, evidenceFormat{}, fmt.Errorf("%w: %s is not an accepted file type (%s)", ErrInvalidEvidence, fh.Filename, EvidenceAccept(kind))
	}
	if fh.Size > s.maxSize {
		return nil, evidenceFormat{}, fmt.Errorf("%w: %s is larger than %d bytes", ErrInvalidEvidence, fh.Filename, s.maxSize)
	}
	src, err := fh.Open()
	if err != nil {
		return nil, evidenceFormat{}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
	}
	defer src.Close()

	content, err := io.ReadAll(io.LimitReader(src, s.maxSize+1))
	if err != nil {
		return nil, evidenceFormat{}, fmt.Errorf("failed to read %s: %w", fh.Filename, err)
	}
	if int64(len(content)) > s.maxSize {
		return nil, evidenceFormat{}, fmt.Errorf("%w: %s is larger than %d bytes", ErrInvalidEvidence, fh.Filename, s.maxSize)
	}
	if len(content) == 0 {
		return nil, evidenceFormat{}, fmt.Errorf("%w: %s is empty", ErrInvalidEvidence, fh.Filename)
	}

	sniffed, _, _ := strings.Cut(http.DetectContentType(content), ";")
	if sniffed != format.sniffed {
		return nil, evidenceFormat{}, fmt.Errorf("%w: %s does not look like a %s file (found %s)", ErrInvalidEvidence, fh.Filename, ext, sniffed)
	}
	return content, format, nil
}

// List returns a milestone's evidence of both kinds, newest first.
func (s *EvidenceService) List(ctx context.Context, projectID, milestoneID int64) ([]EvidenceFile, error) {
	objects, err := s.storage.List(ctx, EvidencePrefix(projectID, milestoneID)+"/")
	if err != nil {
		return nil, err
	}
	files := make([]EvidenceFile, 0, len(objects))
	for _, obj := range objects {
		file, err := s.describe(ctx, obj)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// Open returns a stored evidence file with the type it is served as. Keys
// outside the evidence tree read as ErrObjectNotFound.
func (s *EvidenceService) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	if key != path.Clean(key) || !strings.HasPrefix(key, "projects/") {
		return nil, "", ErrObjectNotFound
	}
	body, _, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, "", err
	}
	return body, contentTypeOf(key), nil
}

func (s *EvidenceService) describe(ctx context.Context, obj StoredObject) (EvidenceFile, error) {
	url, err := s.storage.URL(ctx, obj.Key)
	if err != nil {
		return EvidenceFile{}, err
	}
	kind := EvidenceDocuments
	if strings.Contains(obj.Key, "/"+string(EvidencePhotos)+"/") {
		kind = EvidencePhotos
	}
	return EvidenceFile{Kind: kind, Name: obj.FileName(), Size: obj.Size, URL: url, StoredObject: obj}, nil
}
