package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type upload struct {
	name    string
	content []byte
}

// multipartFiles builds real FileHeaders by parsing a multipart request.
func multipartFiles(t *testing.T, field string, files ...upload) []*multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for _, f := range files {
		part, err := w.CreateFormFile(field, f.name)
		require.NoError(t, err)
		_, err = part.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(1<<20))
	return req.MultipartForm.File[field]
}

// failingStorage fails every Put after the first okPuts.
type failingStorage struct {
	*LocalStorage
	okPuts int
	puts   int
}

func (f *failingStorage) Put(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*StoredObject, error) {
	f.puts++
	if f.puts > f.okPuts {
		return nil, errors.New("bucket unavailable")
	}
	return f.LocalStorage.Put(ctx, key, body, contentType, size)
}

func TestEvidenceAccept(t *testing.T) {
	assert.Equal(t, ".gif,.jpeg,.jpg,.png,.webp", EvidenceAccept(EvidencePhotos))
	assert.Equal(t, ".docx,.jpeg,.jpg,.pdf,.png,.xlsx,.zip", EvidenceAccept(EvidenceDocuments))
	assert.Empty(t, EvidenceAccept("videos"))
}

func TestEvidenceUploadAndList(t *testing.T) {
	ctx := context.Background()
	svc := NewEvidenceService(NewLocalStorage(t.TempDir(), "/evidence/files"), 1<<20, nil)

	docs := multipartFiles(t, "files", upload{"report.pdf", []byte("%PDF-1.7\nreport")})
	stored, err := svc.Upload(ctx, 3, 7, EvidenceDocuments, docs)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "report.pdf", stored[0].Name)
	assert.Equal(t, EvidenceDocuments, stored[0].Kind)
	assert.True(t, strings.HasPrefix(stored[0].Key, "projects/3/milestones/7/documents/"))
	assert.Equal(t, "application/pdf", stored[0].ContentType)
	assert.True(t, strings.HasPrefix(stored[0].URL, "/evidence/files/projects/3/milestones/7/documents/"), stored[0].URL)

	photos := multipartFiles(t, "files", upload{"site.png", pngHeader}, upload{"deck.png", pngHeader})
	_, err = svc.Upload(ctx, 3, 7, EvidencePhotos, photos)
	require.NoError(t, err)

	files, err := svc.List(ctx, 3, 7)
	require.NoError(t, err)
	assert.Len(t, files, 3)

	var photoCount int
	for _, f := range files {
		if f.Kind == EvidencePhotos {
			photoCount++
		}
		assert.NotEmpty(t, f.URL)
	}
	assert.Equal(t, 2, photoCount)

	other, err := svc.List(ctx, 3, 8)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestEvidenceUploadRejects(t *testing.T) {
	ctx := context.Background()
	svc := NewEvidenceService(NewLocalStorage(t.TempDir(), "/evidence/files"), 64, nil)

	tests := []struct {
		name  string
		kind  EvidenceKind
		files []upload
		want  string
	}{
		{"PDF is not a photo", EvidencePhotos, []upload{{"scan.pdf", []byte("%PDF-1.4")}}, "scan.pdf is not an accepted file type"},
		{"HTML is never evidence", EvidenceDocuments, []upload{{"x.html", []byte("<html><body>hi</body></html>")}}, "x.html is not an accepted file type"},
		{"Script is never evidence", EvidenceDocuments, []upload{{"app.js", []byte("%PDF-1.4")}}, "app.js is not an accepted file type"},
		{"No extension", EvidenceDocuments, []upload{{"report", []byte("%PDF-1.4")}}, "report is not an accepted file type"},
		{"HTML named as PDF", EvidenceDocuments, []upload{{"evil.pdf", []byte("<html><script>alert(1)</script></html>")}}, "evil.pdf does not look like a .pdf file (found text/html)"},
		{"GIF named as PNG", EvidencePhotos, []upload{{"site.png", []byte("GIF89a<html><script>alert(1)</script>")}}, "site.png does not look like a .png file (found image/gif)"},
		{"Text named as zip", EvidenceDocuments, []upload{{"plans.zip", []byte("just some text")}}, "plans.zip does not look like a .zip file"},
		{"Too large", EvidenceDocuments, []upload{{"big.pdf", append([]byte("%PDF-"), bytes.Repeat([]byte("a"), 100)...)}}, "larger than 64 bytes"},
		{"Empty", EvidenceDocuments, []upload{{"empty.pdf", nil}}, "is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored, err := svc.Upload(ctx, 1, 1, tt.kind, multipartFiles(t, "files", tt.files...))
			assert.ErrorIs(t, err, ErrInvalidEvidence)
			assert.ErrorContains(t, err, tt.want)
			assert.Empty(t, stored)
		})
	}

	t.Run("No files", func(t *testing.T) {
		_, err := svc.Upload(ctx, 1, 1, EvidenceDocuments, nil)
		assert.ErrorIs(t, err, ErrInvalidEvidence)
	})

	t.Run("One bad file stores nothing", func(t *testing.T) {
		files := multipartFiles(t, "files", upload{"ok.png", pngHeader}, upload{"bad.pdf", []byte("%PDF-1.4")})
		_, err := svc.Upload(ctx, 1, 2, EvidencePhotos, files)
		require.Error(t, err)

		listed, err := svc.List(ctx, 1, 2)
		require.NoError(t, err)
		assert.Empty(t, listed)
	})
}

func TestEvidenceStoredUnderCanonicalExtension(t *testing.T) {
	ctx := context.Background()
	svc := NewEvidenceService(NewLocalStorage(t.TempDir(), "/evidence/files"), 1<<20, nil)

	jpeg := []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
	stored, err := svc.Upload(ctx, 3, 7, EvidencePhotos, multipartFiles(t, "files", upload{"Site Photo.JPEG", jpeg}))
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Site-Photo.jpg", stored[0].Name)
	assert.Equal(t, "image/jpeg", stored[0].ContentType)
}

func TestEvidenceUploadRollsBackOnStorageFailure(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{LocalStorage: NewLocalStorage(t.TempDir(), "/evidence/files"), okPuts: 1}
	svc := NewEvidenceService(storage, 1<<20, nil)

	files := multipartFiles(t, "files", upload{"a.png", pngHeader}, upload{"b.png", pngHeader}, upload{"c.png", pngHeader})
	stored, err := svc.Upload(ctx, 4, 9, EvidencePhotos, files)
	require.ErrorContains(t, err, "bucket unavailable")
	assert.Nil(t, stored)
	assert.Equal(t, 2, storage.puts)

	listed, err := storage.List(ctx, EvidencePrefix(4, 9)+"/")
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestEvidenceOpen(t *testing.T) {
	ctx := context.Background()
	storage := NewLocalStorage(t.TempDir(), "/evidence/files")
	svc := NewEvidenceService(storage, 1<<20, nil)

	stored, err := svc.Upload(ctx, 3, 7, EvidenceDocuments, multipartFiles(t, "files", upload{"report.pdf", []byte("%PDF-1.7\nreport")}))
	require.NoError(t, err)

	body, contentType, err := svc.Open(ctx, stored[0].Key)
	require.NoError(t, err)
	defer body.Close()
	got, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7\nreport", string(got))
	assert.Equal(t, "application/pdf", contentType)

	_, err = storage.Put(ctx, "config/secrets.pdf", strings.NewReader("%PDF-"), "application/pdf", 5)
	require.NoError(t, err)
	for _, key := range []string{
		"config/secrets.pdf",
		"projects/../config/secrets.pdf",
		"/projects/3/milestones/7/documents/x.pdf",
		"projects/3/milestones/7/documents/missing.pdf",
	} {
		_, _, err := svc.Open(ctx, key)
		assert.ErrorIs(t, err, ErrObjectNotFound, key)
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Photos match site", SanitizeText("  <b>Photos</b> match <script>alert(1)</script>site "))
	assert.Equal(t, "Tom & Jerry", SanitizeText("Tom & Jerry"))
	assert.Equal(t, "report.pdf", SanitizeFilename(`C:\Users\me\report.pdf`))
	assert.Equal(t, "a.png", SanitizeFilename("../../a.png"))
	assert.Equal(t, "file", SanitizeFilename(""))
}
