package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"milestone_dashboard/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrObjectNotFound is returned by Get for a missing key.
var ErrObjectNotFound = errors.New("object not found")

// StorageProvider stores evidence files under slash-separated keys.
type StorageProvider interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*StoredObject, error)
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]StoredObject, error)
	URL(ctx context.Context, key string) (string, error)
	Name() string
}

// StoredObject describes one stored file.
type StoredObject struct {
	Key         string
	Size        int64
	ContentType string
	ModifiedAt  time.Time
}

// FileName is the last key segment.
func (o StoredObject) FileName() string {
	return path.Base(o.Key)
}

// NewStorage picks R2 when it is fully configured and reachable, and the
// local upload directory otherwise.
func NewStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) StorageProvider {
	if !cfg.R2Configured() {
		logger.Info("Evidence storage: local filesystem", zap.String("dir", cfg.UploadDir))
		return NewLocalStorage(cfg.UploadDir, cfg.UploadURLPrefix)
	}

	r2, err := NewR2Storage(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize R2 storage, falling back to local", zap.Error(err))
		return NewLocalStorage(cfg.UploadDir, cfg.UploadURLPrefix)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if _, err := r2.client.HeadBucket(pingCtx, &s3.HeadBucketInput{Bucket: aws.String(r2.bucket)}); err != nil {
		logger.Warn("R2 bucket check failed, falling back to local", zap.String("bucket", r2.bucket), zap.Error(err))
		return NewLocalStorage(cfg.UploadDir, cfg.UploadURLPrefix)
	}

	logger.Info("Evidence storage: Cloudflare R2", zap.String("bucket", r2.bucket))
	return r2
}

// R2Storage talks to Cloudflare R2 through its S3-compatible API.
type R2Storage struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
	publicURL string
}

func NewR2Storage(ctx context.Context, cfg *config.Config) (*R2Storage, error) {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	return &R2Storage{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.R2BucketName,
		publicURL: strings.TrimSuffix(cfg.R2PublicURL, "/"),
	}, nil
}

func (r *R2Storage) Name() string { return "r2" }

func (r *R2Storage) Put(ctx context.Context, key string, body io.Reader, contentType string, size int64) (*StoredObject, error) {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(r.bucket),
		Key:                aws.String(key),
		Body:               body,
		ContentType:        aws.String(contentType),
		ContentLength:      aws.Int64(size),
		ContentDisposition: aws.String(AttachmentDisposition(key)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s to R2: %w", key, err)
	}
	return &StoredObject{Key: key, Size: size, ContentType: contentType, ModifiedAt: time.Now()}, nil
}

func (r *R2Storage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get %s from R2: %w", key, err)
	}
	return out.Body, aws.ToString(out.ContentType), nil
}

func (r *R2Storage) Delete(ctx context.Context, key string) error {
	_, err := r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s from R2: %w", key, err)
	}
	return nil
}

func (r *R2Storage) List(ctx context.Context, prefix string) ([]StoredObject, error) {
	var objects []StoredObject
	paginator := s3.NewListObjectsV2Paginator(r.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(r.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s in R2: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			objects = append(objects, StoredObject{
				Key:         key,
				Size:        aws.ToInt64(obj.Size),
				ContentType: contentTypeOf(key),
				ModifiedAt:  aws.ToTime(obj.LastModified),
			})
		}
	}
	sortObjects(objects)
	return objects, nil
}

// URL returns the public URL when a public bucket domain is configured and
// a presigned GET URL otherwise.
func (r *R2Storage) URL(ctx context.Context, key string) (string, error) {
	if r.publicURL != "" {
		return r.publicURL + "/" + key, nil
	}
	req, err := r.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}
	return req.URL, nil
}

// LocalStorage keeps files under baseDir. Their URLs live under urlPrefix,
// which the evidence file route serves.
type LocalStorage struct {
	baseDir   string
	urlPrefix string
}

func NewLocalStorage(baseDir, urlPrefix string) *LocalStorage {
	return &LocalStorage{baseDir: baseDir, urlPrefix: strings.TrimSuffix(urlPrefix, "/")}
}

func (l *LocalStorage) Name() string { return "local" }

func (l *LocalStorage) path(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(l.baseDir, filepath.FromSlash(clean)), nil
}

func (l *LocalStorage) Put(_ context.Context, key string, body io.Reader, contentType string, _ int64) (*StoredObject, error) {
	full, err := l.path(key)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	dst, err := os.Create(full)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	written, err := io.Copy(dst, body)
	if err != nil {
		return nil, fmt.Errorf("failed to save file: %w", err)
	}
	return &StoredObject{Key: key, Size: written, ContentType: contentType, ModifiedAt: time.Now()}, nil
}

func (l *LocalStorage) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	full, err := l.path(key)
	if err != nil {
		return nil, "", err
	}
	f, err := os.Open(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, "", ErrObjectNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to open file: %w", err)
	}
	return f, contentTypeOf(key), nil
}

func (l *LocalStorage) Delete(_ context.Context, key string) error {
	full, err := l.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (l *LocalStorage) List(_ context.Context, prefix string) ([]StoredObject, error) {
	root, err := l.path(prefix)
	if err != nil {
		return nil, err
	}
	var objects []StoredObject
	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.baseDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		objects = append(objects, StoredObject{
			Key:         key,
			Size:        info.Size(),
			ContentType: contentTypeOf(key),
			ModifiedAt:  info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", prefix, err)
	}
	sortObjects(objects)
	return objects, nil
}

func (l *LocalStorage) URL(_ context.Context, key string) (string, error) {
	return l.urlPrefix + path.Clean("/"+key), nil
}

// contentTypeOf is the type a stored key is served as. Only extensions the
// upload allow-list produces map to a real type.
func contentTypeOf(key string) string {
	if ct, ok := storedContentTypes[strings.ToLower(path.Ext(key))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// AttachmentDisposition makes browsers download the file instead of
// rendering it.
func AttachmentDisposition(key string) string {
	if d := mime.FormatMediaType("attachment", map[string]string{"filename": path.Base(key)}); d != "" {
		return d
	}
	return "attachment"
}

// sortObjects orders newest first, then by key.
func sortObjects(objects []StoredObject) {
	sort.Slice(objects, func(i, j int) bool {
		if !objects[i].ModifiedAt.Equal(objects[j].ModifiedAt) {
			return objects[i].ModifiedAt.After(objects[j].ModifiedAt)
		}
		return objects[i].Key < objects[j].Key
	})
}

// GenerateStorageKey builds a collision-free key under prefix. Each upload
// gets its own uuid segment so the last segment can keep the url-safe stem
// of the original name. The extension is always ext, never the uploaded one.
func GenerateStorageKey(prefix, originalFilename, ext string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(prefix, "/"), uuid.NewString(), storageSafeName(originalFilename, ext))
}

func storageSafeName(original, ext string) string {
	base := SanitizeFilename(original)
	stem := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '-'
	}, strings.TrimSuffix(base, path.Ext(base)))
	stem = strings.Trim(stem, "-.")
	if stem == "" {
		stem = "file"
	}
	return stem + ext
}
