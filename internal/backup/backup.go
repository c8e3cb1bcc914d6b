// Package backup copies bulk export archives to S3-compatible object storage.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"beliefpad/api/internal/logging"
	"beliefpad/api/internal/store"
)

const objectPrefix = "archives/"

var ErrNotConfigured = errors.New("backup storage not configured")

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Object describes one stored archive.
type Object struct {
	Bucket       string    `json:"bucket"`
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	ETag         string    `json:"etag,omitempty"`
	LastModified time.Time `json:"lastModified"`
}

// objectStore is the subset of *minio.Client used here.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucket, name string, reader io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

type Service struct {
	client objectStore
	bucket string
	logger logging.Logger
	now    func() time.Time
}

// New connects to the configured endpoint. No network call is made until
// the first upload.
func New(cfg Config, logger logging.Logger) (*Service, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" || cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return newService(client, cfg.Bucket, logger), nil
}

func newService(client objectStore, bucket string, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Service{client: client, bucket: bucket, logger: logger, now: time.Now}
}

// ObjectName is the storage name of an archive taken at t.
func ObjectName(t time.Time) string {
	name := strings.TrimSuffix(store.ArchiveFilename, ".zip")
	return objectPrefix + name + "-" + t.UTC().Format("20060102T150405.000Z") + ".zip"
}

// Upload stores archive under a timestamped name, creating the bucket if needed.
func (s *Service) Upload(ctx context.Context, archive store.Archive) (Object, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return Object{}, err
	}

	name := ObjectName(s.now())
	info, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(archive.Data), int64(len(archive.Data)), minio.PutObjectOptions{
		ContentType: "application/zip",
		UserMetadata: map[string]string{
			"form-count": fmt.Sprint(archive.Count),
		},
	})
	if err != nil {
		return Object{}, fmt.Errorf("upload archive: %w", err)
	}

	s.logger.Info("backup", "archive uploaded", map[string]any{
		"bucket": s.bucket,
		"object": name,
		"forms":  archive.Count,
		"bytes":  info.Size,
	})
	return Object{Bucket: s.bucket, Name: name, Size: info.Size, ETag: info.ETag, LastModified: info.LastModified}, nil
}

// List returns stored archives, newest first.
func (s *Service) List(ctx context.Context) ([]Object, error) {
	var objects []Object
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: objectPrefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list archives: %w", obj.Err)
		}
		objects = append(objects, Object{
			Bucket:       s.bucket,
			Name:         obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Name > objects[j].Name })
	return objects, nil
}

func (s *Service) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	s.logger.Info("backup", "bucket created", map[string]any{"bucket": s.bucket})
	return nil
}
