package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const presignExpiry = 24 * time.Hour

// Storage wraps an S3-compatible object store. All media produced by the
// pipeline (per-scene audio, downloaded stock assets, draft compositions,
// exports, thumbnails) moves through here; stages exchange object keys only.
type Storage struct {
	client *minio.Client
	bucket string
}

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func New(opts Options) (*Storage, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &Storage{client: client, bucket: opts.Bucket}, nil
}

// EnsureBucket creates the bucket if it does not exist yet. Called once at
// startup so stage workers can assume it is there.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
	}
	return nil
}

// Upload writes data under objectName. Re-uploading the same key overwrites,
// which is what makes retried stages idempotent on storage.
func (s *Storage) Upload(ctx context.Context, objectName string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectName,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentTypeFor(objectName)},
	)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// UploadFile streams a local file to objectName.
func (s *Storage) UploadFile(ctx context.Context, objectName, localPath string) error {
	_, err := s.client.FPutObject(ctx, s.bucket, objectName, localPath,
		minio.PutObjectOptions{ContentType: contentTypeFor(objectName)},
	)
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", objectName, err)
	}
	return nil
}

// Download reads a whole object into memory.
func (s *Storage) Download(ctx context.Context, objectName string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", objectName, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", objectName, err)
	}
	return data, nil
}

// DownloadToFile fetches an object to a local path, creating parent
// directories as needed. Used by composition to stage inputs for the encoder.
func (s *Storage) DownloadToFile(ctx context.Context, objectName, localPath string) error {
	if err := os.MkdirAll(filepath.Dir(localPath), 0755); err != nil {
		return fmt.Errorf("failed to create dir for %s: %w", localPath, err)
	}
	if err := s.client.FGetObject(ctx, s.bucket, objectName, localPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("failed to download %s: %w", objectName, err)
	}
	return nil
}

// PresignedURL returns a time-limited GET URL for delivery to the caller.
func (s *Storage) PresignedURL(ctx context.Context, objectName string) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, s.bucket, objectName, presignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", objectName, err)
	}
	return u.String(), nil
}

// ObjectPath builds the canonical key for a project-scoped artifact.
func (s *Storage) ObjectPath(projectID uuid.UUID, filename string) string {
	return path.Join("projects", projectID.String(), filename)
}

func contentTypeFor(objectName string) string {
	switch path.Ext(objectName) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
