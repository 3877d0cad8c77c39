// minio.go - MinIO-backed BlobStore.
package server

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}

	// Accept either "minio:9000" or "http://minio:9000" / "https://minio:9000".
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		secure = (u.Scheme == "https")
		return u.Host, secure, nil
	}

	// No scheme provided, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}

// MinioBlobStore streams objects to one bucket of an S3-compatible store.
type MinioBlobStore struct {
	client *minio.Client
	bucket string
}

// NewMinioBlobStore builds the client and verifies the bucket exists.
func NewMinioBlobStore(ctx context.Context, cfg Config) (*MinioBlobStore, error) {
	if cfg.S3Endpoint == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "" || cfg.S3Bucket == "" {
		return nil, fmt.Errorf("object store configuration incomplete")
	}

	endpoint, secure, err := normaliseEndpoint(cfg.S3Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}

	// Sanity check: bucket must exist.
	exists, err := client.BucketExists(ctx, cfg.S3Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("bucket does not exist: %s", cfg.S3Bucket)
	}

	return &MinioBlobStore{client: client, bucket: cfg.S3Bucket}, nil
}

// Put streams r to the bucket under a non-guessable key. The object is
// durably stored before Put returns; provider failures wrap
// ErrStorageUnavailable.
func (s *MinioBlobStore) Put(ctx context.Context, filename, contentType string, r io.Reader) (StoredObject, error) {
	key := "uploads/" + uuid.New().String() + "-" + path.Base(filename)

	info, err := s.client.PutObject(ctx, s.bucket, key, r, -1,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return StoredObject{}, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	return StoredObject{
		URL:         s.client.EndpointURL().String() + "/" + s.bucket + "/" + key,
		Size:        info.Size,
		ContentType: contentType,
	}, nil
}
