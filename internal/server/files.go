// files.go - File metadata records.
//
// A File row references content held by the external object store at URL;
// no local copy of the bytes exists. Records are created on successful
// upload and never updated or deleted. Uploads are gated by authentication
// but the row does not reference the uploader.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// File is the metadata record for one stored object.
type File struct {
	ID          uuid.UUID
	Name        string
	URL         string
	SizeBytes   int64
	ContentType string
	CreatedAt   time.Time
}

// FileStore persists file metadata.
type FileStore interface {
	// Create inserts a record and returns it with a generated identifier.
	// Size and content type are taken from the upload adapter as-is.
	Create(ctx context.Context, name, url string, sizeBytes int64, contentType string) (*File, error)
}

// PostgresFileStore implements FileStore on top of the files table.
type PostgresFileStore struct {
	db *sql.DB
}

func NewPostgresFileStore(db *sql.DB) *PostgresFileStore {
	return &PostgresFileStore{db: db}
}

func (s *PostgresFileStore) Create(ctx context.Context, name, url string, sizeBytes int64, contentType string) (*File, error) {
	f := &File{
		ID:          uuid.New(),
		Name:        name,
		URL:         url,
		SizeBytes:   sizeBytes,
		ContentType: contentType,
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO files (id, name, url, size_bytes, content_type)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, f.ID, f.Name, f.URL, f.SizeBytes, f.ContentType).Scan(&f.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert file: %w", err)
	}

	return f, nil
}
