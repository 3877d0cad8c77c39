package server

import (
	"context"
	"io"
)

// StoredObject describes one object held by the external store after a
// successful Put. URL is the durable location recorded in file metadata;
// Size is the provider-reported byte count.
type StoredObject struct {
	URL         string
	Size        int64
	ContentType string
}

// BlobStore is the outbound storage dependency: given raw bytes and a
// filename it returns a durable descriptor. No delete or list operations
// are used.
type BlobStore interface {
	Put(ctx context.Context, filename, contentType string, r io.Reader) (StoredObject, error)
}
