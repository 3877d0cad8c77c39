// upload.go - Multipart upload adapter.
//
// Streams exactly one "file" field from the request body straight to the
// blob store. No temp file is written; the object is durable at the
// provider before the adapter returns its descriptor.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

// uploadResult carries the stored object plus the client-supplied name.
type uploadResult struct {
	Name   string
	Object StoredObject
}

// handleUpload reads the multipart body of r and streams the file part to
// blobs. A configured size cap surfaces as ErrPayloadTooLarge; provider
// failures surface as ErrStorageUnavailable (wrapped by the blob store).
func handleUpload(w http.ResponseWriter, r *http.Request, blobs BlobStore, limit int64) (uploadResult, error) {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		return uploadResult{}, errors.New("bad multipart body")
	}

	var filePart io.ReadCloser
	var filename, contentType string

	for {
		part, perr := mr.NextPart()
		if perr == io.EOF {
			break
		}
		if perr != nil {
			if maxBytesExceeded(perr) {
				return uploadResult{}, ErrPayloadTooLarge
			}
			return uploadResult{}, errors.New("bad multipart body")
		}

		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		filePart = part
		filename = part.FileName()
		contentType = part.Header.Get("Content-Type")
		break
	}

	if filePart == nil {
		return uploadResult{}, errors.New("missing file field")
	}
	defer func() { _ = filePart.Close() }()

	if filename == "" {
		filename = "upload"
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	obj, err := blobs.Put(ctx, filename, contentType, filePart)
	if err != nil {
		if maxBytesExceeded(err) {
			return uploadResult{}, ErrPayloadTooLarge
		}
		return uploadResult{}, err
	}

	return uploadResult{Name: filename, Object: obj}, nil
}

// maxBytesExceeded reports whether err came from http.MaxBytesReader
// tripping, possibly wrapped by the storage client.
func maxBytesExceeded(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
