// Package storage persists uploaded catalog files in S3-compatible object
// storage so any worker process can stream them back for processing.
package storage

import (
	"context"
	"io"
)

// ObjectStore reads and writes catalog files by key.
type ObjectStore interface {
	// Upload stores the object and returns nil on success. Size may be -1
	// when unknown.
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	// Download streams the object back. The caller closes the reader.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
