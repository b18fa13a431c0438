package filestore

import (
	"context"
	"io"
)

// Store is a byte-stream file store. Keys are opaque relative paths; the
// disk backend maps them under a root directory, the S3 backend uses them
// as object keys.
type Store interface {
	Put(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
