package upload

import (
	"context"
	"io"
)

// Store is an object store that serves uploaded objects at durable public URLs.
type Store interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error)
	Delete(ctx context.Context, path string) error
}
