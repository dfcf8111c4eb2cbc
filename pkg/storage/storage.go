package storage

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidPath is returned for object paths that are empty or escape the store root.
var ErrInvalidPath = errors.New("storage: invalid object path")

// BlobStore is the write side shared by the local and bucket backends.
type BlobStore interface {
	Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error)
	PublicURL(ref string) (string, error)
}
