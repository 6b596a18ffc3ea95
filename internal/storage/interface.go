package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the object store operations the caption archive needs.
type ObjectStorage interface {
	// Upload stores an object under key, replacing any previous object.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Exists checks if an object exists.
	Exists(ctx context.Context, key string) (bool, error)
}
