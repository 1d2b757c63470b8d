package storage

import (
	"context"
	"errors"
)

// ErrNotFound indicates the requested object does not exist. Callers use
// errors.Is to distinguish missing objects from transport failures.
var ErrNotFound = errors.New("object not found")

// Backend is the interface for session storage backends (local filesystem,
// S3/MinIO). Paths are forward-slash separated keys relative to the backend
// root; the same key namespace is used by Write, Read, List and Delete.
type Backend interface {
	// Write writes data to the specified path.
	Write(ctx context.Context, path string, data []byte) error

	// Read reads data from the specified path. Returns an error wrapping
	// ErrNotFound when the object does not exist.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns the keys of all objects under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the object at the specified path. Deleting a missing
	// object is not an error.
	Delete(ctx context.Context, path string) error

	// DeletePrefix removes every object under the given prefix.
	DeletePrefix(ctx context.Context, prefix string) error

	// Exists checks whether an object exists at the specified path.
	Exists(ctx context.Context, path string) (bool, error)

	// Close releases any resources held by the backend.
	Close() error

	// Type returns the storage type identifier ("local", "s3").
	Type() string
}
