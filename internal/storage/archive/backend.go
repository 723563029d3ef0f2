// Package archive abstracts the durable document store behind a small
// byte-level interface so user data can live on local disk or any
// S3-compatible object store.
package archive

import "context"

// Backend is a flat key/value document store.
type Backend interface {
	// Write stores data at the given path, replacing any previous
	// content.
	Write(ctx context.Context, path string, data []byte) error

	// Read retrieves the data at the given path.
	Read(ctx context.Context, path string) ([]byte, error)

	// List returns all paths under the prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes the data at the given path.
	Delete(ctx context.Context, path string) error

	// Exists reports whether the path holds data.
	Exists(ctx context.Context, path string) (bool, error)
}
