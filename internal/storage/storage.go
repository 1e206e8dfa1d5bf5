// Package storage provides scratch and persistent file storage for renders.
// It defines the Storage interface (port) and implementations for local disk
// and S3 delivery.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for per-run scratch space and final output delivery.
type Storage interface {
	// CreateScratch creates a fresh, empty directory for one render run.
	// The name parameter is used as a hint for the directory name.
	CreateScratch(ctx context.Context, name string) (dir string, err error)

	// SaveFile writes data to dir/name, replacing any existing file.
	SaveFile(ctx context.Context, dir, name string, data io.Reader) (path string, err error)

	// Open opens a stored file for reading.
	// The caller is responsible for closing the returned ReadCloser.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes the given files. Missing files are ignored and
	// removal continues past failures.
	Remove(ctx context.Context, paths ...string) error

	// RemoveAll deletes a scratch directory and everything in it.
	RemoveAll(ctx context.Context, dir string) error

	// Persist moves src into the output directory under name and returns
	// the new path. src no longer exists afterwards.
	Persist(ctx context.Context, src, name string) (path string, err error)

	// UploadToS3 uploads data to S3 and returns the public URL.
	// Returns ErrS3NotConfigured if S3 is not configured.
	UploadToS3(ctx context.Context, key string, data io.Reader) (url string, err error)
}
