package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Static errors for storage operations.
var (
	// ErrS3NotConfigured is returned when S3 operations are attempted
	// without proper configuration.
	ErrS3NotConfigured = errors.New("S3 storage is not configured")
	// ErrInvalidName is returned when a file name would escape its directory.
	ErrInvalidName = errors.New("invalid file name")
)

// LocalStorage implements the Storage interface using local disk.
// Scratch directories live under tempDir and persisted outputs under outputDir.
// S3 uploads are not supported unless wrapped with S3Storage.
type LocalStorage struct {
	tempDir   string
	outputDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// If tempDir is empty, a "slidecast" directory under os.TempDir() is used.
// If outputDir is empty, it defaults to tempDir/output.
// Both directories are created if they don't exist.
func NewLocalStorage(tempDir, outputDir string) (*LocalStorage, error) {
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "slidecast")
	}
	if outputDir == "" {
		outputDir = filepath.Join(tempDir, "output")
	}

	if err := os.MkdirAll(tempDir, 0750); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}
	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	return &LocalStorage{tempDir: tempDir, outputDir: outputDir}, nil
}

// TempDir returns the scratch root directory.
func (s *LocalStorage) TempDir() string {
	return s.tempDir
}

// OutputDir returns the directory persisted outputs are moved to.
func (s *LocalStorage) OutputDir() string {
	return s.outputDir
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
		return nil
	}
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// CreateScratch creates a uniquely named directory under the temp root.
func (s *LocalStorage) CreateScratch(ctx context.Context, name string) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}

	dir, err := os.MkdirTemp(s.tempDir, name+"_*")
	if err != nil {
		return "", fmt.Errorf("create scratch directory: %w", err)
	}
	return dir, nil
}

// SaveFile writes data to dir/name. A partially written file is removed.
func (s *LocalStorage) SaveFile(ctx context.Context, dir, name string, data io.Reader) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}
	if err := checkName(name); err != nil {
		return "", err
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path) // #nosec G304 - name is validated above
	if err != nil {
		return "", fmt.Errorf("create file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", fmt.Errorf("write file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("close file: %w", err)
	}

	return path, nil
}

// Open opens a stored file for reading.
// The caller is responsible for closing the returned ReadCloser.
func (s *LocalStorage) Open(ctx context.Context, path string) (io.ReadCloser, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}

	f, err := os.Open(path) // #nosec G304 - path is provided by trusted caller
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	return f, nil
}

// Remove deletes the given files, continuing past failures and
// returning the first error encountered.
func (s *LocalStorage) Remove(ctx context.Context, paths ...string) error {
	var firstErr error
	for _, p := range paths {
		if err := checkCtx(ctx); err != nil {
			return err
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// RemoveAll deletes dir and its contents. It refuses paths outside the temp root.
// Cancellation is ignored so scratch is still released after an aborted run.
func (s *LocalStorage) RemoveAll(_ context.Context, dir string) error {
	rel, err := filepath.Rel(s.tempDir, dir)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return fmt.Errorf("%w: %s is not a scratch directory", ErrInvalidName, dir)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove scratch directory: %w", err)
	}
	return nil
}

// Persist moves src into the output directory. It falls back to copying
// when a rename is not possible, e.g. across filesystems.
func (s *LocalStorage) Persist(ctx context.Context, src, name string) (string, error) {
	if err := checkCtx(ctx); err != nil {
		return "", err
	}
	if err := checkName(name); err != nil {
		return "", err
	}

	dst := filepath.Join(s.outputDir, name)
	if err := os.Rename(src, dst); err == nil {
		return dst, nil
	}

	if err := copyFile(src, dst); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("persist output: %w", err)
	}
	_ = os.Remove(src)
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - src is a scratch file created by the pipeline
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) // #nosec G304 - dst is inside the output directory
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// UploadToS3 is not supported by LocalStorage and returns ErrS3NotConfigured.
func (s *LocalStorage) UploadToS3(_ context.Context, _ string, _ io.Reader) (string, error) {
	return "", ErrS3NotConfigured
}

// Verify interface implementation at compile time.
var _ Storage = (*LocalStorage)(nil)
