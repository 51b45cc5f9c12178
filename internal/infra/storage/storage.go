// Package storage writes import artifacts to the output directory, either a
// local path or an s3://bucket/prefix location.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Writer persists one artifact and returns where it was written.
type Writer interface {
	Write(ctx context.Context, dir, name string, data []byte) (string, error)
}

// Router dispatches writes by output directory: s3:// locations go to S3,
// everything else to the local filesystem. The S3 client is created on the
// first S3 write.
type Router struct {
	local LocalWriter
	s3cfg S3Config

	mu sync.Mutex
	s3 *S3Writer
}

// NewRouter creates a Router. s3cfg is only used for s3:// directories.
func NewRouter(s3cfg S3Config) *Router {
	return &Router{s3cfg: s3cfg}
}

// Write implements Writer.
func (r *Router) Write(ctx context.Context, dir, name string, data []byte) (string, error) {
	if !IsS3(dir) {
		return r.local.Write(ctx, dir, name, data)
	}

	r.mu.Lock()
	if r.s3 == nil {
		w, err := NewS3Writer(ctx, r.s3cfg)
		if err != nil {
			r.mu.Unlock()
			return "", err
		}
		r.s3 = w
	}
	w := r.s3
	r.mu.Unlock()

	return w.Write(ctx, dir, name, data)
}

// IsS3 reports whether dir is an s3:// location.
func IsS3(dir string) bool {
	return strings.HasPrefix(dir, "s3://")
}

// LocalWriter writes artifacts to the local filesystem.
type LocalWriter struct{}

// Write creates dir if needed and writes name inside it.
func (LocalWriter) Write(_ context.Context, dir, name string, data []byte) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// validateName rejects artifact names that would escape the output directory.
func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." {
		return fmt.Errorf("invalid artifact name: %q", name)
	}
	return nil
}
