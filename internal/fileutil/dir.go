package fileutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/giantswarm/serverproc/internal/sentinel"
)

// ErrEmptyPath is returned when a file or directory path is empty.
const ErrEmptyPath = sentinel.Error("path must not be empty")

// EnsureDir creates a directory and all parent directories if they don't exist.
// Uses mode 0755. Returns nil if directory already exists.
func EnsureDir(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

// CreateFile creates or truncates path with mode 0644 for writing, creating
// its parent directory first.
func CreateFile(path string) (*os.File, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("ensure dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644) //nolint:gosec // G304: path comes from the caller's configuration
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
