package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyKey is returned when a report key is empty
var ErrEmptyKey = errors.New("storage key is required")

// FileReportStore writes reports below a local directory, one file per key
type FileReportStore struct {
	dir string
}

// NewFileReportStore creates the directory if needed
func NewFileReportStore(dir string) (*FileReportStore, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileReportStore{dir: dir}, nil
}

// Upload writes data to dir/key. contentType is ignored.
func (s *FileReportStore) Upload(ctx context.Context, key string, data []byte, _ string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.Path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	// Write then rename so readers never see a partial report
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// Path returns the file a key maps to. Keys may not escape the directory.
func (s *FileReportStore) Path(key string) (string, error) {
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return path, nil
}
