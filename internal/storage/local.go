package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/asha/decorscout/internal/config"
)

// LocalStorage implements ObjectStorage on a local directory. Intended for
// development and the seed tool; production uses S3.
type LocalStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates a local-directory storage backend.
// Parameters:
//   - cfg: local settings including the base directory and the URL prefix
//     objects are served under.
// Returns:
//   - *LocalStorage: initialized backend.
//   - error: non-nil if the base directory cannot be created.
func NewLocalStorage(cfg *config.LocalConfig) (*LocalStorage, error) {
	if err := os.MkdirAll(cfg.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStorage{
		basePath: cfg.BasePath,
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
	}, nil
}

// keyPath maps an object key to a filesystem path, rejecting traversal.
func (l *LocalStorage) keyPath(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return filepath.Join(l.basePath, clean), nil
}

// Upload writes an object under the base directory
func (l *LocalStorage) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	path, err := l.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create object file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		os.Remove(path)
		return fmt.Errorf("failed to write object: %w", err)
	}
	return nil
}

// Download opens an object for reading
func (l *LocalStorage) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := l.keyPath(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open object: %w", err)
	}
	return f, nil
}

// GetURL returns the URL for accessing an object
func (l *LocalStorage) GetURL(key string) string {
	return l.baseURL + "/" + key
}

// Delete removes an object
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	path, err := l.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// Exists checks if an object exists
func (l *LocalStorage) Exists(ctx context.Context, key string) (bool, error) {
	path, err := l.keyPath(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}
	return true, nil
}
