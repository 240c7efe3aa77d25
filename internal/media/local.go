package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage keeps media files under a directory on disk.
type LocalStorage struct {
	dir     string
	baseURL string
}

// NewLocalStorage creates the directory if needed.
func NewLocalStorage(dir, baseURL string) (*LocalStorage, error) {
	if dir == "" {
		return nil, errors.New("media directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &LocalStorage{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the library root.
func (l *LocalStorage) Dir() string {
	return l.dir
}

func (l *LocalStorage) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) (Object, error) {
	dest := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return Object{}, fmt.Errorf("create media directory: %w", err)
	}

	f, err := os.Create(dest)
	if err != nil {
		return Object{}, fmt.Errorf("create %s: %w", key, err)
	}

	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return Object{}, fmt.Errorf("write %s: %w", key, err)
	}
	if size >= 0 && n != size {
		_ = os.Remove(dest)
		return Object{}, fmt.Errorf("write %s: short copy (%d of %d bytes)", key, n, size)
	}

	return Object{
		Key:         key,
		URL:         joinURL(l.baseURL, key),
		ContentType: contentType,
		Size:        n,
	}, nil
}

func (l *LocalStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(filepath.Join(l.dir, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
