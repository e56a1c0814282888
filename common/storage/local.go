package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidObjectName is returned for names that escape the storage root
var ErrInvalidObjectName = errors.New("invalid object name")

// LocalStorage implements StorageService on a directory. Buckets are
// subdirectories of the root; the empty bucket is the root itself.
type LocalStorage struct {
	root string
}

func NewLocalStorage(root string) *LocalStorage {
	return &LocalStorage{root: root}
}

// Root is the directory objects are written under
func (l *LocalStorage) Root() string {
	return l.root
}

// Path resolves an object to its file path
func (l *LocalStorage) Path(bucket, objectName string) (string, error) {
	clean := filepath.Clean(filepath.Join(bucket, objectName))
	if objectName == "" || clean == "." || strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", fmt.Errorf("%w: %q", ErrInvalidObjectName, objectName)
	}
	return filepath.Join(l.root, clean), nil
}

// Exists reports whether the object is present
func (l *LocalStorage) Exists(bucket, objectName string) (bool, error) {
	path, err := l.Path(bucket, objectName)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (l *LocalStorage) Upload(ctx context.Context, bucket, objectName string, content []byte, contentType string) (string, error) {
	return l.StreamUpload(ctx, bucket, objectName, bytes.NewReader(content), contentType)
}

// StreamUpload writes to a temp file in the target directory and renames it
// into place, so readers never see a partial object.
func (l *LocalStorage) StreamUpload(ctx context.Context, bucket, objectName string, reader io.Reader, _ string) (string, error) {
	path, err := l.Path(bucket, objectName)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("failed to sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return path, nil
}

func (l *LocalStorage) Download(_ context.Context, bucket, objectName string) ([]byte, error) {
	path, err := l.Path(bucket, objectName)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (l *LocalStorage) Delete(_ context.Context, bucket, objectName string) error {
	path, err := l.Path(bucket, objectName)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// GetSignedURL returns a file URL; local objects need no signature
func (l *LocalStorage) GetSignedURL(_ context.Context, bucket, objectName string, _ int64) (string, error) {
	path, err := l.Path(bucket, objectName)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file://" + filepath.ToSlash(abs), nil
}
