package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FilesystemSource implements ImageSource for local files. Used by the
// standalone binary to analyze pick images straight from disk.
type FilesystemSource struct {
	baseDir string
}

// NewFilesystemSource creates a new filesystem image source
func NewFilesystemSource(baseDir string) (*FilesystemSource, error) {
	// Ensure base directory exists
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FilesystemSource{
		baseDir: baseDir,
	}, nil
}

// GetImage returns the bytes of the file at the given key
func (fs *FilesystemSource) GetImage(ctx context.Context, key string) ([]byte, error) {
	path, err := fs.resolve(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("image not found: %s", key)
		}
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

// Exists checks if a file exists at the given key
func (fs *FilesystemSource) Exists(ctx context.Context, key string) (bool, error) {
	path, err := fs.resolve(key)
	if err != nil {
		return false, err
	}

	_, err = os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat image: %w", err)
	}
	return true, nil
}

// resolve joins key onto the base directory, rejecting path traversal.
func (fs *FilesystemSource) resolve(key string) (string, error) {
	path := filepath.Join(fs.baseDir, key)
	if !strings.HasPrefix(filepath.Clean(path), filepath.Clean(fs.baseDir)) {
		return "", fmt.Errorf("invalid key: path traversal detected")
	}
	return path, nil
}
