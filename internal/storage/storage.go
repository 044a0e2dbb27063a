package storage

import (
	"context"
)

// ImageSource provides read access to pick image bytes. The key identifies
// the image within the source (an entity ID, a file name).
type ImageSource interface {
	// GetImage returns the raw image bytes for the given key
	GetImage(ctx context.Context, key string) ([]byte, error)

	// Exists checks if an image is available for the given key
	Exists(ctx context.Context, key string) (bool, error)
}
