package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/plateworks/plate-analyzer/internal/homeassistant"
)

// EntitySource reads pick images from the home-automation platform's image
// entities. Keys are entity IDs.
type EntitySource struct {
	client *homeassistant.Client
}

// NewEntitySource creates an image source backed by the platform API
func NewEntitySource(client *homeassistant.Client) *EntitySource {
	return &EntitySource{client: client}
}

// GetImage returns the bytes currently served by the image entity
func (s *EntitySource) GetImage(ctx context.Context, entityID string) ([]byte, error) {
	data, err := s.client.GetImage(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pick image: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("pick image entity %s returned no data", entityID)
	}
	return data, nil
}

// Exists checks whether the image entity is registered with the platform
func (s *EntitySource) Exists(ctx context.Context, entityID string) (bool, error) {
	_, err := s.client.GetState(ctx, entityID)
	if err != nil {
		if errors.Is(err, homeassistant.ErrEntityNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check image entity: %w", err)
	}
	return true, nil
}
