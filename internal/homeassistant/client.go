package homeassistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrEntityNotFound is returned when the platform has no state for an entity
var ErrEntityNotFound = errors.New("entity not found")

// Client talks to the home-automation platform's REST API
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new REST client for the given base URL and long-lived
// access token
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{},
	}
}

// State is an entity's current state and attributes
type State struct {
	EntityID   string                 `json:"entity_id"`
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`
}

// GetState returns the current state of an entity
func (c *Client) GetState(ctx context.Context, entityID string) (*State, error) {
	url := fmt.Sprintf("%s/api/states/%s", c.baseURL, entityID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", entityID, ErrEntityNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get state failed with status %d", resp.StatusCode)
	}

	var state State
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	return &state, nil
}

// ObjectNames reads the printable-objects sensor's "objects" attribute,
// a mapping of object identifier (as string) to display name.
func (c *Client) ObjectNames(ctx context.Context, entityID string) (map[string]string, error) {
	state, err := c.GetState(ctx, entityID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	raw, ok := state.Attributes["objects"].(map[string]interface{})
	if !ok {
		return names, nil
	}
	for id, value := range raw {
		if name, ok := value.(string); ok {
			names[id] = name
		}
	}
	return names, nil
}

// SetState publishes an entity's state and attributes
func (c *Client) SetState(ctx context.Context, entityID, state string, attributes map[string]interface{}) error {
	url := fmt.Sprintf("%s/api/states/%s", c.baseURL, entityID)

	payload, err := json.Marshal(map[string]interface{}{
		"state":      state,
		"attributes": attributes,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to set state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("set state failed with status %d", resp.StatusCode)
	}
	return nil
}

// GetImage fetches the raw bytes served by an image entity
func (c *Client) GetImage(ctx context.Context, entityID string) ([]byte, error) {
	url := fmt.Sprintf("%s/api/image_proxy/%s", c.baseURL, entityID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%s: %w", entityID, ErrEntityNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image failed with status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image body: %w", err)
	}
	return data, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
