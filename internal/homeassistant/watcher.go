package homeassistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Watcher subscribes to the platform's websocket event bus and invokes a
// callback whenever a watched entity's state changes. The upstream entity may
// not exist at startup; the watcher simply keeps listening until it appears.
type Watcher struct {
	wsURL    string
	token    string
	suffix   string
	onChange func(entityID string)
}

// NewWatcher creates a watcher for entities whose ID ends with suffix.
// baseURL is the platform's HTTP base URL; the websocket endpoint is derived
// from it.
func NewWatcher(baseURL, token, suffix string, onChange func(entityID string)) *Watcher {
	wsURL := strings.Replace(baseURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	return &Watcher{
		wsURL:    wsURL + "/api/websocket",
		token:    token,
		suffix:   suffix,
		onChange: onChange,
	}
}

// Run connects and listens until ctx is cancelled, reconnecting with a fixed
// backoff on connection loss.
func (w *Watcher) Run(ctx context.Context) error {
	const backoff = 5 * time.Second
	for {
		if err := w.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("Event watcher disconnected: %v (reconnecting in %s)", err, backoff)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
}

// wsMessage covers the subset of the websocket protocol the watcher uses.
type wsMessage struct {
	ID          int      `json:"id,omitempty"`
	Type        string   `json:"type"`
	AccessToken string   `json:"access_token,omitempty"`
	EventType   string   `json:"event_type,omitempty"`
	Success     *bool    `json:"success,omitempty"`
	Event       *wsEvent `json:"event,omitempty"`
}

type wsEvent struct {
	EventType string `json:"event_type"`
	Data      struct {
		EntityID string          `json:"entity_id"`
		NewState json.RawMessage `json:"new_state"`
	} `json:"data"`
}

func (w *Watcher) listen(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	// Unblock ReadJSON when the context is cancelled.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := w.authenticate(conn); err != nil {
		return err
	}

	subscribe := wsMessage{ID: 1, Type: "subscribe_events", EventType: "state_changed"}
	if err := conn.WriteJSON(subscribe); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	log.Printf("✓ Subscribed to state_changed events (suffix filter: %s)", w.suffix)

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("read failed: %w", err)
		}

		switch msg.Type {
		case "result":
			if msg.Success != nil && !*msg.Success {
				return fmt.Errorf("subscription rejected")
			}
		case "event":
			if msg.Event == nil || msg.Event.EventType != "state_changed" {
				continue
			}
			entityID := msg.Event.Data.EntityID
			if !strings.HasSuffix(entityID, w.suffix) {
				continue
			}
			// Removed entities publish a null new_state; nothing to analyze.
			if string(msg.Event.Data.NewState) == "null" || len(msg.Event.Data.NewState) == 0 {
				continue
			}
			w.onChange(entityID)
		}
	}
}

func (w *Watcher) authenticate(conn *websocket.Conn) error {
	var hello wsMessage
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("auth handshake read failed: %w", err)
	}
	if hello.Type != "auth_required" {
		return fmt.Errorf("unexpected handshake message: %s", hello.Type)
	}

	if err := conn.WriteJSON(wsMessage{Type: "auth", AccessToken: w.token}); err != nil {
		return fmt.Errorf("auth send failed: %w", err)
	}

	var result wsMessage
	if err := conn.ReadJSON(&result); err != nil {
		return fmt.Errorf("auth result read failed: %w", err)
	}
	if result.Type != "auth_ok" {
		return fmt.Errorf("authentication failed: %s", result.Type)
	}
	return nil
}
