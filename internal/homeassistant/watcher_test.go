package homeassistant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeEventServer speaks just enough of the websocket protocol to drive the
// watcher: auth handshake, subscription ack, then a scripted event stream.
func fakeEventServer(t *testing.T, events []wsEvent) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/websocket" {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		if err := conn.WriteJSON(wsMessage{Type: "auth_required"}); err != nil {
			return
		}
		var auth wsMessage
		if err := conn.ReadJSON(&auth); err != nil || auth.Type != "auth" {
			t.Errorf("expected auth message, got %+v (err=%v)", auth, err)
			return
		}
		if auth.AccessToken != "token" {
			conn.WriteJSON(wsMessage{Type: "auth_invalid"})
			return
		}
		conn.WriteJSON(wsMessage{Type: "auth_ok"})

		var sub wsMessage
		if err := conn.ReadJSON(&sub); err != nil || sub.Type != "subscribe_events" {
			t.Errorf("expected subscribe_events, got %+v (err=%v)", sub, err)
			return
		}
		ok := true
		conn.WriteJSON(wsMessage{ID: sub.ID, Type: "result", Success: &ok})

		for i := range events {
			conn.WriteJSON(wsMessage{ID: sub.ID, Type: "event", Event: &events[i]})
		}

		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func stateChanged(entityID, newState string) wsEvent {
	var ev wsEvent
	ev.EventType = "state_changed"
	ev.Data.EntityID = entityID
	ev.Data.NewState = []byte(newState)
	return ev
}

func TestWatcherFiltersAndDispatches(t *testing.T) {
	events := []wsEvent{
		stateChanged("sensor.kitchen_temperature", `{"state":"21"}`),
		stateChanged("sensor.p1_printable_objects", `{"state":"2"}`),
		stateChanged("sensor.p1_printable_objects", "null"), // removed entity
		stateChanged("sensor.p2_printable_objects", `{"state":"1"}`),
	}
	srv := fakeEventServer(t, events)
	defer srv.Close()

	got := make(chan string, 4)
	watcher := NewWatcher(srv.URL, "token", "_printable_objects", func(entityID string) {
		got <- entityID
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	want := []string{"sensor.p1_printable_objects", "sensor.p2_printable_objects"}
	for _, entity := range want {
		select {
		case id := <-got:
			if id != entity {
				t.Errorf("dispatched %s, want %s", id, entity)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", entity)
		}
	}

	// Filtered events must not arrive.
	select {
	case id := <-got:
		t.Errorf("unexpected dispatch for %s", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcherRejectsBadToken(t *testing.T) {
	srv := fakeEventServer(t, nil)
	defer srv.Close()

	watcher := NewWatcher(srv.URL, "wrong", "_printable_objects", func(string) {})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if err := watcher.listen(ctx); err == nil {
		t.Error("expected authentication failure")
	}
}
