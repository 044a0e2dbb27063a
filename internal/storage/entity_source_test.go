package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/plateworks/plate-analyzer/internal/homeassistant"
)

func TestEntitySourceGetImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/image_proxy/image.p1_pick_image":
			w.Write([]byte("pick-image-bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	source := NewEntitySource(homeassistant.NewClient(srv.URL, "token"))

	data, err := source.GetImage(context.Background(), "image.p1_pick_image")
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if string(data) != "pick-image-bytes" {
		t.Errorf("data = %q, want pick-image-bytes", data)
	}
}

func TestEntitySourceEmptyImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	source := NewEntitySource(homeassistant.NewClient(srv.URL, ""))
	if _, err := source.GetImage(context.Background(), "image.p1_pick_image"); err == nil {
		t.Error("expected error for empty image body")
	}
}

func TestEntitySourceExists(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/states/image.p1_pick_image" {
			w.Write([]byte(`{"entity_id":"image.p1_pick_image","state":"2024-01-01T00:00:00+00:00","attributes":{}}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	source := NewEntitySource(homeassistant.NewClient(srv.URL, ""))

	exists, err := source.Exists(context.Background(), "image.p1_pick_image")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Error("registered entity reported as missing")
	}

	exists, err = source.Exists(context.Background(), "image.other")
	if err != nil {
		t.Fatalf("Exists (missing): %v", err)
	}
	if exists {
		t.Error("unregistered entity reported as existing")
	}
}
