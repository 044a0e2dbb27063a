package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestGetState(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/states/sensor.p1_printable_objects" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q, want bearer token", got)
		}
		json.NewEncoder(w).Encode(State{
			EntityID: "sensor.p1_printable_objects",
			State:    "2",
			Attributes: map[string]interface{}{
				"objects": map[string]interface{}{"1": "Benchy"},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret")
	state, err := client.GetState(context.Background(), "sensor.p1_printable_objects")
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if state.State != "2" {
		t.Errorf("state = %s, want 2", state.State)
	}
}

func TestGetStateNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	_, err := client.GetState(context.Background(), "sensor.missing")
	if !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("error = %v, want ErrEntityNotFound", err)
	}
}

func TestObjectNames(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(State{
			EntityID: "sensor.p1_printable_objects",
			State:    "2",
			Attributes: map[string]interface{}{
				"objects": map[string]interface{}{
					"409651":  "Benchy",
					"1065988": "Calibration Cube",
				},
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	names, err := client.ObjectNames(context.Background(), "sensor.p1_printable_objects")
	if err != nil {
		t.Fatalf("ObjectNames: %v", err)
	}
	want := map[string]string{"409651": "Benchy", "1065988": "Calibration Cube"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestObjectNamesMissingAttribute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(State{EntityID: "sensor.x", State: "0", Attributes: map[string]interface{}{}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	names, err := client.ObjectNames(context.Background(), "sensor.x")
	if err != nil {
		t.Fatalf("ObjectNames: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("names = %v, want empty", names)
	}
}

func TestSetState(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	attrs := map[string]interface{}{"image_width": 512}
	if err := client.SetState(context.Background(), "sensor.p1_plate_analyzer", "3", attrs); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	if got["state"] != "3" {
		t.Errorf("published state = %v, want 3", got["state"])
	}
}

func TestSetStateServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	if err := client.SetState(context.Background(), "sensor.x", "0", nil); err == nil {
		t.Error("expected error on 500")
	}
}

func TestGetImage(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/image_proxy/image.p1_pick_image" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	data, err := client.GetImage(context.Background(), "image.p1_pick_image")
	if err != nil {
		t.Fatalf("GetImage: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("data = %v, want %v", data, payload)
	}
}
