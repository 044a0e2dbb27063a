package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/plateworks/plate-analyzer/internal/picture"
	"github.com/plateworks/plate-analyzer/internal/workflows"
)

type fakeLedger struct {
	serial string
	count  int
}

func (f *fakeLedger) Record(ctx context.Context, serial string) (int, error) {
	f.serial = serial
	f.count++
	return f.count, nil
}

func TestHandleAnalyzeAsyncInvalidJSON(t *testing.T) {
	h := NewAsyncHandler(workflows.NewWorkflowRunner(nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.HandleAnalyzeAsync(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAnalyzeAsyncMissingSerial(t *testing.T) {
	h := NewAsyncHandler(workflows.NewWorkflowRunner(nil), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(`{"job":"plate_analysis"}`))
	rec := httptest.NewRecorder()
	h.HandleAnalyzeAsync(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleAnalyzeAsyncWithoutRuntime(t *testing.T) {
	// Without a DBOS runtime, enqueueing fails after the ledger records the
	// trigger; the client sees a 500.
	ledger := &fakeLedger{}
	h := NewAsyncHandler(workflows.NewWorkflowRunner(nil), ledger)

	req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader(`{"serial":"p1"}`))
	rec := httptest.NewRecorder()
	h.HandleAnalyzeAsync(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if ledger.serial != "p1" {
		t.Errorf("ledger recorded %q, want p1", ledger.serial)
	}
}

func TestHandlePreview(t *testing.T) {
	store := picture.NewStore()
	store.Put("p1", []byte("jpeg-bytes"))

	router := chi.NewRouter()
	router.Get("/v1/plates/{serial}/image", NewPreviewHandler(store).HandlePreview)

	req := httptest.NewRequest(http.MethodGet, "/v1/plates/p1/image", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "image/jpeg" {
		t.Errorf("content-type = %q, want image/jpeg", got)
	}
	if rec.Body.String() != "jpeg-bytes" {
		t.Errorf("body = %q, want jpeg-bytes", rec.Body.String())
	}
}

func TestHandlePreviewNotFound(t *testing.T) {
	router := chi.NewRouter()
	router.Get("/v1/plates/{serial}/image", NewPreviewHandler(picture.NewStore()).HandlePreview)

	req := httptest.NewRequest(http.MethodGet, "/v1/plates/unknown/image", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
