package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/plateworks/plate-analyzer/internal/picture"
)

// PreviewHandler serves the latest JPEG preview of a printer's pick image
type PreviewHandler struct {
	store *picture.Store
}

// NewPreviewHandler creates a preview handler over the given store
func NewPreviewHandler(store *picture.Store) *PreviewHandler {
	return &PreviewHandler{store: store}
}

// HandlePreview handles GET /v1/plates/{serial}/image
func (h *PreviewHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	serial := chi.URLParam(r, "serial")
	if serial == "" {
		http.Error(w, "serial is required", http.StatusBadRequest)
		return
	}

	data, updated, ok := h.store.Get(serial)
	if !ok {
		http.Error(w, "no preview available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Last-Modified", updated.Format(time.RFC1123))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
