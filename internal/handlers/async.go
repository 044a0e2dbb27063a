package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/plateworks/plate-analyzer/internal/workflows"
	"github.com/plateworks/plate-analyzer/pkg/plate"
)

// Ledger records triggered analyses and returns how often a serial was seen
type Ledger interface {
	Record(ctx context.Context, serial string) (int, error)
}

// AsyncHandler handles asynchronous analysis requests
type AsyncHandler struct {
	workflowRunner *workflows.WorkflowRunner
	ledger         Ledger
}

// NewAsyncHandler creates a new async handler. The ledger is optional.
func NewAsyncHandler(runner *workflows.WorkflowRunner, ledger Ledger) *AsyncHandler {
	return &AsyncHandler{
		workflowRunner: runner,
		ledger:         ledger,
	}
}

// HandleAnalyzeAsync handles POST /v1/analyze - enqueues workflow and returns immediately
func (h *AsyncHandler) HandleAnalyzeAsync(w http.ResponseWriter, r *http.Request) {
	// Parse request
	var req plate.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	// Validate
	if req.Serial == "" {
		http.Error(w, "serial is required", http.StatusBadRequest)
		return
	}
	if req.Job == "" {
		req.Job = plate.JobPlateAnalysis
	}

	log.Printf("Enqueueing workflow: serial=%s, job=%s", req.Serial, req.Job)

	// Record in the ledger (non-fatal)
	seenCount := 0
	if h.ledger != nil {
		count, err := h.ledger.Record(r.Context(), req.Serial)
		if err != nil {
			log.Printf("Failed to record analysis in ledger: %v", err)
		} else {
			seenCount = count
		}
	}

	// Enqueue workflow (non-blocking)
	runID, err := h.workflowRunner.RunAsync(r.Context(), req)
	if err != nil {
		log.Printf("Failed to enqueue workflow: %v", err)
		http.Error(w, fmt.Sprintf("Failed to enqueue workflow: %v", err), http.StatusInternalServerError)
		return
	}

	log.Printf("Workflow enqueued successfully: run_id=%s", runID)

	// Return immediately with 202 Accepted
	resp := plate.AnalyzeResponse{
		RunID:     runID,
		SeenCount: seenCount,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(resp)
}

// HandleStatus handles GET /v1/runs/{runID} - returns workflow status
func (h *AsyncHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if runID == "" {
		http.Error(w, "run_id is required", http.StatusBadRequest)
		return
	}

	log.Printf("Checking workflow status: run_id=%s", runID)

	// Get status
	status, err := h.workflowRunner.GetStatus(r.Context(), runID)
	if err != nil {
		log.Printf("Failed to get workflow status: %v", err)
		http.Error(w, "Workflow not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}
