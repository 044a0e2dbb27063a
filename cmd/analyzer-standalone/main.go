package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/plateworks/plate-analyzer/internal/picture"
	"github.com/plateworks/plate-analyzer/internal/publisher"
	"github.com/plateworks/plate-analyzer/internal/storage"
	"github.com/plateworks/plate-analyzer/internal/workflows"
	"github.com/plateworks/plate-analyzer/pkg/plate"
)

// Standalone analyzer for quick testing
// Reads pick images and object names from a local directory (./dev-data)
// No home-automation platform or DBOS/Postgres needed
func main() {
	// Configuration from environment
	httpAddr := os.Getenv("ANALYZER_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	imagesDir := os.Getenv("IMAGES_DIR")
	if imagesDir == "" {
		imagesDir = "./dev-data"
	}

	log.Printf("Plate Analyzer Standalone")
	log.Printf("  Mode: Embedded (filesystem images, log publisher)")
	log.Printf("  Images directory: %s", imagesDir)
	log.Printf("  HTTP address: %s", httpAddr)

	imageSource, err := storage.NewFilesystemSource(imagesDir)
	if err != nil {
		log.Fatalf("Failed to initialize image source: %v", err)
	}

	names := &fileNames{dir: imagesDir}
	sink := newMemoryPublisher()
	previews := picture.NewStore()

	// Initialize workflow runner (no DBOS - synchronous execution only)
	workflowRunner := workflows.NewWorkflowRunner(nil)

	plateWorkflow := workflows.NewPlateWorkflow(workflows.PlateDeps{
		Names:     names,
		Images:    imageSource,
		Publisher: sink,
		Previews:  previews,
	})
	workflowRunner.Register(plate.JobPlateAnalysis, plateWorkflow)
	log.Printf("✓ Registered workflow: %s for job: %s", plateWorkflow.Name(), plate.JobPlateAnalysis)

	// Create HTTP server
	handler := &Handler{
		workflowRunner: workflowRunner,
		imagesDir:      imagesDir,
		sink:           sink,
	}

	router := chi.NewRouter()
	router.Get("/health", handleHealth)
	router.Post("/v1/analyze", handler.handleAnalyze)
	router.Get("/v1/test", handler.handleTest)
	router.Post("/v1/test", handler.handleTest)

	server := &http.Server{
		Addr:    httpAddr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("✓ Analyzer ready on %s", httpAddr)
		log.Printf("")
		log.Printf("Quick test:")
		log.Printf("  curl http://localhost:8080/v1/test")
		log.Printf("")
		log.Printf("Available endpoints:")
		log.Printf("  GET  /health      - Health check")
		log.Printf("  POST /v1/analyze  - Analyze a pick image from %s", imagesDir)
		log.Printf("  GET  /v1/test     - Run end-to-end test (generate + analyze + verify)")
		log.Printf("")
		log.Printf("Analyze a local image:")
		log.Printf(`  curl -X POST localhost:8080/v1/analyze -d '{"serial":"dev","metadata":{"pick_image_entity":"plate.png","printable_objects_entity":"plate.json"}}'`)
		log.Printf("")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// handleHealth returns health status
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
		"mode":   "standalone",
	})
}

// fileNames reads object names from a JSON file in the images directory.
// The key is the file name (set via the printable_objects_entity metadata
// override); the file holds a mapping of identifier to name.
type fileNames struct {
	dir string
}

func (f *fileNames) ObjectNames(ctx context.Context, key string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(f.dir, filepath.Base(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("failed to read names file: %w", err)
	}
	var names map[string]string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("failed to parse names file: %w", err)
	}
	return names, nil
}

// memoryPublisher logs payloads and keeps the last one per entity so the
// test endpoint can verify results.
type memoryPublisher struct {
	mu   sync.Mutex
	last map[string]*publisher.Payload
}

func newMemoryPublisher() *memoryPublisher {
	return &memoryPublisher{last: make(map[string]*publisher.Payload)}
}

func (m *memoryPublisher) Publish(ctx context.Context, entityID string, payload *publisher.Payload) error {
	m.mu.Lock()
	m.last[entityID] = payload
	m.mu.Unlock()
	return publisher.LogPublisher{}.Publish(ctx, entityID, payload)
}

func (m *memoryPublisher) Last(entityID string) *publisher.Payload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last[entityID]
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	workflowRunner *workflows.WorkflowRunner
	imagesDir      string
	sink           *memoryPublisher
}

// handleAnalyze handles the /v1/analyze endpoint (synchronous)
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// Parse request
	var req plate.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("Invalid request: %v", err), http.StatusBadRequest)
		return
	}

	// Validate request
	if req.Serial == "" {
		http.Error(w, "serial is required", http.StatusBadRequest)
		return
	}
	if req.Job == "" {
		req.Job = plate.JobPlateAnalysis
	}

	log.Printf("Analyzing: serial=%s, job=%s", req.Serial, req.Job)

	// Generate run ID
	runID := uuid.New().String()

	// Create workflow context
	wctx := &workflows.WorkflowContext{
		Ctx:     r.Context(),
		Request: req,
		RunID:   runID,
	}

	// Execute workflow
	result, err := h.workflowRunner.Run(wctx)
	if err != nil {
		log.Printf("[%s] Workflow execution failed: %v", runID, err)
		http.Error(w, fmt.Sprintf("Workflow execution failed: %v", err), http.StatusInternalServerError)
		return
	}

	if !result.Success {
		log.Printf("[%s] Workflow completed with errors: %v", runID, result.Error)
		http.Error(w, fmt.Sprintf("Workflow failed: %v", result.Error), http.StatusInternalServerError)
		return
	}

	log.Printf("[%s] Workflow completed successfully", runID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"run_id":  runID,
		"outputs": result.Outputs,
	})
}

// handleTest handles the /v1/test endpoint for quick end-to-end testing
func (h *Handler) handleTest(w http.ResponseWriter, r *http.Request) {
	log.Println("=== Running End-to-End Test ===")

	// Step 1: Generate a test pick image with two objects
	log.Println("Step 1: Generating test pick image...")
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	paint := func(x0, y0, x1, y1 int, c color.NRGBA) {
		for y := y0; y <= y1; y++ {
			for x := x0; x <= x1; x++ {
				img.SetNRGBA(x, y, c)
			}
		}
	}
	// BGR-packed identifiers 1 and 2
	paint(0, 0, 4, 2, color.NRGBA{R: 1, A: 0xFF})
	paint(5, 5, 9, 9, color.NRGBA{R: 2, A: 0xFF})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		http.Error(w, fmt.Sprintf("PNG encode failed: %v", err), http.StatusInternalServerError)
		return
	}
	if err := os.WriteFile(filepath.Join(h.imagesDir, "test-plate.png"), buf.Bytes(), 0644); err != nil {
		http.Error(w, fmt.Sprintf("Write image failed: %v", err), http.StatusInternalServerError)
		return
	}

	names := map[string]string{"1": "Benchy", "2": "Calibration Cube"}
	namesJSON, _ := json.Marshal(names)
	if err := os.WriteFile(filepath.Join(h.imagesDir, "test-plate.json"), namesJSON, 0644); err != nil {
		http.Error(w, fmt.Sprintf("Write names failed: %v", err), http.StatusInternalServerError)
		return
	}
	log.Println("✓ Test pick image written")

	// Step 2: Run the analysis workflow
	log.Println("Step 2: Running plate analysis...")
	runID := uuid.New().String()
	wctx := &workflows.WorkflowContext{
		Ctx: r.Context(),
		Request: plate.AnalyzeRequest{
			Serial: "test",
			Job:    plate.JobPlateAnalysis,
			Metadata: map[string]string{
				plate.MetaPickImageEntity:        "test-plate.png",
				plate.MetaPrintableObjectsEntity: "test-plate.json",
			},
		},
		RunID: runID,
	}

	result, err := h.workflowRunner.Run(wctx)
	if err != nil || !result.Success {
		log.Printf("Workflow failed: err=%v result=%+v", err, result)
		http.Error(w, fmt.Sprintf("Workflow failed: %v", err), http.StatusInternalServerError)
		return
	}
	log.Printf("✓ Workflow completed successfully (run_id: %s)", runID)

	// Step 3: Verify the published payload
	log.Println("Step 3: Checking published result...")
	payload := h.sink.Last(plate.AnalyzerEntity("test"))
	if payload == nil {
		http.Error(w, "no payload published", http.StatusInternalServerError)
		return
	}
	log.Printf("✓ Published state=%s bbox_data=%q", payload.State(), payload.BBoxData())

	log.Println("=== Test Complete ===")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"test_status":  "success",
		"run_id":       runID,
		"state":        payload.State(),
		"image_width":  payload.ImageWidth,
		"image_height": payload.ImageHeight,
		"objects":      payload.Objects,
		"bbox_data":    payload.BBoxData(),
	})
}
