package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plateworks/plate-analyzer/internal/dbosruntime"
	"github.com/plateworks/plate-analyzer/internal/dedupe"
	"github.com/plateworks/plate-analyzer/internal/handlers"
	"github.com/plateworks/plate-analyzer/internal/homeassistant"
	"github.com/plateworks/plate-analyzer/internal/picture"
	"github.com/plateworks/plate-analyzer/internal/publisher"
	"github.com/plateworks/plate-analyzer/internal/storage"
	"github.com/plateworks/plate-analyzer/internal/workflows"
	"github.com/plateworks/plate-analyzer/pkg/plate"
)

func main() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()

	// Configuration from environment
	httpAddr := os.Getenv("WORKER_HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8081"
	}

	haBaseURL := os.Getenv("HA_BASE_URL")
	if haBaseURL == "" {
		log.Fatalf("HA_BASE_URL is required")
	}
	haToken := os.Getenv("HA_TOKEN")

	// Initialize DBOS runtime (required)
	dbURL := os.Getenv("DBOS_SYSTEM_DATABASE_URL")
	if dbURL == "" {
		log.Fatalf("DBOS_SYSTEM_DATABASE_URL is required")
	}

	queueName := os.Getenv("DBOS_QUEUE_NAME")
	if queueName == "" {
		queueName = "default"
	}

	dbosRuntime, err := dbosruntime.NewRuntime(context.Background(), dbosruntime.Config{
		DatabaseURL: dbURL,
		AppName:     "plate-analyzer-worker",
		QueueName:   queueName,
		Concurrency: 4, // TODO: read from env
	})
	if err != nil {
		log.Fatalf("Failed to initialize DBOS: %v", err)
	}

	// Initialize the analysis ledger on the runtime's database handle
	ledger, err := dedupe.NewTracker(dbosRuntime.DB())
	if err != nil {
		log.Fatalf("Failed to initialize ledger: %v", err)
	}

	// Platform collaborators
	haClient := homeassistant.NewClient(haBaseURL, haToken)
	previews := picture.NewStore()

	// Initialize workflow runner with DBOS support (registers workflows with DBOS)
	workflowRunner := workflows.NewWorkflowRunner(dbosRuntime)

	// Register the plate analysis workflow
	plateWorkflow := workflows.NewPlateWorkflow(workflows.PlateDeps{
		Names:     haClient,
		Images:    storage.NewEntitySource(haClient),
		Publisher: publisher.NewEntityPublisher(haClient),
		Previews:  previews,
		Recorder:  ledger,
	})
	workflowRunner.Register(plate.JobPlateAnalysis, plateWorkflow)
	log.Printf("✓ Registered workflow: %s for job: %s", plateWorkflow.Name(), plate.JobPlateAnalysis)

	// Launch DBOS (must be done after workflow registration)
	if err := dbosRuntime.Launch(); err != nil {
		log.Fatalf("Failed to launch DBOS: %v", err)
	}
	defer dbosRuntime.Shutdown(10 * time.Second)

	log.Printf("✓ DBOS runtime initialized")
	log.Printf("  Queue: %s", dbosRuntime.QueueName())
	log.Printf("  Concurrency: %d", dbosRuntime.Concurrency())

	// Watch the upstream printable-objects sensors and trigger an analysis
	// whenever one changes
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()

	if os.Getenv("DISABLE_WATCHER") == "" {
		watcher := homeassistant.NewWatcher(haBaseURL, haToken, "_printable_objects", func(entityID string) {
			serial := serialFromEntityID(entityID)
			if serial == "" {
				log.Printf("Could not derive serial from entity %s, skipping", entityID)
				return
			}
			log.Printf("State change on %s, triggering analysis for serial=%s", entityID, serial)

			if _, err := ledger.Record(watchCtx, serial); err != nil {
				log.Printf("Failed to record analysis in ledger: %v", err)
			}
			runID, err := workflowRunner.RunAsync(watchCtx, plate.AnalyzeRequest{
				Serial: serial,
				Job:    plate.JobPlateAnalysis,
			})
			if err != nil {
				log.Printf("Failed to enqueue analysis for %s: %v", serial, err)
				return
			}
			log.Printf("Analysis enqueued: run_id=%s", runID)
		})
		go func() {
			if err := watcher.Run(watchCtx); err != nil && watchCtx.Err() == nil {
				log.Printf("Event watcher stopped: %v", err)
			}
		}()
		log.Printf("✓ Event watcher started")
	} else {
		log.Printf("Event watcher disabled")
	}

	// Create HTTP server
	router := chi.NewRouter()

	asyncHandler := handlers.NewAsyncHandler(workflowRunner, ledger)
	previewHandler := handlers.NewPreviewHandler(previews)

	router.Get("/health", handleHealth)
	router.Handle("/metrics", promhttp.Handler())
	router.Post("/v1/analyze", asyncHandler.HandleAnalyzeAsync)
	router.Get("/v1/runs/{runID}", asyncHandler.HandleStatus)
	router.Get("/v1/plates/{serial}/image", previewHandler.HandlePreview)

	log.Printf("✓ Registered endpoints")

	server := &http.Server{
		Addr:    httpAddr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Plate analyzer worker starting on %s", httpAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	cancelWatch()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// serialFromEntityID extracts the printer serial from an upstream entity ID
// like "sensor.<serial>_printable_objects".
func serialFromEntityID(entityID string) string {
	name := entityID
	if i := strings.IndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, "_printable_objects")
}

// handleHealth returns health status
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}
