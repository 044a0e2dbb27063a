package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/plateworks/plate-analyzer/internal/dbosruntime"
	"github.com/plateworks/plate-analyzer/internal/homeassistant"
	"github.com/plateworks/plate-analyzer/internal/publisher"
	"github.com/plateworks/plate-analyzer/internal/storage"
	"github.com/plateworks/plate-analyzer/internal/workflows"
	"github.com/plateworks/plate-analyzer/pkg/plate"
)

// Config holds the configuration for initializing the analyzer runner
type Config struct {
	DatabaseURL        string // DBOS PostgreSQL connection string
	AppName            string // Application name for DBOS
	QueueName          string // DBOS queue name
	Concurrency        int    // Number of concurrent workers
	PlatformURL        string // Base URL of the home-automation platform API
	PlatformToken      string // Long-lived access token for the platform API
	ApplicationVersion string // Optional: Override binary hash for version matching
}

// Runner provides a high-level API for running plate analyses via DBOS
type Runner struct {
	runtime *dbosruntime.Runtime
	runner  *workflows.WorkflowRunner
}

// New creates and initializes a new analyzer runner with DBOS integration
func New(cfg Config) (*Runner, error) {
	// Create DBOS runtime
	dbosRuntime, err := dbosruntime.NewRuntime(context.Background(), dbosruntime.Config{
		DatabaseURL:        cfg.DatabaseURL,
		AppName:            cfg.AppName,
		QueueName:          cfg.QueueName,
		Concurrency:        cfg.Concurrency,
		ApplicationVersion: cfg.ApplicationVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize DBOS: %w", err)
	}

	// Create workflow runner
	workflowRunner := workflows.NewWorkflowRunner(dbosRuntime)

	// Setup platform collaborators
	haClient := homeassistant.NewClient(cfg.PlatformURL, cfg.PlatformToken)

	// Register the plate analysis workflow
	plateWorkflow := workflows.NewPlateWorkflow(workflows.PlateDeps{
		Names:     haClient,
		Images:    storage.NewEntitySource(haClient),
		Publisher: publisher.NewEntityPublisher(haClient),
	})
	workflowRunner.Register(plate.JobPlateAnalysis, plateWorkflow)

	// Launch DBOS (must be after workflow registration)
	if err := dbosRuntime.Launch(); err != nil {
		return nil, fmt.Errorf("failed to launch DBOS: %w", err)
	}

	return &Runner{
		runtime: dbosRuntime,
		runner:  workflowRunner,
	}, nil
}

// RunPlateAnalysis triggers a plate analysis workflow
func (r *Runner) RunPlateAnalysis(ctx context.Context, serial string) (string, error) {
	return r.runner.RunAsync(ctx, plate.AnalyzeRequest{
		Serial: serial,
		Job:    plate.JobPlateAnalysis,
	})
}

// Shutdown gracefully shuts down the analyzer runner
func (r *Runner) Shutdown(timeoutSeconds int) {
	if r.runtime != nil {
		r.runtime.Shutdown(time.Duration(timeoutSeconds) * time.Second)
	}
}
