package workflows

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/plateworks/plate-analyzer/internal/metrics"
	"github.com/plateworks/plate-analyzer/internal/picture"
	"github.com/plateworks/plate-analyzer/internal/publisher"
	"github.com/plateworks/plate-analyzer/internal/scanner"
	"github.com/plateworks/plate-analyzer/pkg/plate"
)

// NameReader reads the upstream integration's object names
type NameReader interface {
	ObjectNames(ctx context.Context, entityID string) (map[string]string, error)
}

// ImageSource reads pick image bytes
type ImageSource interface {
	GetImage(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// Publisher pushes the analysis payload to the host platform
type Publisher interface {
	Publish(ctx context.Context, entityID string, payload *publisher.Payload) error
}

// PreviewStore keeps the latest JPEG preview per printer
type PreviewStore interface {
	Put(serial string, data []byte)
}

// ObjectCountRecorder records the object count of a completed analysis
type ObjectCountRecorder interface {
	RecordObjectCount(ctx context.Context, serial string, objectCount int) error
}

// PlateDeps are the collaborators of the plate analysis workflow. Previews
// and Recorder are optional; Rule defaults to the upstream BGR convention.
type PlateDeps struct {
	Names     NameReader
	Images    ImageSource
	Publisher Publisher
	Previews  PreviewStore
	Recorder  ObjectCountRecorder
	Rule      scanner.DecodeRule
}

// PlateWorkflow analyzes a printer's pick image and publishes per-object
// bounding boxes as sensor state
type PlateWorkflow struct {
	deps PlateDeps
}

// NewPlateWorkflow creates a new plate analysis workflow
func NewPlateWorkflow(deps PlateDeps) *PlateWorkflow {
	if deps.Rule == nil {
		deps.Rule = scanner.BGRRule
	}
	return &PlateWorkflow{deps: deps}
}

// Name returns the workflow name
func (w *PlateWorkflow) Name() string {
	return "PlateWorkflow"
}

// Execute runs the plate analysis workflow
func (w *PlateWorkflow) Execute(wctx *WorkflowContext) (*WorkflowResult, error) {
	log.Printf("[%s] Starting plate analysis for serial=%s", wctx.RunID, wctx.Request.Serial)

	// Step 1: Validate request and resolve entity IDs
	if wctx.Request.Serial == "" {
		err := fmt.Errorf("%w: serial is required", ErrInvalidRequest)
		return &WorkflowResult{Success: false, Error: err}, err
	}
	printableEntity := entityFor(wctx.Request, plate.MetaPrintableObjectsEntity, plate.PrintableObjectsEntity)
	pickImageEntity := entityFor(wctx.Request, plate.MetaPickImageEntity, plate.PickImageEntity)
	analyzerEntity := entityFor(wctx.Request, plate.MetaAnalyzerEntity, plate.AnalyzerEntity)

	// Step 2: Read the upstream object names
	names, err := w.deps.Names.ObjectNames(wctx.Ctx, printableEntity)
	if err != nil {
		log.Printf("[%s] Failed to read printable objects: %v", wctx.RunID, err)
		metrics.ScansTotal.WithLabelValues(metrics.StatusFetchError).Inc()
		wrapped := fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
		return &WorkflowResult{Success: false, Error: wrapped}, wrapped
	}

	// Step 3: Nothing on the plate - publish an empty result and stop
	if len(names) == 0 {
		log.Printf("[%s] No printable objects reported - publishing empty state", wctx.RunID)
		if err := w.deps.Publisher.Publish(wctx.Ctx, analyzerEntity, publisher.Empty()); err != nil {
			metrics.ScansTotal.WithLabelValues(metrics.StatusPublishError).Inc()
			return &WorkflowResult{Success: false, Error: err}, err
		}
		metrics.ScansTotal.WithLabelValues(metrics.StatusEmpty).Inc()
		metrics.ObjectsDetected.WithLabelValues(wctx.Request.Serial).Set(0)
		w.recordCount(wctx, 0)
		return &WorkflowResult{
			Success: true,
			Outputs: map[string]interface{}{
				"serial":       wctx.Request.Serial,
				"object_count": 0,
				"skipped":      true,
			},
		}, nil
	}

	// Step 4: Check the pick image entity exists
	exists, err := w.deps.Images.Exists(wctx.Ctx, pickImageEntity)
	if err != nil {
		log.Printf("[%s] Failed to check pick image entity: %v", wctx.RunID, err)
		metrics.ScansTotal.WithLabelValues(metrics.StatusFetchError).Inc()
		return &WorkflowResult{Success: false, Error: fmt.Errorf("pick image check failed: %w", err)}, err
	}
	if !exists {
		log.Printf("[%s] Pick image entity not found: %s", wctx.RunID, pickImageEntity)
		metrics.ScansTotal.WithLabelValues(metrics.StatusFetchError).Inc()
		err := fmt.Errorf("%w: %s", ErrUpstreamUnavailable, pickImageEntity)
		return &WorkflowResult{Success: false, Error: err}, nil
	}

	// Step 5: Fetch the pick image bytes
	imageBytes, err := w.deps.Images.GetImage(wctx.Ctx, pickImageEntity)
	if err != nil {
		log.Printf("[%s] Failed to fetch pick image: %v", wctx.RunID, err)
		metrics.ScansTotal.WithLabelValues(metrics.StatusFetchError).Inc()
		return &WorkflowResult{Success: false, Error: fmt.Errorf("pick image fetch failed: %w", err)}, err
	}
	log.Printf("[%s] Pick image fetched: %d bytes", wctx.RunID, len(imageBytes))

	// Step 6: Decode and scan. Decode failures are fatal to this run and
	// leave the previously published state untouched.
	bitmap, err := scanner.DecodeBitmap(imageBytes)
	if err != nil {
		log.Printf("[%s] Pick image decode failed: %v", wctx.RunID, err)
		metrics.ScansTotal.WithLabelValues(metrics.StatusDecodeError).Inc()
		return &WorkflowResult{Success: false, Error: err}, err
	}

	start := time.Now()
	result, err := scanner.ScanParallel(bitmap, w.deps.Rule, 0)
	if err != nil {
		log.Printf("[%s] Scan failed: %v", wctx.RunID, err)
		metrics.ScansTotal.WithLabelValues(metrics.StatusDecodeError).Inc()
		return &WorkflowResult{Success: false, Error: err}, err
	}
	metrics.ScanDuration.Observe(time.Since(start).Seconds())
	log.Printf("[%s] Scan complete: %d identifiers in %dx%d image", wctx.RunID, len(result.Boxes), result.Width, result.Height)

	// Step 7: Merge names with boxes and publish
	payload := publisher.BuildPayload(result, names)
	if err := w.deps.Publisher.Publish(wctx.Ctx, analyzerEntity, payload); err != nil {
		log.Printf("[%s] Failed to publish result: %v", wctx.RunID, err)
		metrics.ScansTotal.WithLabelValues(metrics.StatusPublishError).Inc()
		return &WorkflowResult{Success: false, Error: fmt.Errorf("publish failed: %w", err)}, err
	}

	objectCount := len(payload.Objects)
	metrics.ScansTotal.WithLabelValues(metrics.StatusOK).Inc()
	metrics.ObjectsDetected.WithLabelValues(wctx.Request.Serial).Set(float64(objectCount))
	w.recordCount(wctx, objectCount)

	// Step 8: Refresh the JPEG preview. A preview failure does not fail the
	// analysis - the sensor state is already published.
	if w.deps.Previews != nil {
		jpegBytes, err := picture.ToJPEG(imageBytes, picture.DefaultQuality)
		if err != nil {
			log.Printf("[%s] Preview conversion failed: %v", wctx.RunID, err)
		} else {
			w.deps.Previews.Put(wctx.Request.Serial, jpegBytes)
		}
	}

	log.Printf("[%s] Plate analysis complete: %d objects, image %dx%d", wctx.RunID, objectCount, result.Width, result.Height)

	return &WorkflowResult{
		Success: true,
		Outputs: map[string]interface{}{
			"serial":       wctx.Request.Serial,
			"object_count": objectCount,
			"image_width":  result.Width,
			"image_height": result.Height,
			"entity_id":    analyzerEntity,
		},
	}, nil
}

func (w *PlateWorkflow) recordCount(wctx *WorkflowContext, count int) {
	if w.deps.Recorder == nil {
		return
	}
	if err := w.deps.Recorder.RecordObjectCount(wctx.Ctx, wctx.Request.Serial, count); err != nil {
		log.Printf("[%s] Failed to record object count: %v", wctx.RunID, err)
	}
}

// entityFor resolves an entity ID from a metadata override or derives it
// from the serial.
func entityFor(req plate.AnalyzeRequest, metaKey string, derive func(string) string) string {
	if req.Metadata != nil && req.Metadata[metaKey] != "" {
		return req.Metadata[metaKey]
	}
	return derive(req.Serial)
}
