// Package metrics holds the Prometheus collectors for the analyzer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan outcome labels
const (
	StatusOK           = "ok"
	StatusEmpty        = "empty"
	StatusFetchError   = "fetch_error"
	StatusDecodeError  = "decode_error"
	StatusPublishError = "publish_error"
)

var (
	// ScansTotal counts plate analyses by outcome
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "plate_scans_total",
		Help: "Number of plate analyses by outcome.",
	}, []string{"status"})

	// ScanDuration observes the pixel-scan duration (excluding fetch and publish)
	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "plate_scan_duration_seconds",
		Help:    "Duration of the bounding-box pixel scan.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
	})

	// ObjectsDetected reports the object count of the latest analysis per printer
	ObjectsDetected = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "plate_objects_detected",
		Help: "Objects detected in the most recent plate analysis.",
	}, []string{"serial"})
)
