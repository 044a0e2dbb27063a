package plate

import (
	"fmt"
	"strings"
)

// AnalyzeRequest represents a request to analyze a printer's build plate
type AnalyzeRequest struct {
	Serial   string            `json:"serial"`
	Job      string            `json:"job"` // plate_analysis
	Metadata map[string]string `json:"metadata,omitempty"`
}

// AnalyzeResponse represents the response from triggering an analysis
type AnalyzeResponse struct {
	RunID     string `json:"run_id"`
	SeenCount int    `json:"seen_count"`
}

// JobType constants
const (
	JobPlateAnalysis = "plate_analysis"
)

// Metadata keys recognized by the plate analysis workflow. Each overrides
// the entity ID that would otherwise be derived from the printer serial.
const (
	MetaPrintableObjectsEntity = "printable_objects_entity"
	MetaPickImageEntity        = "pick_image_entity"
	MetaAnalyzerEntity         = "analyzer_entity"
)

// ObjectAttribute is one entry of the published "objects" attribute. BBox is
// [min_x, min_y, max_x, max_y] in inclusive pixel coordinates; it is omitted
// when the object has no pixels in the pick image.
type ObjectAttribute struct {
	Name string `json:"name"`
	BBox []int  `json:"bbox,omitempty"`
}

// Published attribute keys (match the upstream integration's consumers)
const (
	AttrImageWidth  = "image_width"
	AttrImageHeight = "image_height"
	AttrObjects     = "objects"
	AttrBBoxData    = "bbox_data"
)

// PrintableObjectsEntity derives the upstream sensor entity ID for a serial.
func PrintableObjectsEntity(serial string) string {
	return fmt.Sprintf("sensor.%s_printable_objects", strings.ToLower(serial))
}

// PickImageEntity derives the upstream image entity ID for a serial.
func PickImageEntity(serial string) string {
	return fmt.Sprintf("image.%s_pick_image", strings.ToLower(serial))
}

// AnalyzerEntity derives the entity ID this service publishes to.
func AnalyzerEntity(serial string) string {
	return fmt.Sprintf("sensor.%s_plate_analyzer", strings.ToLower(serial))
}
