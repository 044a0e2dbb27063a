package publisher

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/plateworks/plate-analyzer/internal/homeassistant"
	"github.com/plateworks/plate-analyzer/internal/scanner"
	"github.com/plateworks/plate-analyzer/pkg/plate"
)

// Payload is the sensor state and attributes produced by one analysis. The
// sensor state is the object count; the attributes carry image dimensions and
// per-object name/bbox data.
type Payload struct {
	ImageWidth  int
	ImageHeight int
	Objects     map[string]plate.ObjectAttribute // keyed by ObjectId as string
}

// BuildPayload merges scanned bounding boxes with the object names reported
// by the upstream integration. Names drive the object set: an identifier the
// upstream never named is not published, and a named object missing from the
// image keeps its name with no bbox.
func BuildPayload(result *scanner.Result, names map[string]string) *Payload {
	objects := make(map[string]plate.ObjectAttribute, len(names))
	for id, name := range names {
		attr := plate.ObjectAttribute{Name: name}
		numeric, err := strconv.Atoi(id)
		if err == nil {
			if box, ok := result.Boxes[scanner.ObjectID(numeric)]; ok {
				attr.BBox = []int{box.MinX, box.MinY, box.MaxX, box.MaxY}
			}
		}
		objects[id] = attr
	}
	return &Payload{
		ImageWidth:  result.Width,
		ImageHeight: result.Height,
		Objects:     objects,
	}
}

// Empty is the payload published when the upstream reports no printable
// objects.
func Empty() *Payload {
	return &Payload{Objects: map[string]plate.ObjectAttribute{}}
}

// State returns the sensor state value (object count).
func (p *Payload) State() string {
	return strconv.Itoa(len(p.Objects))
}

// Attributes returns the published attribute map.
func (p *Payload) Attributes() map[string]interface{} {
	return map[string]interface{}{
		plate.AttrImageWidth:  p.ImageWidth,
		plate.AttrImageHeight: p.ImageHeight,
		plate.AttrObjects:     p.Objects,
		plate.AttrBBoxData:    p.BBoxData(),
	}
}

// BBoxData serializes the object map for ESPHome consumers:
// ID:name:min_x,min_y,max_x,max_y|... The bbox segment is empty for objects
// with no pixels. Entries are ordered by numeric identifier so repeated
// publishes of the same result are byte-identical.
func (p *Payload) BBoxData() string {
	if len(p.Objects) == 0 {
		return ""
	}
	ids := make([]string, 0, len(p.Objects))
	for id := range p.Objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, errA := strconv.Atoi(ids[i])
		b, errB := strconv.Atoi(ids[j])
		if errA != nil || errB != nil {
			return ids[i] < ids[j]
		}
		return a < b
	})

	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		attr := p.Objects[id]
		if len(attr.BBox) == 4 {
			parts = append(parts, fmt.Sprintf("%s:%s:%d,%d,%d,%d",
				id, attr.Name, attr.BBox[0], attr.BBox[1], attr.BBox[2], attr.BBox[3]))
		} else {
			parts = append(parts, fmt.Sprintf("%s:%s:", id, attr.Name))
		}
	}
	return strings.Join(parts, "|")
}

// Publisher pushes an analysis payload to the host platform
type Publisher interface {
	Publish(ctx context.Context, entityID string, payload *Payload) error
}

// EntityPublisher publishes through the home-automation REST API
type EntityPublisher struct {
	client *homeassistant.Client
}

// NewEntityPublisher creates a publisher backed by the platform API
func NewEntityPublisher(client *homeassistant.Client) *EntityPublisher {
	return &EntityPublisher{client: client}
}

// Publish writes the payload as the entity's state and attributes
func (ep *EntityPublisher) Publish(ctx context.Context, entityID string, payload *Payload) error {
	if err := ep.client.SetState(ctx, entityID, payload.State(), payload.Attributes()); err != nil {
		return fmt.Errorf("failed to publish %s: %w", entityID, err)
	}
	return nil
}

// LogPublisher writes payloads to the log instead of a platform. Used by the
// standalone binary.
type LogPublisher struct{}

// Publish logs the payload
func (LogPublisher) Publish(ctx context.Context, entityID string, payload *Payload) error {
	log.Printf("Publish %s: state=%s image=%dx%d bbox_data=%q",
		entityID, payload.State(), payload.ImageWidth, payload.ImageHeight, payload.BBoxData())
	return nil
}
