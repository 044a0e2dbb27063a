package publisher

import (
	"context"
	"reflect"
	"testing"

	"github.com/plateworks/plate-analyzer/internal/scanner"
	"github.com/plateworks/plate-analyzer/pkg/plate"
)

func TestBuildPayloadMergesNamesAndBoxes(t *testing.T) {
	result := &scanner.Result{
		Width:  256,
		Height: 256,
		Boxes: map[scanner.ObjectID]scanner.Box{
			1:  {MinX: 0, MinY: 0, MaxX: 4, MaxY: 2},
			2:  {MinX: 5, MinY: 5, MaxX: 9, MaxY: 9},
			99: {MinX: 1, MinY: 1, MaxX: 1, MaxY: 1}, // unnamed: not published
		},
	}
	names := map[string]string{
		"1": "Benchy",
		"2": "Calibration Cube",
		"3": "Phone Stand", // named but not on the plate image
	}

	payload := BuildPayload(result, names)

	if payload.State() != "3" {
		t.Errorf("state = %s, want 3", payload.State())
	}
	if payload.ImageWidth != 256 || payload.ImageHeight != 256 {
		t.Errorf("dimensions = %dx%d, want 256x256", payload.ImageWidth, payload.ImageHeight)
	}

	want := map[string]plate.ObjectAttribute{
		"1": {Name: "Benchy", BBox: []int{0, 0, 4, 2}},
		"2": {Name: "Calibration Cube", BBox: []int{5, 5, 9, 9}},
		"3": {Name: "Phone Stand"},
	}
	if !reflect.DeepEqual(payload.Objects, want) {
		t.Errorf("objects = %v, want %v", payload.Objects, want)
	}
}

func TestBBoxDataSerialization(t *testing.T) {
	payload := &Payload{
		ImageWidth:  512,
		ImageHeight: 512,
		Objects: map[string]plate.ObjectAttribute{
			"10": {Name: "Widget", BBox: []int{1, 2, 3, 4}},
			"2":  {Name: "Gadget", BBox: []int{5, 6, 7, 8}},
			"30": {Name: "Ghost"}, // no pixels, empty bbox segment
		},
	}

	got := payload.BBoxData()
	want := "2:Gadget:5,6,7,8|10:Widget:1,2,3,4|30:Ghost:"
	if got != want {
		t.Errorf("bbox_data = %q, want %q", got, want)
	}
}

func TestBBoxDataDeterministic(t *testing.T) {
	payload := &Payload{
		Objects: map[string]plate.ObjectAttribute{
			"3": {Name: "c", BBox: []int{0, 0, 1, 1}},
			"1": {Name: "a", BBox: []int{0, 0, 1, 1}},
			"2": {Name: "b", BBox: []int{0, 0, 1, 1}},
		},
	}
	first := payload.BBoxData()
	for i := 0; i < 10; i++ {
		if got := payload.BBoxData(); got != first {
			t.Fatalf("iteration %d: %q != %q", i, got, first)
		}
	}
}

func TestEmptyPayload(t *testing.T) {
	payload := Empty()
	if payload.State() != "0" {
		t.Errorf("state = %s, want 0", payload.State())
	}
	if payload.BBoxData() != "" {
		t.Errorf("bbox_data = %q, want empty", payload.BBoxData())
	}
	attrs := payload.Attributes()
	if attrs[plate.AttrImageWidth] != 0 || attrs[plate.AttrImageHeight] != 0 {
		t.Errorf("dimensions should be zero, got %v", attrs)
	}
}

func TestLogPublisher(t *testing.T) {
	// Log publisher never fails
	if err := (LogPublisher{}).Publish(context.Background(), "sensor.test", Empty()); err != nil {
		t.Errorf("Publish: %v", err)
	}
}
