// Package scanner computes per-object bounding boxes from a printer's pick
// image, a bitmap whose pixel colors encode which printable object owns each
// pixel. The scan is a pure, single-pass min/max reduction: no I/O, no
// logging, no retained state between invocations.
package scanner

import (
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Box is the minimal axis-aligned rectangle enclosing all pixels of one
// identifier, as inclusive pixel coordinates.
type Box struct {
	MinX int `json:"min_x"`
	MinY int `json:"min_y"`
	MaxX int `json:"max_x"`
	MaxY int `json:"max_y"`
}

// widen grows the box to include (x, y).
func (b Box) widen(x, y int) Box {
	if x < b.MinX {
		b.MinX = x
	}
	if x > b.MaxX {
		b.MaxX = x
	}
	if y < b.MinY {
		b.MinY = y
	}
	if y > b.MaxY {
		b.MaxY = y
	}
	return b
}

// union is the axis-wise min/max of two boxes. It is associative and
// commutative, which is what makes partition-and-merge scanning exact.
func (b Box) union(o Box) Box {
	if o.MinX < b.MinX {
		b.MinX = o.MinX
	}
	if o.MaxX > b.MaxX {
		b.MaxX = o.MaxX
	}
	if o.MinY < b.MinY {
		b.MinY = o.MinY
	}
	if o.MaxY > b.MaxY {
		b.MaxY = o.MaxY
	}
	return b
}

// Result holds the outcome of one scan. Boxes has no entry for background
// and no entry for an identifier that never appears in the bitmap.
type Result struct {
	Width  int
	Height int
	Boxes  map[ObjectID]Box
}

// Scan visits every pixel of the bitmap once, decodes it with rule, and
// accumulates one bounding box per non-background identifier. Any rule error
// fails the whole scan: partial accumulation cannot be trusted once a pixel
// is misinterpreted.
func Scan(bm *Bitmap, rule DecodeRule) (*Result, error) {
	boxes, err := scanRows(bm, rule, 0, bm.height)
	if err != nil {
		return nil, err
	}
	return &Result{Width: bm.width, Height: bm.height, Boxes: boxes}, nil
}

// ScanParallel partitions the bitmap into row bands, scans them concurrently
// and merges the partial boxes. The output is identical to Scan for any
// worker count. workers <= 0 uses GOMAXPROCS.
func ScanParallel(bm *Bitmap, rule DecodeRule, workers int) (*Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > bm.height {
		workers = bm.height
	}
	if workers <= 1 {
		return Scan(bm, rule)
	}

	parts := make([]map[ObjectID]Box, workers)
	var g errgroup.Group
	rowsPer := (bm.height + workers - 1) / workers
	for i := 0; i < workers; i++ {
		y0 := i * rowsPer
		y1 := y0 + rowsPer
		if y1 > bm.height {
			y1 = bm.height
		}
		g.Go(func() error {
			boxes, err := scanRows(bm, rule, y0, y1)
			if err != nil {
				return err
			}
			parts[i] = boxes
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := parts[0]
	for _, part := range parts[1:] {
		mergeBoxes(merged, part)
	}
	return &Result{Width: bm.width, Height: bm.height, Boxes: merged}, nil
}

// Merge combines two results covering the same image via axis-wise min/max.
// Results produced from disjoint pixel partitions of one bitmap merge into
// the same result a sequential scan would have produced.
func Merge(a, b *Result) (*Result, error) {
	if a.Width != b.Width || a.Height != b.Height {
		return nil, fmt.Errorf("cannot merge results for %dx%d and %dx%d images", a.Width, a.Height, b.Width, b.Height)
	}
	merged := make(map[ObjectID]Box, len(a.Boxes)+len(b.Boxes))
	for id, box := range a.Boxes {
		merged[id] = box
	}
	mergeBoxes(merged, b.Boxes)
	return &Result{Width: a.Width, Height: a.Height, Boxes: merged}, nil
}

// scanRows accumulates boxes over rows [y0, y1).
func scanRows(bm *Bitmap, rule DecodeRule, y0, y1 int) (map[ObjectID]Box, error) {
	boxes := make(map[ObjectID]Box)
	for y := y0; y < y1; y++ {
		for x := 0; x < bm.width; x++ {
			id, background, err := rule(bm.At(x, y))
			if err != nil {
				return nil, fmt.Errorf("pixel (%d,%d): %w", x, y, err)
			}
			if background {
				continue
			}
			box, ok := boxes[id]
			if !ok {
				boxes[id] = Box{MinX: x, MinY: y, MaxX: x, MaxY: y}
				continue
			}
			boxes[id] = box.widen(x, y)
		}
	}
	return boxes, nil
}

func mergeBoxes(dst map[ObjectID]Box, src map[ObjectID]Box) {
	for id, box := range src {
		if existing, ok := dst[id]; ok {
			dst[id] = existing.union(box)
		} else {
			dst[id] = box
		}
	}
}
