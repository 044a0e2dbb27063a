// Package picture converts pick images into JPEG previews and keeps the
// latest preview per printer in memory for the HTTP API to serve. No history
// is retained.
package picture

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF decoder
	_ "image/png"  // Register PNG decoder

	"github.com/disintegration/imaging"
)

// DefaultQuality matches the upstream integration's JPEG quality.
const DefaultQuality = 80

// ToJPEG converts raw image bytes into a JPEG preview. Transparent regions
// are flattened onto black, since JPEG carries no alpha.
func ToJPEG(data []byte, quality int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	background := imaging.New(bounds.Dx(), bounds.Dy(), color.NRGBA{A: 0xFF})
	flat := imaging.Overlay(background, img, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
