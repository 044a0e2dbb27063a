package scanner

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder

	"github.com/disintegration/imaging"
)

// bytesPerPixel is the storage size of one pixel (NRGBA).
const bytesPerPixel = 4

// Bitmap is an immutable row-major RGBA pixel grid with origin top-left,
// x increasing right, y increasing down. It exists only for the duration of
// one scan; nothing mutates it after construction.
type Bitmap struct {
	width  int
	height int
	pix    []uint8 // width*height*4 bytes, NRGBA order
}

// NewBitmap wraps raw NRGBA pixel data. The pixel buffer length must equal
// width*height*4 exactly; truncated or padded buffers fail with a DecodeError
// rather than being silently clipped.
func NewBitmap(pix []uint8, width, height int) (*Bitmap, error) {
	if width <= 0 || height <= 0 {
		return nil, decodeErrorf("invalid dimensions %dx%d", width, height)
	}
	if want := width * height * bytesPerPixel; len(pix) != want {
		return nil, decodeErrorf("pixel buffer is %d bytes, want %d for %dx%d", len(pix), want, width, height)
	}
	return &Bitmap{width: width, height: height, pix: pix}, nil
}

// FromImage converts any decoded image into a Bitmap. The conversion goes
// through NRGBA so every supported color depth ends up in one pixel layout.
func FromImage(img image.Image) (*Bitmap, error) {
	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	return NewBitmap(nrgba.Pix, bounds.Dx(), bounds.Dy())
}

// DecodeBitmap decodes raw image bytes (PNG, JPEG, GIF) into a Bitmap.
func DecodeBitmap(data []byte) (*Bitmap, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeErrorf("unreadable image: %v", err)
	}
	return FromImage(img)
}

// Width returns the bitmap width in pixels.
func (b *Bitmap) Width() int { return b.width }

// Height returns the bitmap height in pixels.
func (b *Bitmap) Height() int { return b.height }

// At returns the pixel color at (x, y). Callers must stay in bounds.
func (b *Bitmap) At(x, y int) color.NRGBA {
	i := (y*b.width + x) * bytesPerPixel
	return color.NRGBA{R: b.pix[i], G: b.pix[i+1], B: b.pix[i+2], A: b.pix[i+3]}
}
