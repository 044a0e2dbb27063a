package scanner

import "image/color"

// ObjectID is the opaque identifier the slicer assigns to one printable
// object on the plate. It is produced upstream; this package only tracks it.
type ObjectID int

// DecodeRule maps a pixel color to an object identifier, or reports the
// pixel as background. The rule must be deterministic and total; returning
// an error aborts the whole scan with no partial result.
type DecodeRule func(c color.NRGBA) (id ObjectID, background bool, err error)

// BGRRule is the upstream printer integration's pixel convention: fully
// transparent pixels are background, every opaque color packs its identifier
// in BGR byte order (id = B<<16 | G<<8 | R). This must match the upstream
// mapping exactly; a mismatch produces wrong boxes, not an error.
func BGRRule(c color.NRGBA) (ObjectID, bool, error) {
	if c.A == 0 {
		return 0, true, nil
	}
	return ObjectID(c.B)<<16 | ObjectID(c.G)<<8 | ObjectID(c.R), false, nil
}

// NewPaletteRule builds a strict decode rule from an explicit color palette.
// Transparent pixels are background; an opaque color missing from the palette
// fails the scan. Use this when anti-aliased or otherwise unexpected colors
// must not be guessed into an owning object.
func NewPaletteRule(palette map[color.NRGBA]ObjectID) DecodeRule {
	return func(c color.NRGBA) (ObjectID, bool, error) {
		if c.A == 0 {
			return 0, true, nil
		}
		id, ok := palette[c]
		if !ok {
			return 0, false, decodeErrorf("color #%02X%02X%02X%02X not in palette", c.R, c.G, c.B, c.A)
		}
		return id, false, nil
	}
}
