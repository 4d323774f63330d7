// Package pano implements cyclic horizontal panning over a stitched mosaic.
package pano

import (
	"fmt"
	"image"
	"image/draw"
)

// View pans a mosaic by a single horizontal offset, wrapped modulo the
// mosaic width so the panorama is seamless at the ends. The offset always
// lands in [0, width).
type View struct {
	mosaic *image.RGBA
	offset int
}

func NewView(mosaic *image.RGBA) (*View, error) {
	if mosaic == nil || mosaic.Bounds().Dx() == 0 || mosaic.Bounds().Dy() == 0 {
		return nil, fmt.Errorf("pano: empty mosaic")
	}
	return &View{mosaic: mosaic}, nil
}

func (v *View) Width() int  { return v.mosaic.Bounds().Dx() }
func (v *View) Height() int { return v.mosaic.Bounds().Dy() }
func (v *View) Offset() int { return v.offset }

// SetOffset sets the pan position directly, typically from the pointer's
// horizontal coordinate. Any integer is accepted and wrapped into
// [0, width), including negatives.
func (v *View) SetOffset(x int) {
	w := v.Width()
	v.offset = ((x % w) + w) % w
}

// Pan shifts the current offset by dx, with the same wrap.
func (v *View) Pan(dx int) {
	v.SetOffset(v.offset + dx)
}

// Render returns the mosaic cyclically shifted by the current offset:
// mosaic[:, offset:] followed by mosaic[:, :offset]. At offset 0 the wrap
// slice is empty and the output equals the mosaic.
func (v *View) Render() *image.RGBA {
	w, h := v.Width(), v.Height()
	out := image.NewRGBA(image.Rect(0, 0, w, h))

	right := w - v.offset
	draw.Draw(out, image.Rect(0, 0, right, h), v.mosaic, image.Pt(v.offset, 0), draw.Src)
	if v.offset > 0 {
		draw.Draw(out, image.Rect(right, 0, w, h), v.mosaic, image.Pt(0, 0), draw.Src)
	}
	return out
}
