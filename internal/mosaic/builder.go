// Package mosaic assembles persisted frames into one composite image by
// naive concatenation: frames are assumed pre-registered by the physical
// rig geometry, so there is no blending, resampling, or alignment.
package mosaic

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	"github.com/robosharks/photosphere/internal/pose"
	"github.com/robosharks/photosphere/internal/store"
)

var (
	// ErrNoFrames indicates no stored frame decoded for any pose in the grid.
	ErrNoFrames = errors.New("mosaic: no frames to stitch")

	// ErrDimensionMismatch indicates frames of differing heights in one row,
	// or rows of differing widths. The naive concatenation contract has no
	// defined output for that input, so it is surfaced rather than papered
	// over with cropping or resampling.
	ErrDimensionMismatch = errors.New("mosaic: frame dimension mismatch")
)

// Mosaic is the stitched composite plus an account of which poses
// contributed. Skipped poses show up as literal missing pixels in the
// output, never interpolated.
type Mosaic struct {
	Image   *image.RGBA
	Used    []pose.Pose
	Skipped []pose.Pose
	Rows    int
}

type Builder struct {
	st *store.Store
}

func NewBuilder(st *store.Store) *Builder {
	return &Builder{st: st}
}

// Build reads frames back by the same deterministic keys the capture
// session wrote them under, concatenates each tilt row left to right in
// yaw order, then stacks non-empty rows top to bottom in tilt order.
// Absent or corrupt files are skipped; a row with zero decoded frames is
// dropped. Build fails with ErrNoFrames only when every row is empty.
func (b *Builder) Build(tilts, yaws []int) (*Mosaic, error) {
	if _, err := pose.Build(tilts, yaws); err != nil {
		return nil, err
	}

	m := &Mosaic{}
	var rows []*image.RGBA

	for _, tilt := range tilts {
		var frames []image.Image
		for _, yaw := range yaws {
			p := pose.Pose{Yaw: yaw, Tilt: tilt}
			img, err := b.st.LoadFrame(p)
			if err != nil {
				m.Skipped = append(m.Skipped, p)
				continue
			}
			frames = append(frames, img)
			m.Used = append(m.Used, p)
		}
		if len(frames) == 0 {
			continue
		}
		row, err := hconcat(frames, tilt)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, ErrNoFrames
	}

	img, err := vconcat(rows)
	if err != nil {
		return nil, err
	}
	m.Image = img
	m.Rows = len(rows)
	return m, nil
}

func hconcat(frames []image.Image, tilt int) (*image.RGBA, error) {
	height := frames[0].Bounds().Dy()
	width := 0
	for _, f := range frames {
		if f.Bounds().Dy() != height {
			return nil, fmt.Errorf("%w: heights %d and %d in row tilt=%d",
				ErrDimensionMismatch, height, f.Bounds().Dy(), tilt)
		}
		width += f.Bounds().Dx()
	}

	row := image.NewRGBA(image.Rect(0, 0, width, height))
	x := 0
	for _, f := range frames {
		w := f.Bounds().Dx()
		draw.Draw(row, image.Rect(x, 0, x+w, height), f, f.Bounds().Min, draw.Src)
		x += w
	}
	return row, nil
}

func vconcat(rows []*image.RGBA) (*image.RGBA, error) {
	width := rows[0].Bounds().Dx()
	height := 0
	for _, r := range rows {
		if r.Bounds().Dx() != width {
			return nil, fmt.Errorf("%w: row widths %d and %d",
				ErrDimensionMismatch, width, r.Bounds().Dx())
		}
		height += r.Bounds().Dy()
	}

	out := image.NewRGBA(image.Rect(0, 0, width, height))
	y := 0
	for _, r := range rows {
		h := r.Bounds().Dy()
		draw.Draw(out, image.Rect(0, y, width, y+h), r, image.Point{}, draw.Src)
		y += h
	}
	return out, nil
}
