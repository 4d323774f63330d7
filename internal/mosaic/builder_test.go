package mosaic

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robosharks/photosphere/internal/pose"
	"github.com/robosharks/photosphere/internal/store"
)

func newStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(t.TempDir())
	require.NoError(t, s.Init())
	return s
}

func writeFrame(t *testing.T, s *store.Store, p pose.Pose, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	require.NoError(t, s.SaveFrame(p, img))
}

func TestBuildEmptyDirectory(t *testing.T) {
	b := NewBuilder(newStore(t))
	_, err := b.Build([]int{-30, 0, 30}, []int{0, 90})
	assert.ErrorIs(t, err, ErrNoFrames)
}

func TestBuildSingleRow(t *testing.T) {
	s := newStore(t)
	writeFrame(t, s, pose.Pose{Yaw: 0, Tilt: 0}, 10, 8, color.RGBA{R: 0xff, A: 0xff})
	writeFrame(t, s, pose.Pose{Yaw: 90, Tilt: 0}, 10, 8, color.RGBA{G: 0xff, A: 0xff})

	m, err := NewBuilder(s).Build([]int{-30, 0, 30}, []int{0, 90})
	require.NoError(t, err)

	// Only tilt=0 has frames: exactly one row, two frames wide.
	assert.Equal(t, 1, m.Rows)
	assert.Equal(t, 20, m.Image.Bounds().Dx())
	assert.Equal(t, 8, m.Image.Bounds().Dy())
	assert.Len(t, m.Used, 2)
	assert.Len(t, m.Skipped, 4)
}

func TestBuildRowAndColumnOrder(t *testing.T) {
	s := newStore(t)
	// Distinct solid colors per pose; JPEG keeps solid regions close enough
	// to tell apart.
	colors := map[pose.Pose]color.RGBA{
		{Yaw: 0, Tilt: -30}:  {R: 0xc0, A: 0xff},
		{Yaw: 90, Tilt: -30}: {G: 0xc0, A: 0xff},
		{Yaw: 0, Tilt: 30}:   {B: 0xc0, A: 0xff},
		{Yaw: 90, Tilt: 30}:  {R: 0xc0, G: 0xc0, A: 0xff},
	}
	for p, c := range colors {
		writeFrame(t, s, p, 6, 4, c)
	}

	m, err := NewBuilder(s).Build([]int{-30, 30}, []int{0, 90})
	require.NoError(t, err)
	require.Equal(t, 2, m.Rows)
	require.Equal(t, 12, m.Image.Bounds().Dx())
	require.Equal(t, 8, m.Image.Bounds().Dy())

	// Top-left quadrant is tilt=-30/yaw=0 (red-ish), bottom-right is
	// tilt=30/yaw=90 (yellow-ish).
	r, g, _, _ := m.Image.At(2, 1).RGBA()
	assert.Greater(t, r, g, "top-left should come from the tilt=-30 yaw=0 frame")

	_, g2, b2, _ := m.Image.At(8, 6).RGBA()
	assert.Greater(t, g2, b2, "bottom-right should come from the tilt=30 yaw=90 frame")
}

func TestBuildSkipsGapsWithinRow(t *testing.T) {
	s := newStore(t)
	writeFrame(t, s, pose.Pose{Yaw: 0, Tilt: 0}, 10, 8, color.RGBA{R: 0xff, A: 0xff})
	// yaw=90 for tilt=0 missing: row is one frame wide, still valid.

	m, err := NewBuilder(s).Build([]int{0}, []int{0, 90})
	require.NoError(t, err)
	assert.Equal(t, 10, m.Image.Bounds().Dx())
	assert.Equal(t, []pose.Pose{{Yaw: 90, Tilt: 0}}, m.Skipped)
}

func TestBuildHeightMismatchInRow(t *testing.T) {
	s := newStore(t)
	writeFrame(t, s, pose.Pose{Yaw: 0, Tilt: 0}, 10, 8, color.RGBA{A: 0xff})
	writeFrame(t, s, pose.Pose{Yaw: 90, Tilt: 0}, 10, 6, color.RGBA{A: 0xff})

	_, err := NewBuilder(s).Build([]int{0}, []int{0, 90})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBuildRowWidthMismatch(t *testing.T) {
	s := newStore(t)
	// tilt=0 row has both frames, tilt=30 row only one: widths 20 vs 10.
	writeFrame(t, s, pose.Pose{Yaw: 0, Tilt: 0}, 10, 8, color.RGBA{A: 0xff})
	writeFrame(t, s, pose.Pose{Yaw: 90, Tilt: 0}, 10, 8, color.RGBA{A: 0xff})
	writeFrame(t, s, pose.Pose{Yaw: 0, Tilt: 30}, 10, 8, color.RGBA{A: 0xff})

	_, err := NewBuilder(s).Build([]int{0, 30}, []int{0, 90})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestBuildIgnoresCorruptFile(t *testing.T) {
	s := newStore(t)
	writeFrame(t, s, pose.Pose{Yaw: 0, Tilt: 0}, 10, 8, color.RGBA{A: 0xff})
	require.NoError(t, writeGarbage(s.FramePath(pose.Pose{Yaw: 90, Tilt: 0})))

	m, err := NewBuilder(s).Build([]int{0}, []int{0, 90})
	require.NoError(t, err)
	assert.Len(t, m.Used, 1)
	assert.Len(t, m.Skipped, 1)
}

func writeGarbage(path string) error {
	return os.WriteFile(path, []byte("not a jpeg"), 0644)
}

func TestBuildRejectsInvalidGrid(t *testing.T) {
	b := NewBuilder(newStore(t))
	_, err := b.Build(nil, []int{0})
	assert.Error(t, err)
}
