// Package store persists captured frames as flat JPEG files named by pose.
//
// The file name is a pure function of (tilt, yaw). The capture session and
// the mosaic builder never exchange metadata; both recompute the same paths
// from the same grid.
package store

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/robosharks/photosphere/internal/pose"
)

// MosaicFile is the well-known name of the stitched output inside the
// data directory.
const MosaicFile = "stitched.jpg"

const jpegQuality = 95

// FramePath maps a pose to its file path under dir. Deterministic across
// runs: the same (tilt, yaw) always yields the same path.
func FramePath(dir string, p pose.Pose) string {
	return filepath.Join(dir, fmt.Sprintf("tilt%d_yaw%d.jpg", p.Tilt, p.Yaw))
}

type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.dir, 0755)
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) FramePath(p pose.Pose) string {
	return FramePath(s.dir, p)
}

func (s *Store) MosaicPath() string {
	return filepath.Join(s.dir, MosaicFile)
}

// SaveFrame encodes img to the deterministic path for p.
func (s *Store) SaveFrame(p pose.Pose, img image.Image) error {
	return writeJPEG(s.FramePath(p), img)
}

// LoadFrame decodes the frame stored for p. The error is os.ErrNotExist
// (wrapped) when no frame was persisted for that pose.
func (s *Store) LoadFrame(p pose.Pose) (image.Image, error) {
	f, err := os.Open(s.FramePath(p))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.FramePath(p), err)
	}
	return img, nil
}

// SaveMosaic writes the stitched output to its fixed path.
func (s *Store) SaveMosaic(img image.Image) error {
	return writeJPEG(s.MosaicPath(), img)
}

// LoadMosaic reads back a previously stitched output.
func (s *Store) LoadMosaic() (image.Image, error) {
	f, err := os.Open(s.MosaicPath())
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := jpeg.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.MosaicPath(), err)
	}
	return img, nil
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}
