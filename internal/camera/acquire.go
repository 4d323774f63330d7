package camera

import (
	"context"
	"fmt"
	"image"

	"github.com/robosharks/photosphere/internal/pose"
)

// Frame is a decoded capture, tagged with the pose it was taken at.
// The pixel buffer is owned by the requester and never mutated after
// creation.
type Frame struct {
	Pose  pose.Pose
	Image *image.RGBA
}

// Acquire runs one acquisition cycle on cam and returns an owned frame.
//
// The acquisition cycle and the transport frame handle are released on
// every exit path. Transport errors and timeouts surface as ErrDriverFault;
// a frame the transport marks incomplete surfaces as ErrIncompleteFrame.
// Acquire never retries; skip-or-abort is the caller's decision.
func Acquire(ctx context.Context, cam Camera, p pose.Pose) (*Frame, error) {
	if err := cam.BeginAcquisition(); err != nil {
		return nil, &AcquireError{Pose: p, Wrapped: fmt.Errorf("%w: begin acquisition: %v", ErrDriverFault, err)}
	}
	defer cam.EndAcquisition()

	raw, err := cam.NextFrame(ctx)
	if err != nil {
		return nil, &AcquireError{Pose: p, Wrapped: fmt.Errorf("%w: next frame: %v", ErrDriverFault, err)}
	}
	defer raw.Release()

	if !raw.Complete() {
		return nil, &AcquireError{Pose: p, Wrapped: ErrIncompleteFrame}
	}

	// Copy out before Release invalidates the transport buffer.
	img := rgbToRGBA(raw.Pixels(), raw.Width(), raw.Height())
	return &Frame{Pose: p, Image: img}, nil
}

func rgbToRGBA(rgb []byte, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		src := y * w * 3
		dst := y * img.Stride
		for x := 0; x < w; x++ {
			img.Pix[dst+0] = rgb[src+0]
			img.Pix[dst+1] = rgb[src+1]
			img.Pix[dst+2] = rgb[src+2]
			img.Pix[dst+3] = 0xff
			src += 3
			dst += 4
		}
	}
	return img
}
