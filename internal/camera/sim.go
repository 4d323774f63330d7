package camera

import (
	"context"
	"fmt"
)

// SimOptions configures the simulated camera system.
type SimOptions struct {
	Cameras     int
	FrameWidth  int
	FrameHeight int

	// IncompleteAt marks capture indices whose frame arrives with the
	// completeness flag cleared.
	IncompleteAt map[int]bool

	// FaultAt marks capture indices at which the driver fails outright.
	FaultAt map[int]bool
}

// SimSystem is an in-memory camera system for rig-less runs and tests.
// Frames are deterministic synthetic gradients keyed by capture index, so
// every capture is distinguishable in the stitched output.
type SimSystem struct {
	cams []Camera
}

func NewSimSystem(opts SimOptions) *SimSystem {
	if opts.Cameras <= 0 {
		opts.Cameras = 1
	}
	if opts.FrameWidth <= 0 {
		opts.FrameWidth = 320
	}
	if opts.FrameHeight <= 0 {
		opts.FrameHeight = 240
	}
	s := &SimSystem{}
	for i := 0; i < opts.Cameras; i++ {
		s.cams = append(s.cams, &simCamera{
			id:   fmt.Sprintf("sim-%d", i),
			opts: opts,
		})
	}
	return s
}

func (s *SimSystem) Cameras() []Camera { return s.cams }
func (s *SimSystem) Close() error      { return nil }

type simCamera struct {
	id        string
	opts      SimOptions
	inited    bool
	acquiring bool
	captures  int

	// scratch is reused for every frame, like a real transport ring
	// buffer: data handed out via RawFrame is invalid after the next
	// capture.
	scratch []byte
}

func (c *simCamera) ID() string { return c.id }

func (c *simCamera) Init() error {
	if c.inited {
		return fmt.Errorf("sim camera %s: Init called twice", c.id)
	}
	c.inited = true
	return nil
}

func (c *simCamera) Deinit() error {
	if !c.inited {
		return fmt.Errorf("sim camera %s: Deinit without Init", c.id)
	}
	c.inited = false
	return nil
}

func (c *simCamera) BeginAcquisition() error {
	if !c.inited {
		return ErrNotInitialized
	}
	if c.acquiring {
		return fmt.Errorf("sim camera %s: acquisition already active", c.id)
	}
	c.acquiring = true
	return nil
}

func (c *simCamera) EndAcquisition() error {
	if !c.acquiring {
		return fmt.Errorf("sim camera %s: EndAcquisition without BeginAcquisition", c.id)
	}
	c.acquiring = false
	return nil
}

func (c *simCamera) NextFrame(ctx context.Context) (RawFrame, error) {
	if !c.acquiring {
		return nil, fmt.Errorf("sim camera %s: NextFrame outside acquisition", c.id)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx := c.captures
	c.captures++

	if c.opts.FaultAt[idx] {
		return nil, fmt.Errorf("sim camera %s: injected fault at capture %d", c.id, idx)
	}

	w, h := c.opts.FrameWidth, c.opts.FrameHeight
	if len(c.scratch) != w*h*3 {
		c.scratch = make([]byte, w*h*3)
	}
	fillGradient(c.scratch, w, h, idx)

	return &simFrame{
		width:    w,
		height:   h,
		complete: !c.opts.IncompleteAt[idx],
		pix:      c.scratch,
	}, nil
}

// fillGradient paints a horizontal ramp tinted per capture index.
func fillGradient(buf []byte, w, h, idx int) {
	tint := byte((idx * 29) % 256)
	for y := 0; y < h; y++ {
		row := y * w * 3
		for x := 0; x < w; x++ {
			o := row + x*3
			buf[o+0] = byte(x * 255 / w)
			buf[o+1] = byte(y * 255 / h)
			buf[o+2] = tint
		}
	}
}

type simFrame struct {
	width    int
	height   int
	complete bool
	pix      []byte
	released bool
}

func (f *simFrame) Width() int     { return f.width }
func (f *simFrame) Height() int    { return f.height }
func (f *simFrame) Complete() bool { return f.complete }

func (f *simFrame) Pixels() []byte {
	if f.released {
		panic("camera: Pixels after Release")
	}
	return f.pix
}

func (f *simFrame) Release() { f.released = true }
