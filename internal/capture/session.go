// Package capture drives the pose-sequenced acquisition session: walk the
// pose grid in order, wait for the operator to reposition the rig, acquire
// one frame, persist it under its deterministic path, and move on.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robosharks/photosphere/internal/camera"
	"github.com/robosharks/photosphere/internal/pose"
	"github.com/robosharks/photosphere/internal/store"
)

// State is the session's position in its lifecycle.
type State int

const (
	Idle State = iota
	AwaitingAdvance
	Acquiring
	Persisted
	Complete
	Aborted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingAdvance:
		return "awaiting-advance"
	case Acquiring:
		return "acquiring"
	case Persisted:
		return "persisted"
	case Complete:
		return "complete"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// ErrNotIdle indicates Run was called on a session that already ran.
var ErrNotIdle = errors.New("capture: session is not idle")

// AdvanceFunc blocks until the operator confirms the rig is physically
// repositioned for p. A nil AdvanceFunc means unattended mode: every pose
// proceeds immediately. Returning an error aborts the session.
type AdvanceFunc func(ctx context.Context, p pose.Pose) error

// Observer receives per-pose progress. Failed poses are always reported so
// the operator can decide whether to re-run them before stitching.
type Observer interface {
	PoseStarted(index int, p pose.Pose)
	PosePersisted(index int, p pose.Pose, path string)
	PoseFailed(index int, p pose.Pose, err error)
}

// FailedPose records a pose that was skipped after a recoverable
// acquisition failure.
type FailedPose struct {
	Pose pose.Pose
	Err  error
}

// Result summarizes a finished (or aborted) session.
type Result struct {
	Persisted []pose.Pose
	Failed    []FailedPose
	Aborted   bool
}

// Session owns one camera handle exclusively for its duration and walks
// the grid exactly once. It is not safe for concurrent use; the advance
// callback runs on the Run goroutine, which is also the only place camera
// switching is allowed.
type Session struct {
	grid      []pose.Pose
	cam       camera.Camera
	st        *store.Store
	advance   AdvanceFunc
	observers []Observer

	state     State
	cursor    int
	camInited bool
	timeout   time.Duration
}

func New(grid []pose.Pose, cam camera.Camera, st *store.Store) *Session {
	return &Session{grid: grid, cam: cam, st: st, state: Idle}
}

func (s *Session) SetAdvanceFunc(f AdvanceFunc) { s.advance = f }
func (s *Session) AddObserver(o Observer)       { s.observers = append(s.observers, o) }

// SetAcquireTimeout bounds each single-frame acquisition. An expired
// timeout surfaces like any other driver failure and aborts the session.
func (s *Session) SetAcquireTimeout(d time.Duration) { s.timeout = d }

func (s *Session) State() State { return s.state }
func (s *Session) Cursor() int  { return s.cursor }

// SwitchCamera swaps the active camera handle. Permitted only while Idle
// or AwaitingAdvance; the current handle is deinitialized before the new
// one is initialized, so two active handles are never held at once.
func (s *Session) SwitchCamera(cam camera.Camera) error {
	if s.state != Idle && s.state != AwaitingAdvance {
		return fmt.Errorf("capture: cannot switch camera in state %s", s.state)
	}
	if s.camInited {
		if err := s.cam.Deinit(); err != nil {
			return fmt.Errorf("capture: deinit %s: %w", s.cam.ID(), err)
		}
		s.camInited = false
		if err := cam.Init(); err != nil {
			return fmt.Errorf("%w: init %s: %v", camera.ErrDriverFault, cam.ID(), err)
		}
		s.camInited = true
	}
	s.cam = cam
	return nil
}

// Run walks the grid. A frame the transport marks incomplete is logged as
// failed and the cursor still advances; a driver fault aborts the whole
// session and no further poses are attempted. The returned Result is valid
// in both cases.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if s.state != Idle {
		return nil, ErrNotIdle
	}

	res := &Result{}

	if err := s.cam.Init(); err != nil {
		s.state = Aborted
		res.Aborted = true
		return res, fmt.Errorf("%w: init %s: %v", camera.ErrDriverFault, s.cam.ID(), err)
	}
	s.camInited = true
	defer func() {
		if s.camInited {
			s.cam.Deinit()
			s.camInited = false
		}
	}()

	for s.cursor = 0; s.cursor < len(s.grid); s.cursor++ {
		p := s.grid[s.cursor]

		if s.advance != nil {
			s.state = AwaitingAdvance
			if err := s.advance(ctx, p); err != nil {
				s.state = Aborted
				res.Aborted = true
				return res, fmt.Errorf("capture: advance at %s: %w", p, err)
			}
		}
		if err := ctx.Err(); err != nil {
			s.state = Aborted
			res.Aborted = true
			return res, err
		}

		s.state = Acquiring
		for _, o := range s.observers {
			o.PoseStarted(s.cursor, p)
		}

		frame, err := s.acquireOne(ctx, p)
		if err != nil {
			if errors.Is(err, camera.ErrIncompleteFrame) {
				res.Failed = append(res.Failed, FailedPose{Pose: p, Err: err})
				for _, o := range s.observers {
					o.PoseFailed(s.cursor, p, err)
				}
				continue
			}
			s.state = Aborted
			res.Aborted = true
			for _, o := range s.observers {
				o.PoseFailed(s.cursor, p, err)
			}
			return res, err
		}

		if err := s.st.SaveFrame(p, frame.Image); err != nil {
			s.state = Aborted
			res.Aborted = true
			return res, fmt.Errorf("capture: persist %s: %w", p, err)
		}
		s.state = Persisted
		res.Persisted = append(res.Persisted, p)
		for _, o := range s.observers {
			o.PosePersisted(s.cursor, p, s.st.FramePath(p))
		}
	}

	s.state = Complete
	return res, nil
}

func (s *Session) acquireOne(ctx context.Context, p pose.Pose) (*camera.Frame, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	return camera.Acquire(ctx, s.cam, p)
}
