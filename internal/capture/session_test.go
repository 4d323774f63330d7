package capture

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/robosharks/photosphere/internal/camera"
	"github.com/robosharks/photosphere/internal/mosaic"
	"github.com/robosharks/photosphere/internal/pose"
	"github.com/robosharks/photosphere/internal/store"
)

var (
	testTilts = []int{-30, 0, 30}
	testYaws  = []int{0, 90}
)

func newSession(t *testing.T, opts camera.SimOptions) (*Session, *store.Store) {
	t.Helper()
	grid, err := pose.Build(testTilts, testYaws)
	if err != nil {
		t.Fatal(err)
	}
	st := store.New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	opts.FrameWidth = 8
	opts.FrameHeight = 6
	sys := camera.NewSimSystem(opts)
	return New(grid, sys.Cameras()[0], st), st
}

type countingObserver struct {
	started, persisted, failed int
}

func (o *countingObserver) PoseStarted(int, pose.Pose)           { o.started++ }
func (o *countingObserver) PosePersisted(int, pose.Pose, string) { o.persisted++ }
func (o *countingObserver) PoseFailed(int, pose.Pose, error)     { o.failed++ }

func TestRunAllPosesPersisted(t *testing.T) {
	s, st := newSession(t, camera.SimOptions{})
	obs := &countingObserver{}
	s.AddObserver(obs)

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if s.State() != Complete {
		t.Errorf("state = %s, want complete", s.State())
	}
	if len(res.Persisted) != 6 || len(res.Failed) != 0 {
		t.Errorf("persisted=%d failed=%d, want 6/0", len(res.Persisted), len(res.Failed))
	}
	if obs.started != 6 || obs.persisted != 6 || obs.failed != 0 {
		t.Errorf("observer saw started=%d persisted=%d failed=%d", obs.started, obs.persisted, obs.failed)
	}

	for _, p := range res.Persisted {
		if _, err := os.Stat(st.FramePath(p)); err != nil {
			t.Errorf("missing persisted frame for %s: %v", p, err)
		}
	}
}

func TestRunSkipsIncompleteAndCompletes(t *testing.T) {
	// Grid is tilt-major, so (tilt=0, yaw=90) is capture index 3.
	s, st := newSession(t, camera.SimOptions{IncompleteAt: map[int]bool{3: true}})

	res, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if s.State() != Complete {
		t.Errorf("state = %s, want complete", s.State())
	}
	if len(res.Persisted) != 5 {
		t.Errorf("persisted %d frames, want 5", len(res.Persisted))
	}
	if len(res.Failed) != 1 {
		t.Fatalf("logged %d failed poses, want 1", len(res.Failed))
	}
	failed := res.Failed[0]
	if failed.Pose != (pose.Pose{Yaw: 90, Tilt: 0}) {
		t.Errorf("failed pose = %v", failed.Pose)
	}
	if !errors.Is(failed.Err, camera.ErrIncompleteFrame) {
		t.Errorf("failed pose error = %v", failed.Err)
	}

	// The tilt=0 row still stitches from the yaw=0 frame alone, and the
	// three rows keep uniform widths only if the gap drops the whole
	// column contract — so stitch just the tilt=0 row here.
	m, err := mosaic.NewBuilder(st).Build([]int{0}, testYaws)
	if err != nil {
		t.Fatalf("stitch after partial failure: %v", err)
	}
	if m.Rows != 1 || len(m.Used) != 1 {
		t.Errorf("rows=%d used=%d, want 1/1", m.Rows, len(m.Used))
	}
}

func TestRunAbortsOnDriverFault(t *testing.T) {
	s, st := newSession(t, camera.SimOptions{FaultAt: map[int]bool{2: true}})

	res, err := s.Run(context.Background())
	if !errors.Is(err, camera.ErrDriverFault) {
		t.Fatalf("expected ErrDriverFault, got %v", err)
	}
	if s.State() != Aborted {
		t.Errorf("state = %s, want aborted", s.State())
	}
	if !res.Aborted {
		t.Error("result not marked aborted")
	}
	if len(res.Persisted) != 2 {
		t.Errorf("persisted %d poses, want 2 (indices 0-1)", len(res.Persisted))
	}

	// Poses at and after the fault were never attempted.
	grid, _ := pose.Build(testTilts, testYaws)
	for _, p := range grid[2:] {
		if _, err := os.Stat(st.FramePath(p)); !errors.Is(err, os.ErrNotExist) {
			t.Errorf("pose %s should not have been persisted", p)
		}
	}
}

func TestRunOperatorPaced(t *testing.T) {
	s, _ := newSession(t, camera.SimOptions{})

	var advanced []pose.Pose
	s.SetAdvanceFunc(func(ctx context.Context, p pose.Pose) error {
		if got := s.State(); got != AwaitingAdvance {
			t.Errorf("advance called in state %s", got)
		}
		advanced = append(advanced, p)
		return nil
	})

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	grid, _ := pose.Build(testTilts, testYaws)
	if len(advanced) != len(grid) {
		t.Fatalf("advance fired %d times, want %d", len(advanced), len(grid))
	}
	for i, p := range grid {
		if advanced[i] != p {
			t.Errorf("advance %d for %v, want %v", i, advanced[i], p)
		}
	}
}

func TestRunAdvanceErrorAborts(t *testing.T) {
	s, _ := newSession(t, camera.SimOptions{})
	stop := errors.New("operator quit")
	s.SetAdvanceFunc(func(ctx context.Context, p pose.Pose) error {
		if p.Tilt == 0 {
			return stop
		}
		return nil
	})

	res, err := s.Run(context.Background())
	if !errors.Is(err, stop) {
		t.Fatalf("expected operator error, got %v", err)
	}
	if s.State() != Aborted || !res.Aborted {
		t.Error("session should be aborted")
	}
	if len(res.Persisted) != 2 {
		t.Errorf("persisted %d poses before abort, want 2", len(res.Persisted))
	}
}

func TestRunCanceledContext(t *testing.T) {
	s, _ := newSession(t, camera.SimOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if s.State() != Aborted {
		t.Errorf("state = %s, want aborted", s.State())
	}
}

// stallingCamera never delivers a frame; NextFrame waits out the context.
type stallingCamera struct {
	camera.Camera
}

func (c *stallingCamera) NextFrame(ctx context.Context) (camera.RawFrame, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRunAcquireTimeoutAborts(t *testing.T) {
	grid, err := pose.Build(testTilts, testYaws)
	if err != nil {
		t.Fatal(err)
	}
	st := store.New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	sys := camera.NewSimSystem(camera.SimOptions{FrameWidth: 8, FrameHeight: 6})
	s := New(grid, &stallingCamera{Camera: sys.Cameras()[0]}, st)
	s.SetAcquireTimeout(10 * time.Millisecond)

	res, err := s.Run(context.Background())
	if !errors.Is(err, camera.ErrDriverFault) {
		t.Fatalf("expected ErrDriverFault, got %v", err)
	}
	if s.State() != Aborted {
		t.Errorf("state = %s, want aborted", s.State())
	}
	if !res.Aborted || len(res.Persisted) != 0 {
		t.Errorf("aborted=%v persisted=%d, want true/0", res.Aborted, len(res.Persisted))
	}
}

func TestRunNotReusable(t *testing.T) {
	s, _ := newSession(t, camera.SimOptions{})
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Run(context.Background()); !errors.Is(err, ErrNotIdle) {
		t.Errorf("expected ErrNotIdle on second run, got %v", err)
	}
}

func TestSwitchCameraWhileAwaitingAdvance(t *testing.T) {
	grid, _ := pose.Build([]int{0}, testYaws)
	st := store.New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	sys := camera.NewSimSystem(camera.SimOptions{Cameras: 2, FrameWidth: 8, FrameHeight: 6})
	cams := sys.Cameras()

	s := New(grid, cams[0], st)
	switched := false
	s.SetAdvanceFunc(func(ctx context.Context, p pose.Pose) error {
		if !switched {
			switched = true
			return s.SwitchCamera(cams[1])
		}
		return nil
	})

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("run with camera switch failed: %v", err)
	}
	if s.State() != Complete {
		t.Errorf("state = %s, want complete", s.State())
	}
	// The old handle was deinitialized: a fresh Init on it must succeed.
	if err := cams[0].Init(); err != nil {
		t.Errorf("first camera still initialized after switch: %v", err)
	}
}

func TestSwitchCameraForbiddenAfterRun(t *testing.T) {
	s, _ := newSession(t, camera.SimOptions{})
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	other := camera.NewSimSystem(camera.SimOptions{}).Cameras()[0]
	if err := s.SwitchCamera(other); err == nil {
		t.Error("expected switch to fail once session is complete")
	}
}
