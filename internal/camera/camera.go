// Package camera defines the driver contract for the capture rig's camera
// and the single-frame acquisition path on top of it.
//
// The vendor SDK is reached only through the System/Camera/RawFrame
// interfaces. A System is created once at startup and closed at shutdown;
// it is never ambient global state. Each Camera handle must be Init'd
// before use and Deinit'd after, and the two calls must be paired.
package camera

import "context"

// RawFrame is a transport-owned frame buffer. Its pixel data is valid only
// until Release is called; callers that want to keep the pixels must copy
// them out first. The driver may reuse the underlying memory immediately
// after Release.
type RawFrame interface {
	Width() int
	Height() int

	// Complete reports whether the transport delivered the whole frame.
	Complete() bool

	// Pixels returns the frame data as packed 8-bit RGB, row-major,
	// 3 bytes per pixel.
	Pixels() []byte

	Release()
}

// Camera is one enumerated camera handle.
//
// Init/Deinit are paired and non-reentrant. BeginAcquisition and
// EndAcquisition bracket every single-frame capture. NextFrame blocks until
// a frame arrives or the driver-defined timeout elapses; a hung driver call
// blocks the pipeline, which is acceptable in this operator-paced design.
type Camera interface {
	ID() string
	Init() error
	Deinit() error
	BeginAcquisition() error
	EndAcquisition() error
	NextFrame(ctx context.Context) (RawFrame, error)
}

// System owns the driver-level state and enumerates camera handles.
type System interface {
	Cameras() []Camera
	Close() error
}
