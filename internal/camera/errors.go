package camera

import (
	"errors"
	"fmt"

	"github.com/robosharks/photosphere/internal/pose"
)

// Domain errors for camera operations.
var (
	// ErrIncompleteFrame indicates the transport delivered a partial frame.
	// Recoverable: the pose is skipped and the session continues.
	ErrIncompleteFrame = errors.New("camera: incomplete frame from transport")

	// ErrDriverFault indicates the camera handle is invalid, disconnected,
	// or the driver failed. Fatal: the capture session aborts.
	ErrDriverFault = errors.New("camera: driver fault")

	// ErrNoCameras indicates enumeration found no devices.
	ErrNoCameras = errors.New("camera: no cameras detected")

	// ErrNotInitialized indicates a handle was used before Init.
	ErrNotInitialized = errors.New("camera: handle not initialized")
)

// AcquireError wraps an acquisition failure with the pose it occurred at.
type AcquireError struct {
	Pose    pose.Pose
	Wrapped error
}

func (e *AcquireError) Error() string {
	return fmt.Sprintf("acquire at %s: %v", e.Pose, e.Wrapped)
}

func (e *AcquireError) Unwrap() error {
	return e.Wrapped
}
