package camera

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Source is the high-level interface for the live video feed. It represents
// an abstract frame source, regardless of how frames are acquired
// (V4L2 webcam through GStreamer, generated test pattern, etc.).
//
// Lifecycle: Start exactly once per session, then Frame at will, then Stop.
// Stop is idempotent and safe on a never-started source. Once Start returns
// nil, Frame keeps working until Stop is called.
type Source interface {
	// Start begins frame acquisition. Frames arrive asynchronously; the
	// first one may take a moment after Start returns.
	Start(ctx context.Context) error

	// Frame returns a copy of the most recent frame, reflecting the live
	// feed at the instant of the call. Returns ErrNoFrame if no frame has
	// arrived yet (stream not ready).
	Frame() (*Frame, error)

	// Stats returns acquisition counters (thread-safe snapshot).
	Stats() Stats

	// Stop releases all underlying resources. Idempotent.
	Stop() error
}

// Stats contains frame source counters.
type Stats struct {
	FrameCount  uint64
	BytesRead   uint64
	FPSReal     float64
	LastFrameAt time.Time
	IsRunning   bool
}

// ErrNoFrame is returned by Frame when the stream has produced no frame yet.
// A capture attempt hitting this aborts rather than producing a blank image.
var ErrNoFrame = errors.New("camera: no frame available yet")

// ErrAlreadyStarted is returned by Start on a source that is already running.
var ErrAlreadyStarted = errors.New("camera: source already started")

// AcquisitionError reports that the live stream could not be started
// (no device, permission denied, device busy). It is not retriable within
// the session: the user fixes the cause externally and re-enters.
type AcquisitionError struct {
	Device string
	Err    error
}

func (e *AcquisitionError) Error() string {
	if e.Device == "" {
		return fmt.Sprintf("camera: acquisition failed: %v", e.Err)
	}
	return fmt.Sprintf("camera: acquisition failed on %s: %v", e.Device, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }
