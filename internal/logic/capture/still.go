package capture

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/logic/filter"
)

// Still produces encoded stills from the live feed. Each capture snapshots
// the frame at its own instant: in a multi-photo run, photo N and photo N+1
// each reflect the feed at their respective capture times, never a stale
// copy. The flash notifier is cosmetic and never gates the capture path.
type Still struct {
	cam     camera.Source
	onFlash func()
}

// NewStill creates a still-capture function over the given frame source.
// onFlash may be nil.
func NewStill(cam camera.Source, onFlash func()) *Still {
	return &Still{cam: cam, onFlash: onFlash}
}

// Capture grabs the current live frame, applies the filter, and returns the
// PNG-encoded result. If the stream has not produced a frame yet the error
// wraps camera.ErrNoFrame and the attempt fails rather than producing a
// blank image. Capture satisfies StillFunc.
func (s *Still) Capture(f filter.ID, index int) (Photo, error) {
	frame, err := s.cam.Frame()
	if err != nil {
		return Photo{}, fmt.Errorf("grab frame: %w", err)
	}

	img := filter.Apply(f, frame.ToImage())

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Photo{}, fmt.Errorf("encode png: %w", err)
	}

	if s.onFlash != nil {
		s.onFlash()
	}

	return Photo{
		Index:   index,
		TakenAt: frame.Timestamp,
		TraceID: frame.TraceID,
		Data:    buf.Bytes(),
	}, nil
}
