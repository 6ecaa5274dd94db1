package camera

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// SyntheticSource generates a moving color gradient instead of reading a
// real webcam. It implements the same lifecycle as GstSource and is used
// for development on machines without a camera, and in tests.
type SyntheticSource struct {
	width  int
	height int
	fps    int

	mu      sync.RWMutex
	latest  *Frame
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started time.Time

	frameCount uint64
	bytesRead  uint64
}

// NewSyntheticSource creates a test-pattern source.
func NewSyntheticSource(width, height, fps int) *SyntheticSource {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if fps <= 0 {
		fps = 30
	}
	return &SyntheticSource{width: width, height: height, fps: fps}
}

// Start launches the pattern generator. The first frame is produced
// synchronously so Frame works immediately after Start.
func (s *SyntheticSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.started = time.Now()
	s.storeFrame(s.render(0))

	s.wg.Add(1)
	go s.run(runCtx)

	debug.Info("Synthetic camera started (%dx%d @ %d fps)", s.width, s.height, s.fps)
	return nil
}

func (s *SyntheticSource) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(time.Second / time.Duration(s.fps))
	defer ticker.Stop()

	tick := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tick++
			s.storeFrame(s.render(tick))
		}
	}
}

// render draws a gradient that shifts with the tick so that consecutive
// frames differ, which is what still-capture snapshot tests rely on.
func (s *SyntheticSource) render(tick int) []byte {
	data := make([]byte, s.width*s.height*3)
	for y := 0; y < s.height; y++ {
		for x := 0; x < s.width; x++ {
			i := (y*s.width + x) * 3
			data[i+0] = byte((x + tick) * 255 / s.width)
			data[i+1] = byte(y * 255 / s.height)
			data[i+2] = byte(tick * 7)
		}
	}
	return data
}

func (s *SyntheticSource) storeFrame(data []byte) {
	seq := atomic.AddUint64(&s.frameCount, 1)
	atomic.AddUint64(&s.bytesRead, uint64(len(data)))

	frame := &Frame{
		Seq:       seq,
		Timestamp: time.Now(),
		Width:     s.width,
		Height:    s.height,
		Data:      data,
		TraceID:   uuid.New().String(),
	}

	s.mu.Lock()
	s.latest = frame
	s.mu.Unlock()
}

// Frame returns a copy of the latest generated frame.
func (s *SyntheticSource) Frame() (*Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return nil, ErrNoFrame
	}
	return s.latest.Clone(), nil
}

// Stats returns generation counters.
func (s *SyntheticSource) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := atomic.LoadUint64(&s.frameCount)
	var fps float64
	if !s.started.IsZero() {
		if uptime := time.Since(s.started).Seconds(); uptime > 0 {
			fps = float64(count) / uptime
		}
	}
	var last time.Time
	if s.latest != nil {
		last = s.latest.Timestamp
	}
	return Stats{
		FrameCount:  count,
		BytesRead:   atomic.LoadUint64(&s.bytesRead),
		FPSReal:     fps,
		LastFrameAt: last,
		IsRunning:   s.cancel != nil,
	}
}

// Stop halts the generator. Idempotent.
func (s *SyntheticSource) Stop() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.cancel = nil
	s.latest = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()
	return nil
}
