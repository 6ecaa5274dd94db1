package camera

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// GstSource acquires frames from a V4L2 webcam through GStreamer.
//
// Pipeline:
//
//	v4l2src → videoconvert → videoscale → videorate → capsfilter(RGB) → appsink
//
// The appsink keeps only the latest buffer (max-buffers=1, drop=true): the
// booth is a latest-frame consumer, stale frames are worthless.
type GstSource struct {
	device string
	width  int
	height int
	fps    int

	mu       sync.RWMutex
	pipeline *gst.Pipeline
	appsink  *app.Sink
	latest   *Frame
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	started  time.Time

	frameCount uint64
	bytesRead  uint64
}

// GstConfig contains the webcam source configuration.
type GstConfig struct {
	Device string // e.g., "/dev/video0"
	Width  int
	Height int
	FPS    int
}

// NewGstSource creates a webcam source with fail-fast validation.
// GStreamer availability is verified at construction time.
func NewGstSource(cfg GstConfig) (*GstSource, error) {
	if cfg.Device == "" {
		return nil, fmt.Errorf("camera: device path is required")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("camera: invalid resolution %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.FPS <= 0 || cfg.FPS > 60 {
		return nil, fmt.Errorf("camera: invalid FPS %d (must be 1-60)", cfg.FPS)
	}

	if err := checkGStreamerAvailable(); err != nil {
		return nil, fmt.Errorf("camera: GStreamer not available: %w", err)
	}

	return &GstSource{
		device: cfg.Device,
		width:  cfg.Width,
		height: cfg.Height,
		fps:    cfg.FPS,
	}, nil
}

// Start builds and starts the pipeline. A failure to reach PLAYING state
// (missing device, permission denied, device busy) is reported as an
// *AcquisitionError.
func (s *GstSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	debug.Step(1, "Building GStreamer pipeline")
	debug.Value("Device", s.device)
	debug.Value("Resolution", fmt.Sprintf("%dx%d", s.width, s.height))
	debug.Value("FPS", s.fps)

	pipeline, appsink, err := s.buildPipeline()
	if err != nil {
		return &AcquisitionError{Device: s.device, Err: err}
	}

	appsink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		_ = pipeline.SetState(gst.StateNull)
		return &AcquisitionError{Device: s.device, Err: fmt.Errorf("start pipeline: %w", err)}
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.pipeline = pipeline
	s.appsink = appsink
	s.cancel = cancel
	s.started = time.Now()

	s.wg.Add(1)
	go s.watchBus(runCtx, pipeline)

	debug.Info("Camera started (%s, %dx%d @ %d fps)", s.device, s.width, s.height, s.fps)
	return nil
}

func (s *GstSource) buildPipeline() (*gst.Pipeline, *app.Sink, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, nil, fmt.Errorf("create pipeline: %w", err)
	}

	src, err := gst.NewElement("v4l2src")
	if err != nil {
		return nil, nil, fmt.Errorf("create v4l2src: %w", err)
	}
	src.SetProperty("device", s.device)

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, nil, fmt.Errorf("create videoconvert: %w", err)
	}

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, nil, fmt.Errorf("create videoscale: %w", err)
	}

	rate, err := gst.NewElement("videorate")
	if err != nil {
		return nil, nil, fmt.Errorf("create videorate: %w", err)
	}
	rate.SetProperty("drop-only", true) // only drop frames, never duplicate

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, nil, fmt.Errorf("create capsfilter: %w", err)
	}
	capsStr := fmt.Sprintf("video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/1",
		s.width, s.height, s.fps)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, nil, fmt.Errorf("create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)    // no clock sync, real-time preview
	appsink.SetProperty("max-buffers", 1) // keep only latest frame
	appsink.SetProperty("drop", true)

	pipeline.AddMany(src, converter, scaler, rate, capsfilter, appsink.Element)
	if err := gst.ElementLinkMany(src, converter, scaler, rate, capsfilter, appsink.Element); err != nil {
		return nil, nil, fmt.Errorf("link pipeline elements: %w", err)
	}

	return pipeline, appsink, nil
}

// onNewSample is called by GStreamer for each decoded frame. The buffer is
// copied (GStreamer reuses it) and stored as the latest frame.
func (s *GstSource) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}
	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	seq := atomic.AddUint64(&s.frameCount, 1)
	atomic.AddUint64(&s.bytesRead, uint64(len(frameData)))

	frame := &Frame{
		Seq:       seq,
		Timestamp: time.Now(),
		Width:     s.width,
		Height:    s.height,
		Data:      frameData,
		TraceID:   uuid.New().String(),
	}

	s.mu.Lock()
	s.latest = frame
	s.mu.Unlock()

	return gst.FlowOK
}

// watchBus monitors the pipeline bus until the source is stopped. Webcam
// errors after a successful start are logged; the session keeps its last
// frame and the user restarts the session to recover.
func (s *GstSource) watchBus(ctx context.Context, pipeline *gst.Pipeline) {
	defer s.wg.Done()

	bus := pipeline.GetPipelineBus()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg := bus.TimedPop(50 * time.Millisecond)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageEOS:
			debug.Info("Camera: end of stream")
			return
		case gst.MessageError:
			gerr := msg.ParseError()
			debug.Error(fmt.Errorf("camera: pipeline error: %s (%s)", gerr.Error(), gerr.DebugString()))
			return
		}
	}
}

// Frame returns a copy of the latest frame.
func (s *GstSource) Frame() (*Frame, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return nil, ErrNoFrame
	}
	return s.latest.Clone(), nil
}

// Stats returns acquisition counters.
func (s *GstSource) Stats() Stats {
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

// Stop shuts down the pipeline and releases the device. Idempotent.
func (s *GstSource) Stop() error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	pipeline := s.pipeline
	s.cancel = nil
	s.pipeline = nil
	s.appsink = nil
	s.latest = nil
	s.mu.Unlock()

	cancel()
	s.wg.Wait()

	if err := pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("camera: stop pipeline: %w", err)
	}

	debug.Info("Camera stopped (%d frames)", atomic.LoadUint64(&s.frameCount))
	return nil
}

// checkGStreamerAvailable verifies GStreamer is installed and working.
// Fail-fast validation run at construction time.
func checkGStreamerAvailable() error {
	gst.Init(nil)

	elem, err := gst.NewElement("fakesrc")
	if err != nil {
		return fmt.Errorf("GStreamer not available or not properly installed: %w", err)
	}
	elem.SetState(gst.StateNull)

	return nil
}
