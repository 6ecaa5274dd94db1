package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
)

// Mode is the overall state of the capture screen.
type Mode int

const (
	ModeLive      Mode = iota // previewing, capture available
	ModeReviewing             // holding a finished batch
)

func (m Mode) String() string {
	switch m {
	case ModeLive:
		return "live"
	case ModeReviewing:
		return "reviewing"
	default:
		return "unknown"
	}
}

var (
	// ErrNotEntered is returned when an operation needs a started session.
	ErrNotEntered = errors.New("session: not entered")
	// ErrNotReviewing is returned by Retake and Export outside review mode.
	ErrNotReviewing = errors.New("session: no batch to act on (not reviewing)")
)

// Controller owns the session: the frame source lifecycle, the current mode,
// and the finished batch. It mediates between the sequencer's output and the
// presentation layer, which only triggers transitions through these methods
// and reads state through Status.
type Controller struct {
	cam      camera.Source
	seq      *capture.Sequencer
	exporter Exporter
	max      int

	mu        sync.Mutex
	entered   bool
	mode      Mode
	batch     []capture.Photo
	review    chan struct{}
	runCtx    context.Context
	runCancel context.CancelFunc
}

// Params wires a Controller.
type Params struct {
	Camera    camera.Source
	Still     capture.StillFunc
	Exporter  Exporter
	MaxPhotos int           // upper bound for RunConfig.Count
	Tick      time.Duration // countdown tick interval
	Notify    func(capture.Event)
}

// NewController creates the session controller and its sequencer.
func NewController(p Params) *Controller {
	c := &Controller{
		cam:      p.Camera,
		exporter: p.Exporter,
		max:      p.MaxPhotos,
		mode:     ModeLive,
		review:   make(chan struct{}, 1),
	}
	c.seq = capture.NewSequencer(p.Still, p.Tick, p.Notify, c.finishRun)
	return c
}

// Enter starts the frame source and puts the session in live mode. The
// given ctx bounds the whole session: capture runs started later live on
// a context derived from it, not from the caller of TriggerCapture. A
// *camera.AcquisitionError from the source is returned as-is: it is not
// retriable here, the user fixes the cause and re-enters.
func (c *Controller) Enter(ctx context.Context) error {
	c.mu.Lock()
	if c.entered {
		c.mu.Unlock()
		return fmt.Errorf("session: already entered")
	}
	c.mu.Unlock()

	if err := c.cam.Start(ctx); err != nil {
		return err
	}

	c.mu.Lock()
	c.entered = true
	c.mode = ModeLive
	c.batch = nil
	c.runCtx, c.runCancel = context.WithCancel(ctx)
	c.mu.Unlock()

	debug.Mode(ModeLive.String())
	return nil
}

// TriggerCapture snapshots the selector values into cfg and starts a run.
// The run lives on the session context from Enter, so it keeps going after
// the caller returns (an HTTP handler answering 202, a button callback).
// Returns capture.ErrRunActive while a run is in progress.
func (c *Controller) TriggerCapture(cfg capture.RunConfig) error {
	c.mu.Lock()
	if !c.entered {
		c.mu.Unlock()
		return ErrNotEntered
	}
	if c.mode != ModeLive {
		c.mu.Unlock()
		return fmt.Errorf("session: capture only available in %s mode", ModeLive)
	}
	runCtx := c.runCtx
	c.mu.Unlock()

	if cfg.Count < 1 || cfg.Count > c.max {
		return fmt.Errorf("session: photo count must be between 1 and %d, got %d", c.max, cfg.Count)
	}

	return c.seq.Start(runCtx, cfg)
}

// finishRun receives the completed batch from the sequencer.
func (c *Controller) finishRun(photos []capture.Photo) {
	c.mu.Lock()
	c.mode = ModeReviewing
	c.batch = photos
	c.mu.Unlock()

	debug.Mode(ModeReviewing.String())
	select {
	case c.review <- struct{}{}:
	default:
	}
}

// AwaitReview blocks until a run completes and the session enters review
// mode, or ctx is cancelled. Used by the headless one-shot path.
func (c *Controller) AwaitReview(ctx context.Context) error {
	select {
	case <-c.review:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retake discards the reviewed batch and returns to live mode.
func (c *Controller) Retake() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeReviewing {
		return ErrNotReviewing
	}
	c.batch = nil
	c.mode = ModeLive
	debug.Mode(ModeLive.String())
	return nil
}

// Export hands each photo of the reviewed batch, in capture order, to the
// exporter. It does not mutate session state: the user can keep reviewing,
// export again, or retake afterwards. Returns the written paths.
func (c *Controller) Export() ([]string, error) {
	c.mu.Lock()
	if c.mode != ModeReviewing {
		c.mu.Unlock()
		return nil, ErrNotReviewing
	}
	batch := c.batch
	c.mu.Unlock()

	return c.exporter.Export(batch)
}

// Photo returns the encoded image at the 1-based index of the reviewed
// batch, or false if out of range or not reviewing.
func (c *Controller) Photo(index int) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mode != ModeReviewing || index < 1 || index > len(c.batch) {
		return nil, false
	}
	return c.batch[index-1].Data, true
}

// Status is a point-in-time view of the session for display.
type Status struct {
	Mode      Mode
	Run       capture.Snapshot
	BatchSize int
	Camera    camera.Stats
}

// Status returns the session state for display.
func (c *Controller) Status() Status {
	c.mu.Lock()
	mode := c.mode
	size := len(c.batch)
	c.mu.Unlock()

	return Status{
		Mode:      mode,
		Run:       c.seq.Snapshot(),
		BatchSize: size,
		Camera:    c.cam.Stats(),
	}
}

// Exit aborts any active run, stops the frame source (idempotent), and
// releases session state. Safe to call on a never-entered session.
func (c *Controller) Exit() error {
	c.mu.Lock()
	if c.runCancel != nil {
		c.runCancel()
		c.runCancel = nil
		c.runCtx = nil
	}
	c.mu.Unlock()

	c.seq.Abort()

	err := c.cam.Stop()

	c.mu.Lock()
	c.entered = false
	c.mode = ModeLive
	c.batch = nil
	c.mu.Unlock()

	return err
}
