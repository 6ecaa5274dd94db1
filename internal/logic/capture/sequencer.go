package capture

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/filter"
)

// Phase is the state of the capture sequencer.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCountingDown
	PhaseCapturing
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCountingDown:
		return "counting_down"
	case PhaseCapturing:
		return "capturing"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// RunConfig is the immutable configuration of one capture run, snapshotted
// from the selectors at the moment the user triggers capture. Later selector
// changes never affect a run in progress.
type RunConfig struct {
	Filter       filter.ID
	TimerSeconds int // 0 = no countdown
	Count        int // photos to take this run
}

// Photo is one encoded still produced during a run.
type Photo struct {
	Index   int // 1-based position within the batch
	TakenAt time.Time
	TraceID string
	Data    []byte // encoded PNG
}

// Event describes an observable sequencer transition, published to the
// status stream. During a countdown, Remaining walks from TimerSeconds down
// to 1; the tick that reaches 0 is published as a single Capturing event
// with Remaining 0 — there is no observable "countdown at zero" state.
type Event struct {
	Phase     Phase
	Remaining int
	Index     int
	Total     int
}

// Snapshot is a point-in-time view of the sequencer for display.
type Snapshot struct {
	Phase     Phase
	Remaining int // valid while counting down
	Index     int // 1-based current photo, valid while a run is active
	Total     int
	Taken     int
}

// StillFunc produces one encoded still of the current live frame with the
// given filter applied. It is invoked exactly once per photo, never
// concurrently within a run.
type StillFunc func(f filter.ID, index int) (Photo, error)

// ErrRunActive is returned by Start while a run is in progress. The
// triggering control is disabled during a run, so hitting this is a
// defensive invariant rather than a normal user path.
var ErrRunActive = errors.New("capture: a run is already active")

// Sequencer drives a capture run through its phases:
//
//	Idle -> CountingDown -> Capturing -> (CountingDown | Capturing | Complete)
//
// When TimerSeconds > 0 a full countdown precedes every photo of the batch,
// so multi-photo runs give the user a consistent per-shot cue instead of a
// rapid unannounced burst after the first shot. With TimerSeconds == 0
// photos are captured back to back with no countdown phase observable.
//
// All transitions happen on the run goroutine; observers read Snapshot.
// At most one run is active at a time.
type Sequencer struct {
	still      StillFunc
	tick       time.Duration
	notify     func(Event) // optional, never gates sequencing
	onComplete func([]Photo)

	mu        sync.Mutex
	phase     Phase
	remaining int
	index     int
	total     int
	photos    []Photo
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewSequencer creates a sequencer. tick is the countdown interval (one
// second in production, shortened in tests). notify and onComplete may be
// nil; onComplete receives the finished batch before the sequencer returns
// to Idle.
func NewSequencer(still StillFunc, tick time.Duration, notify func(Event), onComplete func([]Photo)) *Sequencer {
	if tick <= 0 {
		tick = time.Second
	}
	return &Sequencer{
		still:      still,
		tick:       tick,
		notify:     notify,
		onComplete: onComplete,
		phase:      PhaseIdle,
	}
}

// Start begins a run with the given configuration. Returns ErrRunActive if a
// run is already in progress, leaving that run untouched. The run proceeds
// asynchronously; cancelling ctx aborts it.
func (s *Sequencer) Start(ctx context.Context, cfg RunConfig) error {
	if cfg.Count < 1 {
		return fmt.Errorf("capture: photo count must be >= 1, got %d", cfg.Count)
	}
	if cfg.TimerSeconds < 0 {
		return fmt.Errorf("capture: timer must be >= 0, got %d", cfg.TimerSeconds)
	}

	s.mu.Lock()
	if s.phase != PhaseIdle {
		s.mu.Unlock()
		return ErrRunActive
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.total = cfg.Count
	s.index = 1
	s.photos = nil
	if cfg.TimerSeconds > 0 {
		s.phase = PhaseCountingDown
		s.remaining = cfg.TimerSeconds
	} else {
		s.phase = PhaseCapturing
		s.remaining = 0
	}
	ev := s.eventLocked()
	done := s.done
	s.mu.Unlock()

	debug.Run(string(cfg.Filter), cfg.TimerSeconds, cfg.Count)
	s.emit(ev)

	go s.run(runCtx, cfg, done)
	return nil
}

// Abort cancels the active run, discarding any partial results. It blocks
// until the run goroutine has fully stopped, so no stray tick can mutate
// state after Abort returns. No-op when idle.
func (s *Sequencer) Abort() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	if done != nil {
		<-done
	}
}

// Snapshot returns the current sequencing state for display.
func (s *Sequencer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Phase:     s.phase,
		Remaining: s.remaining,
		Index:     s.index,
		Total:     s.total,
		Taken:     len(s.photos),
	}
}

// run executes one capture run. It is the only goroutine that mutates
// sequencing state while the run is active.
func (s *Sequencer) run(ctx context.Context, cfg RunConfig, done chan struct{}) {
	defer close(done)

	var ticker *time.Ticker
	if cfg.TimerSeconds > 0 {
		ticker = time.NewTicker(s.tick)
		defer ticker.Stop()
	}

	for idx := 1; idx <= cfg.Count; idx++ {
		if idx > 1 {
			s.beginPhoto(idx, cfg.TimerSeconds)
		}

		if cfg.TimerSeconds > 0 {
			// The previous capture took wall time; restart the interval so
			// the first tick of this countdown is a full one.
			ticker.Reset(s.tick)
			if !s.countdown(ctx, ticker) {
				s.abortRun()
				return
			}
		}

		photo, err := s.still(cfg.Filter, idx)
		if err != nil {
			debug.Error(fmt.Errorf("capture: photo %d/%d failed: %w", idx, cfg.Count, err))
			s.abortRun()
			return
		}
		if ctx.Err() != nil {
			// Aborted while the still was in flight: discard it.
			s.abortRun()
			return
		}

		s.mu.Lock()
		photo.Index = idx
		s.photos = append(s.photos, photo)
		s.mu.Unlock()
		debug.Shot(idx, cfg.Count, len(photo.Data))
	}

	photos := s.completeRun()
	if s.onComplete != nil {
		s.onComplete(photos)
	}
	s.reset()
}

// beginPhoto starts the countdown (or capture, with no timer) for the next
// photo of the batch.
func (s *Sequencer) beginPhoto(idx, timerSeconds int) {
	s.mu.Lock()
	s.index = idx
	if timerSeconds > 0 {
		debug.Phase(s.phase.String(), PhaseCountingDown.String())
		s.phase = PhaseCountingDown
		s.remaining = timerSeconds
	} else {
		s.phase = PhaseCapturing
		s.remaining = 0
	}
	ev := s.eventLocked()
	s.mu.Unlock()
	s.emit(ev)
}

// countdown consumes ticks until the counter reaches zero. The tick that
// brings it to zero flips the phase to Capturing inside the same critical
// section, so remaining == 0 is never observable while counting down.
// Returns false if the run was aborted.
func (s *Sequencer) countdown(ctx context.Context, ticker *time.Ticker) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}

		s.mu.Lock()
		s.remaining--
		rem := s.remaining
		if rem <= 0 {
			debug.Phase(PhaseCountingDown.String(), PhaseCapturing.String())
			s.phase = PhaseCapturing
			s.remaining = 0
		}
		ev := s.eventLocked()
		idx, total := s.index, s.total
		s.mu.Unlock()

		debug.Countdown(rem, idx, total)
		s.emit(ev)

		if rem <= 0 {
			return true
		}
	}
}

// abortRun discards partial results and returns the sequencer to Idle.
// Partial batches are never handed to the session.
func (s *Sequencer) abortRun() {
	s.mu.Lock()
	taken := len(s.photos)
	cancel := s.cancel
	s.clearLocked()
	ev := s.eventLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	debug.Live("Run aborted, %d partial photo(s) discarded", taken)
	s.emit(ev)
}

// completeRun marks the run complete and returns the finished batch.
func (s *Sequencer) completeRun() []Photo {
	s.mu.Lock()
	debug.Phase(s.phase.String(), PhaseComplete.String())
	s.phase = PhaseComplete
	photos := s.photos
	ev := s.eventLocked()
	s.mu.Unlock()

	debug.Info("Run complete: %d photo(s)", len(photos))
	s.emit(ev)
	return photos
}

// reset returns the sequencer to Idle after the batch has been handed off.
func (s *Sequencer) reset() {
	s.mu.Lock()
	cancel := s.cancel
	s.clearLocked()
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

func (s *Sequencer) clearLocked() {
	s.phase = PhaseIdle
	s.remaining = 0
	s.index = 0
	s.total = 0
	s.photos = nil
	s.cancel = nil
	s.done = nil
}

func (s *Sequencer) eventLocked() Event {
	return Event{
		Phase:     s.phase,
		Remaining: s.remaining,
		Index:     s.index,
		Total:     s.total,
	}
}

func (s *Sequencer) emit(ev Event) {
	if s.notify != nil {
		s.notify(ev)
	}
}
