package flash

import (
	"sync"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
)

// Lamp drives the booth flash lamp through a single GPIO output.
// The lamp is a cosmetic cue: Fire never blocks the caller and never
// reports an error to the capture path.
type Lamp struct {
	gpio gpio.Driver
	pin  int
	hold time.Duration

	mu  sync.Mutex
	lit bool
	off *time.Timer
	gen uint64
}

// NewLamp creates a flash lamp on the given pin. pin 0 disables the lamp
// (Fire becomes a no-op), matching a booth without flash hardware.
func NewLamp(g gpio.Driver, pin int, hold time.Duration) *Lamp {
	if pin > 0 {
		_ = g.SetupPin(pin, gpio.Output)
		_ = g.WritePin(pin, gpio.Low)
	}
	return &Lamp{
		gpio: g,
		pin:  pin,
		hold: hold,
	}
}

// Fire lights the lamp for the configured hold duration and returns
// immediately. Overlapping calls extend the current pulse rather than
// toggling the lamp off mid-shot.
func (l *Lamp) Fire() {
	if l.pin == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.lit {
		debug.Trace("Flash: lamp on (pin %d)", l.pin)
		if err := l.gpio.WritePin(l.pin, gpio.High); err != nil {
			debug.Error(err)
			return
		}
		l.lit = true
	}

	// A superseded timer may already have fired and be waiting on l.mu, in
	// which case Stop returns false and the old douse still runs. The
	// generation counter makes that stale douse a no-op.
	l.gen++
	gen := l.gen
	if l.off != nil {
		l.off.Stop()
	}
	l.off = time.AfterFunc(l.hold, func() { l.douse(gen) })
}

func (l *Lamp) douse(gen uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if gen != l.gen {
		return
	}
	l.douseLocked()
}

func (l *Lamp) douseLocked() {
	if !l.lit {
		return
	}
	debug.Trace("Flash: lamp off (pin %d)", l.pin)
	if err := l.gpio.WritePin(l.pin, gpio.Low); err != nil {
		debug.Error(err)
	}
	l.lit = false
}

// Close turns the lamp off and cancels any pending pulse.
func (l *Lamp) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gen++
	if l.off != nil {
		l.off.Stop()
		l.off = nil
	}
	l.douseLocked()
}
