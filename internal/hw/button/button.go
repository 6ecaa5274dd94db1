package button

import (
	"context"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
)

// Watcher polls a GPIO input wired to the physical capture button and
// invokes the press callback on each High->Low edge (button to GND with
// pull-up, so a press reads Low).
type Watcher struct {
	gpio    gpio.Driver
	pin     int
	poll    time.Duration
	onPress func()
}

// NewWatcher creates a button watcher. pin 0 disables the watcher
// (Run returns immediately), matching a booth without a hardware button.
func NewWatcher(g gpio.Driver, pin int, poll time.Duration, onPress func()) *Watcher {
	if pin > 0 {
		_ = g.SetupPin(pin, gpio.Input)
	}
	return &Watcher{
		gpio:    g,
		pin:     pin,
		poll:    poll,
		onPress: onPress,
	}
}

// Run polls the button until ctx is cancelled. The polling interval doubles
// as debounce: a press is reported once per High->Low edge, and the line must
// return High before another press is accepted.
func (w *Watcher) Run(ctx context.Context) {
	if w.pin == 0 {
		return
	}

	debug.Info("Capture button enabled on pin %d", w.pin)

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()

	pressed := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		level, err := w.gpio.ReadPin(w.pin)
		if err != nil {
			debug.Error(err)
			continue
		}

		if level == gpio.Low && !pressed {
			pressed = true
			debug.Live("Capture button pressed")
			if w.onPress != nil {
				w.onPress()
			}
		} else if level == gpio.High && pressed {
			pressed = false
		}
	}
}
