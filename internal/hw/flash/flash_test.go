package flash

import (
	"sync"
	"testing"
	"time"

	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
)

// recordingDriver captures pin writes for assertions.
type recordingDriver struct {
	mu     sync.Mutex
	setups []int
	writes []gpio.Level
}

func (d *recordingDriver) SetupPin(pin int, mode gpio.PinMode) error {
	d.mu.Lock()
	d.setups = append(d.setups, pin)
	d.mu.Unlock()
	return nil
}

func (d *recordingDriver) WritePin(pin int, level gpio.Level) error {
	d.mu.Lock()
	d.writes = append(d.writes, level)
	d.mu.Unlock()
	return nil
}

func (d *recordingDriver) ReadPin(pin int) (gpio.Level, error) { return gpio.High, nil }
func (d *recordingDriver) Close() error                        { return nil }

func (d *recordingDriver) lastWrite() (gpio.Level, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.writes) == 0 {
		return gpio.Low, false
	}
	return d.writes[len(d.writes)-1], true
}

func (d *recordingDriver) writeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.writes)
}

func waitForLevel(t *testing.T, d *recordingDriver, want gpio.Level) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, ok := d.lastWrite(); ok && got == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	got, _ := d.lastWrite()
	t.Fatalf("pin never reached %v, last write %v", want, got)
}

// ---------- Fire ----------

func TestFire_PulsesLamp(t *testing.T) {
	d := &recordingDriver{}
	l := NewLamp(d, 18, 20*time.Millisecond)
	defer l.Close()

	l.Fire()
	waitForLevel(t, d, gpio.High)
	waitForLevel(t, d, gpio.Low)
}

func TestFire_SetupOnConstruction(t *testing.T) {
	d := &recordingDriver{}
	l := NewLamp(d, 18, 20*time.Millisecond)
	defer l.Close()

	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.setups) != 1 || d.setups[0] != 18 {
		t.Errorf("expected pin 18 set up once, got %v", d.setups)
	}
	// Lamp starts off.
	if len(d.writes) != 1 || d.writes[0] != gpio.Low {
		t.Errorf("expected initial low write, got %v", d.writes)
	}
}

func TestFire_OverlappingExtendsPulse(t *testing.T) {
	d := &recordingDriver{}
	l := NewLamp(d, 18, 100*time.Millisecond)
	defer l.Close()

	l.Fire()
	time.Sleep(50 * time.Millisecond)
	l.Fire() // re-arm before the first pulse ends

	// The lamp must still be lit well past the first pulse's deadline.
	time.Sleep(70 * time.Millisecond)
	if got, _ := d.lastWrite(); got != gpio.High {
		t.Error("overlapping fire turned the lamp off early")
	}
	waitForLevel(t, d, gpio.Low)
}

func TestFire_SupersededPulseCannotDouse(t *testing.T) {
	// A pulse timer that fires just as a new Fire extends the hold loses
	// the Stop race and runs anyway. Its douse carries the old generation
	// and must leave the lamp lit.
	d := &recordingDriver{}
	l := NewLamp(d, 18, time.Hour)
	defer l.Close()

	l.Fire()
	l.mu.Lock()
	stale := l.gen
	l.mu.Unlock()
	l.Fire() // bumps the generation, supersedes the first pulse

	l.douse(stale)
	if got, _ := d.lastWrite(); got != gpio.High {
		t.Error("stale douse turned the lamp off")
	}
}

func TestFire_DisabledPin(t *testing.T) {
	d := &recordingDriver{}
	l := NewLamp(d, 0, 20*time.Millisecond)
	defer l.Close()

	l.Fire()
	time.Sleep(30 * time.Millisecond)
	if n := d.writeCount(); n != 0 {
		t.Errorf("disabled lamp wrote %d times", n)
	}
}

func TestClose_TurnsLampOff(t *testing.T) {
	d := &recordingDriver{}
	l := NewLamp(d, 18, time.Hour)

	l.Fire()
	waitForLevel(t, d, gpio.High)
	l.Close()
	if got, _ := d.lastWrite(); got != gpio.Low {
		t.Error("Close left the lamp lit")
	}
}
