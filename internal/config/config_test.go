package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "default.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalYAML = `
camera:
  type: synthetic
`

// ---------- Load ----------

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "camera: [unclosed")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Camera.WidthPx != 1280 || cfg.Camera.HeightPx != 720 {
		t.Errorf("expected default resolution 1280x720, got %dx%d", cfg.Camera.WidthPx, cfg.Camera.HeightPx)
	}
	if cfg.Camera.FPS != 30 {
		t.Errorf("expected default fps 30, got %d", cfg.Camera.FPS)
	}
	if cfg.Booth.OutputDir != "photos" {
		t.Errorf("expected default output dir %q, got %q", "photos", cfg.Booth.OutputDir)
	}
	if cfg.Booth.FilePrefix != "vintage-photo" {
		t.Errorf("expected default file prefix %q, got %q", "vintage-photo", cfg.Booth.FilePrefix)
	}
	if cfg.Booth.MaxPhotos != 4 {
		t.Errorf("expected default max photos 4, got %d", cfg.Booth.MaxPhotos)
	}
	if len(cfg.Booth.TimerChoices) != 4 || cfg.Booth.TimerChoices[0] != 0 {
		t.Errorf("expected default timer choices [0 3 5 10], got %v", cfg.Booth.TimerChoices)
	}
	if cfg.Defaults.Filter != "vintage" {
		t.Errorf("expected default filter %q, got %q", "vintage", cfg.Defaults.Filter)
	}
	if cfg.Defaults.PhotoCount != 1 {
		t.Errorf("expected default photo count 1, got %d", cfg.Defaults.PhotoCount)
	}
}

func TestLoad_CameraTypeRequired(t *testing.T) {
	_, err := Load(writeConfig(t, "booth:\n  max_photos: 2\n"))
	if err == nil || !strings.Contains(err.Error(), "camera.type") {
		t.Fatalf("expected camera.type error, got %v", err)
	}
}

func TestLoad_CameraTypeUnknown(t *testing.T) {
	_, err := Load(writeConfig(t, "camera:\n  type: webcam\n"))
	if err == nil {
		t.Fatal("expected error for unknown camera type, got nil")
	}
}

func TestLoad_GstDeviceDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, "camera:\n  type: gst\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Camera.Device != "/dev/video0" {
		t.Errorf("expected default device /dev/video0, got %q", cfg.Camera.Device)
	}
}

func TestLoad_FPSTooHigh(t *testing.T) {
	_, err := Load(writeConfig(t, "camera:\n  type: synthetic\n  fps: 120\n"))
	if err == nil {
		t.Fatal("expected error for fps > 60, got nil")
	}
}

func TestLoad_MaxPhotosTooHigh(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+"booth:\n  max_photos: 11\n"))
	if err == nil {
		t.Fatal("expected error for max_photos > 10, got nil")
	}
}

func TestLoad_TimerChoiceOutOfRange(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+"booth:\n  timer_choices: [0, 90]\n"))
	if err == nil {
		t.Fatal("expected error for timer choice > 60, got nil")
	}
}

func TestLoad_PhotoCountExceedsMax(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+"booth:\n  max_photos: 2\ndefaults:\n  photo_count: 3\n"))
	if err == nil {
		t.Fatal("expected error for photo_count > max_photos, got nil")
	}
}

func TestLoad_NegativeTimerDefault(t *testing.T) {
	_, err := Load(writeConfig(t, minimalYAML+"defaults:\n  timer_seconds: -1\n"))
	if err == nil {
		t.Fatal("expected error for negative timer_seconds, got nil")
	}
}

func TestLoad_FullConfig(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
camera:
  type: gst
  device: /dev/video2
  width_px: 640
  height_px: 480
  fps: 15
flash:
  pin: 18
  hold_ms: 200
button:
  pin: 23
  poll_ms: 25
booth:
  output_dir: /tmp/strip
  file_prefix: booth
  max_photos: 3
  timer_choices: [0, 5]
  tick_ms: 500
defaults:
  filter: sepia
  timer_seconds: 5
  photo_count: 3
  debug_level: 3
  mock_gpio: true
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Camera.Device != "/dev/video2" {
		t.Errorf("device: got %q", cfg.Camera.Device)
	}
	if cfg.Booth.MaxPhotos != 3 || cfg.Defaults.PhotoCount != 3 {
		t.Errorf("counts: max=%d default=%d", cfg.Booth.MaxPhotos, cfg.Defaults.PhotoCount)
	}
	if !cfg.Defaults.MockGPIO {
		t.Error("expected mock_gpio true")
	}
}

// ---------- Duration accessors ----------

func TestDurationAccessors(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
camera:
  type: synthetic
flash:
  hold_ms: 250
button:
  poll_ms: 10
booth:
  tick_ms: 100
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Tick(); got != 100*time.Millisecond {
		t.Errorf("Tick: got %v", got)
	}
	if got := cfg.FlashHold(); got != 250*time.Millisecond {
		t.Errorf("FlashHold: got %v", got)
	}
	if got := cfg.ButtonPoll(); got != 10*time.Millisecond {
		t.Errorf("ButtonPoll: got %v", got)
	}
}

func TestTickDefault(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Tick(); got != time.Second {
		t.Errorf("expected one-second tick, got %v", got)
	}
}

// ---------- HasTimerChoice ----------

func TestHasTimerChoice(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cases := []struct {
		seconds int
		want    bool
	}{
		{0, true},
		{3, true},
		{5, true},
		{10, true},
		{1, false},
		{-1, false},
		{60, false},
	}
	for _, tc := range cases {
		if got := cfg.HasTimerChoice(tc.seconds); got != tc.want {
			t.Errorf("HasTimerChoice(%d): got %v, want %v", tc.seconds, got, tc.want)
		}
	}
}
