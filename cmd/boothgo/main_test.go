package main

import (
	"testing"

	"github.com/cjeanneret/BoothGo/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Camera: config.CameraConfig{Type: "synthetic", WidthPx: 64, HeightPx: 48, FPS: 30},
		Booth: config.BoothConfig{
			MaxPhotos:    4,
			TimerChoices: []int{0, 3, 5, 10},
		},
		Defaults: config.DefaultsConfig{
			Filter:       "vintage",
			TimerSeconds: 3,
			PhotoCount:   1,
		},
	}
}

// ---------- applyOverrides ----------

func TestApplyOverrides_AllUnset(t *testing.T) {
	cfg := baseConfig()
	if err := applyOverrides(cfg, "", -1, 0); err != nil {
		t.Fatalf("unset overrides must be valid: %v", err)
	}
	if cfg.Defaults.Filter != "vintage" || cfg.Defaults.TimerSeconds != 3 || cfg.Defaults.PhotoCount != 1 {
		t.Errorf("unset overrides mutated defaults: %+v", cfg.Defaults)
	}
}

func TestApplyOverrides_Valid(t *testing.T) {
	cfg := baseConfig()
	if err := applyOverrides(cfg, "noir", 5, 4); err != nil {
		t.Fatalf("applyOverrides: %v", err)
	}
	if cfg.Defaults.Filter != "noir" {
		t.Errorf("filter = %q, want noir", cfg.Defaults.Filter)
	}
	if cfg.Defaults.TimerSeconds != 5 {
		t.Errorf("timer = %d, want 5", cfg.Defaults.TimerSeconds)
	}
	if cfg.Defaults.PhotoCount != 4 {
		t.Errorf("count = %d, want 4", cfg.Defaults.PhotoCount)
	}
}

func TestApplyOverrides_TimerZeroIsValid(t *testing.T) {
	cfg := baseConfig()
	if err := applyOverrides(cfg, "", 0, 0); err != nil {
		t.Fatalf("timer 0 must be accepted: %v", err)
	}
	if cfg.Defaults.TimerSeconds != 0 {
		t.Errorf("timer = %d, want 0", cfg.Defaults.TimerSeconds)
	}
}

func TestApplyOverrides_Invalid(t *testing.T) {
	cases := []struct {
		name   string
		filter string
		timer  int
		count  int
	}{
		{"unknown_filter", "grayscale", -1, 0},
		{"timer_not_a_choice", "", 7, 0},
		{"count_too_high", "", -1, 5},
		{"count_negative", "", -1, -2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := applyOverrides(baseConfig(), tc.filter, tc.timer, tc.count); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// ---------- newCameraFromConfig ----------

func TestNewCameraFromConfig_Synthetic(t *testing.T) {
	cam, err := newCameraFromConfig(baseConfig())
	if err != nil {
		t.Fatalf("newCameraFromConfig: %v", err)
	}
	if cam == nil {
		t.Fatal("expected a camera")
	}
}

func TestNewCameraFromConfig_Unknown(t *testing.T) {
	cfg := baseConfig()
	cfg.Camera.Type = "dslr"
	if _, err := newCameraFromConfig(cfg); err == nil {
		t.Fatal("expected error for unknown camera type, got nil")
	}
}

// ---------- filterNames ----------

func TestFilterNames(t *testing.T) {
	names := filterNames()
	if len(names) == 0 {
		t.Fatal("expected filter names")
	}
	seen := map[string]bool{}
	for _, n := range names {
		if n == "" {
			t.Error("empty filter name")
		}
		if seen[n] {
			t.Errorf("duplicate filter name %q", n)
		}
		seen[n] = true
	}
	if !seen["vintage"] || !seen["none"] {
		t.Errorf("expected none and vintage among %v", names)
	}
}

// ---------- webPortFlag ----------

func TestWebPortFlag_EmptyString(t *testing.T) {
	w := &webPortFlag{defaultPort: 8080}
	if err := w.Set(""); err != nil {
		t.Fatalf("Set(\"\"): %v", err)
	}
	if w.port() != 8080 {
		t.Errorf("port = %d, want 8080", w.port())
	}
}

func TestWebPortFlag_CustomPort(t *testing.T) {
	w := &webPortFlag{defaultPort: 8080}
	if err := w.Set("8980"); err != nil {
		t.Fatalf("Set(\"8980\"): %v", err)
	}
	if w.port() != 8980 {
		t.Errorf("port = %d, want 8980", w.port())
	}
}

func TestWebPortFlag_Invalid(t *testing.T) {
	cases := []string{"abc", "0", "-1", "65536"}
	for _, s := range cases {
		w := &webPortFlag{defaultPort: 8080}
		if err := w.Set(s); err == nil {
			t.Errorf("Set(%q): expected error, got nil", s)
		}
	}
}

func TestWebPortFlag_String(t *testing.T) {
	w := &webPortFlag{defaultPort: 8080}
	if got := w.String(); got != "0" {
		t.Errorf("unset String() = %q, want \"0\"", got)
	}
	w.Set("9000")
	if got := w.String(); got != "9000" {
		t.Errorf("String() = %q, want \"9000\"", got)
	}
}
