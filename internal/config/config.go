package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CameraConfig describes the live video source.
// Type selects a concrete implementation ("gst" for a V4L2 webcam through
// GStreamer, "synthetic" for a generated test pattern on dev machines).
type CameraConfig struct {
	Type     string `yaml:"type"`      // "gst" or "synthetic"
	Device   string `yaml:"device"`    // e.g., "/dev/video0" (gst only)
	WidthPx  int    `yaml:"width_px"`  // preferred frame width (default 1280)
	HeightPx int    `yaml:"height_px"` // preferred frame height (default 720)
	FPS      int    `yaml:"fps"`       // preview frame rate (default 30)
}

// FlashConfig describes the flash lamp fired on each still.
type FlashConfig struct {
	Pin    int `yaml:"pin"`     // GPIO pin (BCM). 0 = no flash lamp.
	HoldMs int `yaml:"hold_ms"` // how long the lamp stays lit (ms)
}

// ButtonConfig describes the physical capture button.
type ButtonConfig struct {
	Pin    int `yaml:"pin"`     // GPIO pin (BCM), wired with pull-up. 0 = no button.
	PollMs int `yaml:"poll_ms"` // polling interval (ms)
}

// BoothConfig contains capture run and export parameters.
type BoothConfig struct {
	OutputDir    string `yaml:"output_dir"`    // where exported photos land
	FilePrefix   string `yaml:"file_prefix"`   // export file name prefix
	MaxPhotos    int    `yaml:"max_photos"`    // upper bound for photos per run
	TimerChoices []int  `yaml:"timer_choices"` // countdown options in seconds (0 = off)
	TickMs       int    `yaml:"tick_ms"`       // countdown tick interval (ms)
}

// DefaultsConfig contains the selector defaults and generic parameters.
type DefaultsConfig struct {
	Filter       string `yaml:"filter"`        // default filter identifier
	TimerSeconds int    `yaml:"timer_seconds"` // default countdown (0 = off)
	PhotoCount   int    `yaml:"photo_count"`   // default photos per run
	DebugLevel   int    `yaml:"debug_level"`   // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO     bool   `yaml:"mock_gpio"`     // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Flash    FlashConfig    `yaml:"flash"`
	Button   ButtonConfig   `yaml:"button"`
	Booth    BoothConfig    `yaml:"booth"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	// Basic validation
	if cfg.Camera.Type == "" {
		return nil, fmt.Errorf("camera.type is required")
	}
	if cfg.Camera.Type != "gst" && cfg.Camera.Type != "synthetic" {
		return nil, fmt.Errorf("camera.type must be \"gst\" or \"synthetic\", got %q", cfg.Camera.Type)
	}
	if cfg.Camera.Type == "gst" && cfg.Camera.Device == "" {
		cfg.Camera.Device = "/dev/video0"
	}
	if cfg.Camera.WidthPx <= 0 {
		cfg.Camera.WidthPx = 1280
	}
	if cfg.Camera.HeightPx <= 0 {
		cfg.Camera.HeightPx = 720
	}
	if cfg.Camera.FPS <= 0 {
		cfg.Camera.FPS = 30
	}
	if cfg.Camera.FPS > 60 {
		return nil, fmt.Errorf("camera.fps must be <= 60, got %d", cfg.Camera.FPS)
	}

	if cfg.Flash.Pin < 0 {
		return nil, fmt.Errorf("flash.pin must be >= 0, got %d", cfg.Flash.Pin)
	}
	if cfg.Flash.HoldMs <= 0 {
		cfg.Flash.HoldMs = 120
	}
	if cfg.Button.Pin < 0 {
		return nil, fmt.Errorf("button.pin must be >= 0, got %d", cfg.Button.Pin)
	}
	if cfg.Button.PollMs <= 0 {
		cfg.Button.PollMs = 50
	}

	if cfg.Booth.OutputDir == "" {
		cfg.Booth.OutputDir = "photos"
	}
	if cfg.Booth.FilePrefix == "" {
		cfg.Booth.FilePrefix = "vintage-photo"
	}
	if cfg.Booth.MaxPhotos <= 0 {
		cfg.Booth.MaxPhotos = 4
	}
	if cfg.Booth.MaxPhotos > 10 {
		return nil, fmt.Errorf("booth.max_photos must be <= 10, got %d", cfg.Booth.MaxPhotos)
	}
	if len(cfg.Booth.TimerChoices) == 0 {
		cfg.Booth.TimerChoices = []int{0, 3, 5, 10}
	}
	for _, s := range cfg.Booth.TimerChoices {
		if s < 0 || s > 60 {
			return nil, fmt.Errorf("booth.timer_choices values must be between 0 and 60, got %d", s)
		}
	}
	if cfg.Booth.TickMs <= 0 {
		cfg.Booth.TickMs = 1000 // one-second countdown ticks
	}

	// Selector defaults
	if cfg.Defaults.Filter == "" {
		cfg.Defaults.Filter = "vintage"
	}
	if cfg.Defaults.TimerSeconds < 0 {
		return nil, fmt.Errorf("defaults.timer_seconds must be >= 0, got %d", cfg.Defaults.TimerSeconds)
	}
	if cfg.Defaults.PhotoCount <= 0 {
		cfg.Defaults.PhotoCount = 1
	}
	if cfg.Defaults.PhotoCount > cfg.Booth.MaxPhotos {
		return nil, fmt.Errorf("defaults.photo_count must be <= booth.max_photos (%d), got %d",
			cfg.Booth.MaxPhotos, cfg.Defaults.PhotoCount)
	}

	return &cfg, nil
}

// Tick returns the countdown tick interval.
func (c *Config) Tick() time.Duration {
	return time.Duration(c.Booth.TickMs) * time.Millisecond
}

// FlashHold returns how long the flash lamp stays lit.
func (c *Config) FlashHold() time.Duration {
	return time.Duration(c.Flash.HoldMs) * time.Millisecond
}

// ButtonPoll returns the capture button polling interval.
func (c *Config) ButtonPoll() time.Duration {
	return time.Duration(c.Button.PollMs) * time.Millisecond
}

// HasTimerChoice reports whether the given countdown duration is one of the
// configured selector options.
func (c *Config) HasTimerChoice(seconds int) bool {
	for _, s := range c.Booth.TimerChoices {
		if s == seconds {
			return true
		}
	}
	return false
}
