package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/cjeanneret/BoothGo/internal/config"
	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/button"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/hw/flash"
	"github.com/cjeanneret/BoothGo/internal/hw/gpio"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
	"github.com/cjeanneret/BoothGo/internal/logic/filter"
	"github.com/cjeanneret/BoothGo/internal/logic/session"
	"github.com/cjeanneret/BoothGo/internal/web"
)

func main() {
	// CLI flags
	webPort := &webPortFlag{defaultPort: 8080}
	flag.Var(webPort, "web", "start web server on port; -web= for default 8080, -web 8980 for custom port")
	cfgPath := flag.String("config", filepath.Join("configs", "default.yaml"), "path to config file")
	filterName := flag.String("filter", "", "override default filter (none, sepia, noir, warm, vintage)")
	timerSeconds := flag.Int("timer", -1, "override default countdown seconds (must be a configured choice)")
	photoCount := flag.Int("count", 0, "override default photos per run (1 to booth.max_photos)")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	// Apply CLI overrides (zero values mean "use config default")
	if err := applyOverrides(cfg, *filterName, *timerSeconds, *photoCount); err != nil {
		log.Fatalf("invalid CLI override: %v", err)
	}

	// Initialize debug system
	debug.Init(cfg.Defaults.DebugLevel)
	debug.Section("Initialization")
	debug.Value("Config path", *cfgPath)
	debug.Value("Debug level", cfg.Defaults.DebugLevel)

	// Initialize GPIO driver
	debug.Value("Mock GPIO", cfg.Defaults.MockGPIO)
	debug.Step(1, "Initializing GPIO driver")
	gpioDriver, err := gpio.NewDriver(cfg.Defaults.MockGPIO)
	if err != nil {
		log.Fatalf("init GPIO failed: %v", err)
	}
	defer func() {
		if err := gpioDriver.Close(); err != nil {
			log.Printf("closing GPIO driver failed: %v", err)
		}
	}()

	// Initialize flash lamp
	debug.Step(2, "Initializing flash lamp")
	lamp := flash.NewLamp(gpioDriver, cfg.Flash.Pin, cfg.FlashHold())
	defer lamp.Close()
	debug.PrintStruct("Flash config", cfg.Flash)

	// Initialize camera
	debug.Step(3, "Initializing camera")
	cam, err := newCameraFromConfig(cfg)
	if err != nil {
		log.Fatalf("init camera failed: %v", err)
	}
	debug.Value("Camera type", cfg.Camera.Type)
	debug.Value("Resolution", fmt.Sprintf("%dx%d@%d", cfg.Camera.WidthPx, cfg.Camera.HeightPx, cfg.Camera.FPS))

	// Build the session controller over hardware and config
	debug.Step(4, "Creating session controller")
	broadcaster := web.NewStatusBroadcaster()
	still := capture.NewStill(cam, lamp.Fire)
	sess := session.NewController(session.Params{
		Camera: cam,
		Still:  still.Capture,
		Exporter: &session.DirExporter{
			Dir:    cfg.Booth.OutputDir,
			Prefix: cfg.Booth.FilePrefix,
		},
		MaxPhotos: cfg.Booth.MaxPhotos,
		Tick:      cfg.Tick(),
		Notify:    broadcaster.BroadcastEvent,
	})

	if err := sess.Enter(ctx); err != nil {
		log.Fatalf("start live feed failed: %v", err)
	}
	defer func() {
		if err := sess.Exit(); err != nil {
			log.Printf("session exit failed: %v", err)
		}
	}()

	// Physical capture button triggers a run with the configured defaults.
	runDefaults := capture.RunConfig{
		Filter:       filter.ID(cfg.Defaults.Filter),
		TimerSeconds: cfg.Defaults.TimerSeconds,
		Count:        cfg.Defaults.PhotoCount,
	}
	watcher := button.NewWatcher(gpioDriver, cfg.Button.Pin, cfg.ButtonPoll(), func() {
		if err := sess.TriggerCapture(runDefaults); err != nil {
			debug.Error(fmt.Errorf("button capture: %w", err))
		}
	})
	go watcher.Run(ctx)

	if port := webPort.port(); port > 0 {
		debug.SetOutput(io.MultiWriter(os.Stdout, web.BroadcastWriter(broadcaster)))

		selectors := web.SelectorConfig{
			Filters:      filterNames(),
			TimerChoices: cfg.Booth.TimerChoices,
			MaxPhotos:    cfg.Booth.MaxPhotos,
			Defaults: web.CaptureRequest{
				Filter:       cfg.Defaults.Filter,
				TimerSeconds: cfg.Defaults.TimerSeconds,
				Count:        cfg.Defaults.PhotoCount,
			},
		}
		handlers := web.NewHandlers(broadcaster, sess, cam, selectors, web.StaticFS())
		srv := web.NewServer(port, handlers)
		if err := srv.Run(ctx); err != nil {
			log.Fatalf("web server: %v", err)
		}
		return
	}

	// Headless one-shot: run a capture with the defaults, export, exit.
	if err := runOnce(ctx, sess, runDefaults); err != nil {
		log.Fatalf("capture failed: %v", err)
	}
}

// runOnce performs a single headless run: trigger, wait for the batch,
// export it.
func runOnce(ctx context.Context, sess *session.Controller, cfg capture.RunConfig) error {
	debug.Section("Starting Capture Run")
	if err := sess.TriggerCapture(cfg); err != nil {
		return fmt.Errorf("trigger capture: %w", err)
	}
	if err := sess.AwaitReview(ctx); err != nil {
		return err
	}
	paths, err := sess.Export()
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	debug.Summary("Export Summary")
	for _, p := range paths {
		debug.Info("Saved %s", p)
	}
	debug.Section("Run Complete")
	return nil
}

// applyOverrides mutates cfg with CLI overrides and validates them against
// the configured choices. Zero values are ignored (timer uses -1 as "unset"
// since 0 is a valid choice meaning "no countdown").
func applyOverrides(cfg *config.Config, filterName string, timerSeconds, photoCount int) error {
	if filterName != "" {
		if _, err := filter.Parse(filterName); err != nil {
			return err
		}
		cfg.Defaults.Filter = filterName
	}
	if timerSeconds >= 0 {
		if !cfg.HasTimerChoice(timerSeconds) {
			return fmt.Errorf("timer must be one of %v, got %d", cfg.Booth.TimerChoices, timerSeconds)
		}
		cfg.Defaults.TimerSeconds = timerSeconds
	}
	if photoCount != 0 {
		if photoCount < 1 || photoCount > cfg.Booth.MaxPhotos {
			return fmt.Errorf("count must be between 1 and %d, got %d", cfg.Booth.MaxPhotos, photoCount)
		}
		cfg.Defaults.PhotoCount = photoCount
	}
	return nil
}

// newCameraFromConfig selects a camera implementation based on configuration.
func newCameraFromConfig(cfg *config.Config) (camera.Source, error) {
	switch cfg.Camera.Type {
	case "gst":
		return camera.NewGstSource(camera.GstConfig{
			Device: cfg.Camera.Device,
			Width:  cfg.Camera.WidthPx,
			Height: cfg.Camera.HeightPx,
			FPS:    cfg.Camera.FPS,
		})
	case "synthetic":
		return camera.NewSyntheticSource(cfg.Camera.WidthPx, cfg.Camera.HeightPx, cfg.Camera.FPS), nil
	default:
		return nil, fmt.Errorf("unsupported camera type: %s", cfg.Camera.Type)
	}
}

func filterNames() []string {
	ids := filter.All()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = string(id)
	}
	return names
}

// webPortFlag implements flag.Value for -web: 0 = disabled, -web= or -web 8080 → 8080, -web 8980 → 8980.
type webPortFlag struct {
	val         int
	defaultPort int
}

func (w *webPortFlag) String() string {
	if w.val == 0 {
		return "0"
	}
	return strconv.Itoa(w.val)
}

func (w *webPortFlag) Set(s string) error {
	if s == "" {
		w.val = w.defaultPort
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	if v <= 0 || v > 65535 {
		return fmt.Errorf("port must be 1-65535, got %d", v)
	}
	w.val = v
	return nil
}

func (w *webPortFlag) port() int { return w.val }
