package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/jpeg"
	"io/fs"
	"net/http"
	"strconv"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/logic/capture"
	"github.com/cjeanneret/BoothGo/internal/logic/filter"
	"github.com/cjeanneret/BoothGo/internal/logic/session"
)

// CaptureRequest holds the selector values sent by the page when the user
// triggers a capture. They are snapshotted into the run at this moment;
// later selector changes do not affect a run in progress.
type CaptureRequest struct {
	Filter       string `json:"filter"`
	TimerSeconds int    `json:"timer_seconds"`
	Count        int    `json:"count"`
}

// SelectorConfig describes the selector choices and defaults for the page.
type SelectorConfig struct {
	Filters      []string       `json:"filters"`
	TimerChoices []int          `json:"timer_choices"`
	MaxPhotos    int            `json:"max_photos"`
	Defaults     CaptureRequest `json:"defaults"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Session     *session.Controller
	Camera      camera.Source
	Selectors   SelectorConfig
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *StatusBroadcaster, sess *session.Controller, cam camera.Source, selectors SelectorConfig, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Session:     sess,
		Camera:      cam,
		Selectors:   selectors,
		staticFS:    staticFS,
	}
}

// ValidateCaptureRequest checks a capture request against the selector
// choices and returns the run configuration.
func (h *Handlers) ValidateCaptureRequest(req CaptureRequest) (capture.RunConfig, error) {
	f, err := filter.Parse(req.Filter)
	if err != nil {
		return capture.RunConfig{}, err
	}
	timerOK := false
	for _, s := range h.Selectors.TimerChoices {
		if s == req.TimerSeconds {
			timerOK = true
			break
		}
	}
	if !timerOK {
		return capture.RunConfig{}, fmt.Errorf("timer_seconds must be one of %v, got %d", h.Selectors.TimerChoices, req.TimerSeconds)
	}
	if req.Count < 1 || req.Count > h.Selectors.MaxPhotos {
		return capture.RunConfig{}, fmt.Errorf("count must be between 1 and %d, got %d", h.Selectors.MaxPhotos, req.Count)
	}
	return capture.RunConfig{
		Filter:       f,
		TimerSeconds: req.TimerSeconds,
		Count:        req.Count,
	}, nil
}

// HandleConfig returns the selector choices and defaults as JSON.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.Selectors)
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleState returns the current session/sequencer state as JSON.
func (h *Handlers) HandleState(w http.ResponseWriter, r *http.Request) {
	st := h.Session.Status()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"mode":       st.Mode.String(),
		"phase":      st.Run.Phase.String(),
		"remaining":  st.Run.Remaining,
		"index":      st.Run.Index,
		"total":      st.Run.Total,
		"taken":      st.Run.Taken,
		"batch_size": st.BatchSize,
		"camera": map[string]interface{}{
			"frames":  st.Camera.FrameCount,
			"fps":     st.Camera.FPSReal,
			"running": st.Camera.IsRunning,
		},
	})
}

// HandleCapture handles POST /capture to start a run.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	var req CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	cfg, err := h.ValidateCaptureRequest(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Session.TriggerCapture(cfg); err != nil {
		if errors.Is(err, capture.ErrRunActive) {
			http.Error(w, "capture already in progress", http.StatusConflict)
			return
		}
		h.Broadcaster.Broadcast("error", "Capture failed: "+err.Error())
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"status": "started"})
}

// HandleRetake handles POST /retake: discard the batch, back to live.
func (h *Handlers) HandleRetake(w http.ResponseWriter, r *http.Request) {
	if err := h.Session.Retake(); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "live"})
}

// HandleExport handles POST /export: write the batch to the output dir.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	paths, err := h.Session.Export()
	if err != nil {
		if errors.Is(err, session.ErrNotReviewing) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		h.Broadcaster.Broadcast("error", "Export failed: "+err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"status": "exported", "files": paths})
}

// HandlePhoto serves one photo of the reviewed batch (1-based index).
func (h *Handlers) HandlePhoto(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "invalid index", http.StatusBadRequest)
		return
	}
	data, ok := h.Session.Photo(index)
	if !ok {
		http.Error(w, "no such photo", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(data)
}

// HandlePreview streams the live feed as MJPEG (multipart/x-mixed-replace).
// The browser renders it with a plain <img> tag. Roughly 10 fps is plenty
// for a preview and keeps encoding cost down.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		frame, err := h.Camera.Frame()
		if err != nil {
			// Stream not ready yet; keep the connection open.
			continue
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, frame.ToImage(), &jpeg.Options{Quality: 80}); err != nil {
			debug.Error(fmt.Errorf("preview: encode: %w", err))
			continue
		}

		fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", buf.Len())
		w.Write(buf.Bytes())
		w.Write([]byte("\r\n"))
		flusher.Flush()
	}
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
