package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
)

// Server wraps the HTTP server for the booth UI.
type Server struct {
	httpServer *http.Server
	handlers   *Handlers
}

// NewServer creates a booth web server on the given port.
func NewServer(port int, handlers *Handlers) *Server {
	mux := http.NewServeMux()

	// Page and static assets
	mux.HandleFunc("GET /{$}", handlers.ServeIndex)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(handlers.staticFS)))

	// Live surfaces
	mux.HandleFunc("GET /preview", handlers.HandlePreview)
	mux.HandleFunc("GET /status/stream", handlers.HandleStatusStream)

	// State and selectors
	mux.HandleFunc("GET /config", handlers.HandleConfig)
	mux.HandleFunc("GET /state", handlers.HandleState)

	// Actions
	mux.HandleFunc("POST /capture", handlers.HandleCapture)
	mux.HandleFunc("POST /retake", handlers.HandleRetake)
	mux.HandleFunc("POST /export", handlers.HandleExport)
	mux.HandleFunc("GET /photos/{index}", handlers.HandlePhoto)

	return &Server{
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
		handlers: handlers,
	}
}

// Run starts the server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		debug.Info("Web UI listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	debug.Info("Web server stopped")
	return nil
}
