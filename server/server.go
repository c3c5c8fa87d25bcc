// Package server exposes the bulk ingestion pipeline over HTTP: batch
// validation, job submission, job polling and a WebSocket progress stream.
package server

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/team-monumental/monuments-and-memorials-sub000/am"
	"github.com/team-monumental/monuments-and-memorials-sub000/dedup"
	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/bulk"
)

const (
	// ShutdownTimeout bounds how long Serve waits for in-flight requests
	ShutdownTimeout = 10 * time.Second

	readHeaderTimeout = 10 * time.Second
)

// Server serves the bulk monument API.
type Server struct {
	pipeline *bulk.Pipeline
	probe    *dedup.Probe // nil when duplicate detection is disabled
	logger   *zap.SugaredLogger
	mux      *http.ServeMux
	upgrader websocket.Upgrader

	mu             sync.RWMutex
	allowedOrigins []string
	maxUploadBytes int64
}

// New creates a server over pipeline. cfg supplies CORS origins and the
// upload limit; probe, when non-nil, is retuned by ApplyConfig.
func New(pipeline *bulk.Pipeline, probe *dedup.Probe, cfg *am.Config, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg == nil {
		cfg = &am.Config{}
	}
	s := &Server{
		pipeline: pipeline,
		probe:    probe,
		logger:   log.Named("server"),
		mux:      http.NewServeMux(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}
	s.applySettings(cfg)
	s.setupHTTPRoutes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// ApplyConfig updates origins, upload limit and dedup parameters from a
// reloaded config. It has the am.ReloadCallback signature.
func (s *Server) ApplyConfig(cfg *am.Config) error {
	if cfg == nil {
		return errors.New("nil config")
	}
	s.applySettings(cfg)
	if s.probe != nil {
		s.probe.SetParams(cfg.Dedup.CoordinateTolerance, cfg.Dedup.Strict)
	}
	s.logger.Infow("Server settings reloaded",
		"allowed_origins", len(cfg.GetServerAllowedOrigins()),
		"max_upload_bytes", cfg.MaxUploadBytes(),
		"coordinate_tolerance", cfg.Dedup.CoordinateTolerance,
		"strict", cfg.Dedup.Strict)
	return nil
}

func (s *Server) applySettings(cfg *am.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowedOrigins = cfg.GetServerAllowedOrigins()
	s.maxUploadBytes = cfg.MaxUploadBytes()
}

func (s *Server) uploadLimit() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxUploadBytes
}

// checkOrigin validates browser origins against server.allowed_origins.
// Prefix matching allows any port on an allowed host.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Allow requests with no origin header (e.g., CLI clients, testing)
	if origin == "" {
		return true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, allowed := range s.allowedOrigins {
		if strings.HasPrefix(origin, allowed) {
			return true
		}
	}
	return false
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infow("HTTP server listening", "addr", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrapf(err, "failed to serve on %s", addr)
	case <-ctx.Done():
	}

	s.logger.Infow("Initiating server shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "server shutdown")
	}
	s.logger.Infow("Server stopped")
	return nil
}
