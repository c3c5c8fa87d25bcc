package server

import (
	"net/http"

	"github.com/team-monumental/monuments-and-memorials-sub000/am"
)

// setupHTTPRoutes configures all HTTP handlers
func (s *Server) setupHTTPRoutes() {
	s.mux.HandleFunc("/health", s.corsMiddleware(s.HandleHealth))
	s.mux.HandleFunc("/api/config", s.corsMiddleware(s.HandleConfig))                         // Effective config with sources (GET)
	s.mux.HandleFunc("/api/monuments/bulk/validate", s.corsMiddleware(s.HandleBulkValidate))  // Validate an upload, no side effects (POST)
	s.mux.HandleFunc("/api/monuments/bulk/create", s.corsMiddleware(s.HandleBulkCreate))      // Validate and start ingestion (POST)
	s.mux.HandleFunc("/api/monuments/bulk/jobs/", s.corsMiddleware(s.HandleBulkJob))          // Poll one job (GET /api/monuments/bulk/jobs/{id})
	s.mux.HandleFunc("/api/monuments/bulk/jobs", s.corsMiddleware(s.HandleBulkJobs))          // List jobs (GET)
	s.mux.HandleFunc("/ws/monuments/bulk/jobs/{id}", s.corsMiddleware(s.HandleBulkJobStream)) // Progress stream (WebSocket)
}

// corsMiddleware adds CORS headers to HTTP responses using configured allowed origins
// Uses the same origin validation as WebSocket connections (server.allowed_origins config)
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next(w, r)
	}
}

// HandleHealth reports liveness
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleConfig returns the effective configuration and where each value came from
func (s *Server) HandleConfig(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	introspection, err := am.GetConfigIntrospection()
	if err != nil {
		s.logger.Errorw("Config introspection failed", "error", err)
		writeErrorFrom(w, err)
		return
	}
	writeJSON(w, http.StatusOK, introspection)
}
