// Package http exposes the warnings service over JSON HTTP, alongside the
// health, readiness, and metrics endpoints.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-warnings-service/internal/domain"
	"github.com/couchcryptid/weather-warnings-service/internal/warnings"
)

// WarningsService returns ranked alerts for a request.
type WarningsService interface {
	Warnings(ctx context.Context, req warnings.Request) warnings.Result
}

// PlaceFinder backs location autocomplete and reverse lookups.
type PlaceFinder interface {
	Search(ctx context.Context, credential, query string, limit int) ([]domain.Place, error)
	Describe(ctx context.Context, credential string, c domain.Coordinates) (domain.Place, error)
}

// Server exposes the API, health, readiness, and metrics HTTP endpoints.
type Server struct {
	httpServer *http.Server
	service    WarningsService
	places     PlaceFinder
	defaults   warnings.Defaults
	logger     *slog.Logger
}

// NewServer creates an HTTP server. defaults fill in whatever a request leaves
// out and decide readiness.
func NewServer(addr string, service WarningsService, places PlaceFinder, defaults warnings.Defaults, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		service:  service,
		places:   places,
		defaults: defaults,
		logger:   logger.With("component", "http"),
	}

	mux.HandleFunc("GET /api/v1/warnings", s.handleWarnings)
	mux.HandleFunc("GET /api/v1/places", s.handlePlaces)
	mux.HandleFunc("GET /api/v1/places/reverse", s.handleReverse)
	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(defaults))
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer.Handler = requestID(s.logger, mux)
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // client may have gone away
}
