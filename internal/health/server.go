// Package health exposes the operational HTTP endpoints: liveness,
// cache status and Prometheus metrics. Presentation routes live outside
// this repository.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lottopipe/lottopipe/internal/cache"
)

// StatusSource provides the cache counters for /cache/status.
type StatusSource interface {
	CacheStatus(ctx context.Context) cache.Stats
}

// Server is the health/metrics listener.
type Server struct {
	status StatusSource
	server *http.Server
}

// NewServer creates the listener on the given port.
func NewServer(status StatusSource, port int) *Server {
	mux := http.NewServeMux()
	s := &Server{
		status: status,
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		},
	}

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/cache/status", s.handleCacheStatus)
	mux.Handle("/metrics", promhttp.Handler())

	return s
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleCacheStatus(w http.ResponseWriter, r *http.Request) {
	stats := s.status.CacheStatus(r.Context())
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
