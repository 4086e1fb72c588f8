// Package http exposes the bot's operational endpoints: health, queue status,
// and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bobintern/bountybot/internal/queue"
)

// StatusSource reports the delivery queue state. *queue.Queue satisfies it.
type StatusSource interface {
	Status() queue.Status
}

// Server wraps the operational HTTP endpoints.
type Server struct {
	logger *slog.Logger
	http   *http.Server
}

func NewServer(logger *slog.Logger, port int, statusSource StatusSource) *Server {
	s := &Server{logger: logger.With("component", "http_server")}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/status", s.handleStatus(statusSource))
	r.Handle("/metrics", promhttp.Handler())

	s.http = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Router returns the handler, for tests.
func (s *Server) Router() http.Handler {
	return s.http.Handler
}

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("HTTP server starting", "address", s.http.Addr)
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(source StatusSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, source.Status())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
