// Package server exposes the status of the scheduled generator over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openqsrx/qumi-codes/config"
	"github.com/openqsrx/qumi-codes/interfaces"
	"github.com/openqsrx/qumi-codes/logging"
	"github.com/openqsrx/qumi-codes/metrics"
)

// Server represents the status server
type Server struct {
	server        *http.Server
	router        chi.Router
	dataStore     interfaces.DataStore
	healthChecker interfaces.HealthChecker
	rateLimiter   *RateLimiter
	config        *config.Config
}

// ReportResponse is the body of GET /report
type ReportResponse struct {
	RunID      string                        `json:"runId"`
	LastUpdate string                        `json:"lastUpdate,omitempty"`
	Rows       int                           `json:"rows"`
	Report     *interfaces.DataQualityReport `json:"report"`
	Churn      *interfaces.ChurnSummary      `json:"churn"`
	LastError  string                        `json:"lastError,omitempty"`
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, dataStore interfaces.DataStore, healthChecker interfaces.HealthChecker) *Server {
	router := chi.NewRouter()

	s := &Server{
		server: &http.Server{
			Handler:      router,
			Addr:         net.JoinHostPort(cfg.Address, cfg.Port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		router:        router,
		dataStore:     dataStore,
		healthChecker: healthChecker,
		rateLimiter:   NewRateLimiter(),
		config:        cfg,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func requestLogger() *slog.Logger {
	if logging.DefaultLoggingService != nil && logging.DefaultLoggingService.Logger != nil {
		return logging.DefaultLoggingService.Logger
	}
	return slog.Default()
}

// setupMiddleware configures all middleware
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.LoggingMiddleware(requestLogger()))
	s.router.Use(middleware.Recoverer)
	s.router.Use(metrics.Metrics)
	s.router.Use(s.rateLimiter.Middleware)
}

// setupRoutes configures all routes
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/report", s.handleReport)
	s.router.Handle("/metrics", promhttp.Handler())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, details, httpStatus := s.healthChecker.HealthCheck()
	respondWithJSON(w, httpStatus, map[string]any{
		"status": status,
		"data":   details,
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.dataStore.GetRunID() == "" {
		respondWithError(w, http.StatusServiceUnavailable, "no code table generated yet")
		return
	}

	resp := ReportResponse{
		RunID:  s.dataStore.GetRunID(),
		Rows:   len(s.dataStore.GetRows()),
		Report: s.dataStore.GetReport(),
		Churn:  s.dataStore.GetChurn(),
	}
	if lastUpdate := s.dataStore.GetLastUpdated(); !lastUpdate.IsZero() {
		resp.LastUpdate = lastUpdate.Format(time.RFC3339)
	}
	if err := s.dataStore.GetLastError(); err != nil {
		resp.LastError = err.Error()
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// Start starts the server and blocks until it is shut down
func (s *Server) Start() error {
	s.rateLimiter.StartCleanup(time.Minute)

	logging.Info(fmt.Sprintf("Starting status server at: %s", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("status server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down server...")
	s.rateLimiter.Stop()

	if err := s.server.Shutdown(ctx); err != nil {
		logging.Error("Server forced to shutdown", "error", err)
		if err := s.server.Close(); err != nil {
			logging.Error("Server close error", "error", err)
			return err
		}
	}

	logging.Info("Server shutdown complete")
	return nil
}

// respondWithJSON writes a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err, "payload_type", fmt.Sprintf("%T", payload))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	if _, err := w.Write(data); err != nil {
		logging.Debug("Failed to write response", "error", err)
	}
}

func respondWithError(w http.ResponseWriter, code int, msg string) {
	respondWithJSON(w, code, map[string]string{"error": msg})
}
