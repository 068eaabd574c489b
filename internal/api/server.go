// Package api provides the HTTP API server implementation.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/savings-metrics/internal/logging"
	"github.com/savings-metrics/internal/models"
)

// SavingsMetricsServiceInterface defines the metrics engine as seen by the API
type SavingsMetricsServiceInterface interface {
	ComputeSavingsMetrics(ctx context.Context, userID string) (*models.SavingsMetrics, error)
}

// Server represents the HTTP API server.
type Server struct {
	router         *mux.Router
	httpServer     *http.Server
	metricsService SavingsMetricsServiceInterface
	config         *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	RequestsPerSecond int // per client
	Burst             int
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, metricsService SavingsMetricsServiceInterface) *Server {
	s := &Server{
		router:         mux.NewRouter(),
		metricsService: metricsService,
		config:         config,
	}

	s.setupRouter()

	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	rateLimiter := NewRateLimiter(s.config.RequestsPerSecond, s.config.Burst)

	// order matters: request IDs must exist before logging and rate limiting
	s.router.Use(RequestIDMiddleware)
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(RateLimitMiddleware(rateLimiter))
	api.HandleFunc("/users/{id}/savings-metrics", s.handleGetSavingsMetrics).Methods(http.MethodGet, http.MethodOptions)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "savings-metrics",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.WithField("addr", s.httpServer.Addr).Info("Starting API server")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.GetGlobalLogger().Info("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}
