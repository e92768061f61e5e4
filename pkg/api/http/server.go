package http

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aescanero/gputest/internal/application/benchmark"
	"github.com/aescanero/gputest/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// EventStreamHandler streams benchmark events to a client
type EventStreamHandler interface {
	HandleEventStream(c *gin.Context)
}

// Server represents the HTTP API server
type Server struct {
	router *gin.Engine
	server *http.Server
	runner *benchmark.Runner
	logger *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Addr   string
	Runner *benchmark.Runner
	// Metrics records per-request metrics, optional
	Metrics ports.MetricsCollector
	// Gatherer backs /metrics; the default registry when nil
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	// Only the exact paths exist; anything else is a plain 404
	router.RedirectTrailingSlash = false
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger, cfg.Metrics))
	router.Use(corsMiddleware())

	s := &Server{
		router: router,
		runner: cfg.Runner,
		logger: logger,
	}

	s.setupRoutes(cfg.Gatherer)

	s.server = &http.Server{
		Addr:    cfg.Addr,
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.readOnly("/", s.handleIndex)
	s.readOnly("/ping", s.handlePing)
	s.readOnly("/gputest", s.handleGPUTest)

	// Metrics
	metricsHandler := promhttp.Handler()
	if gatherer != nil {
		metricsHandler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	s.router.GET("/metrics", gin.WrapH(metricsHandler))
}

// readOnly serves handler for GET and HEAD and answers CORS preflight on path
func (s *Server) readOnly(path string, handler gin.HandlerFunc) {
	s.router.GET(path, handler)
	s.router.HEAD(path, handler)
	s.router.OPTIONS(path, handlePreflight)
}

// SetupWebSocket adds the event stream endpoint to the server
func (s *Server) SetupWebSocket(handler EventStreamHandler) {
	s.router.GET("/ws/events", handler.HandleEventStream)
}

// Handler returns the router, for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
