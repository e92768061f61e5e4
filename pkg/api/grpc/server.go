package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/aescanero/gputest/pkg/ports"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// AcceleratorService is the health service name that tracks the device
const AcceleratorService = "gputest.accelerator"

// Server represents the gRPC health server
type Server struct {
	server   *grpc.Server
	listener net.Listener
	health   *health.Server
	device   ports.Device
	interval time.Duration
	logger   *zap.Logger

	stopCh chan struct{}
}

// Config holds gRPC server configuration
type Config struct {
	Addr   string
	Device ports.Device
	// RefreshInterval controls how often device availability is re-read
	RefreshInterval time.Duration
	Logger          *zap.Logger
}

// NewServer creates a new gRPC server serving grpc.health.v1.Health
func NewServer(cfg *Config) (*Server, error) {
	listener, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return nil, fmt.Errorf("failed to create listener: %w", err)
	}
	return newServer(cfg, listener), nil
}

func newServer(cfg *Config, listener net.Listener) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.RefreshInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	s := &Server{
		server:   grpcServer,
		listener: listener,
		health:   healthServer,
		device:   cfg.Device,
		interval: interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
	s.refresh()

	return s
}

// Start starts the gRPC server and the availability refresher
func (s *Server) Start() error {
	s.logger.Info("starting gRPC server", zap.String("addr", s.listener.Addr().String()))

	go s.watchDevice()

	if err := s.server.Serve(s.listener); err != nil {
		return fmt.Errorf("failed to serve gRPC: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down gRPC server")

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-ctx.Done():
		s.server.Stop()
	}

	s.logger.Info("gRPC server shut down complete")
	return nil
}

// watchDevice keeps the accelerator health status current
func (s *Server) watchDevice() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.refresh()
		}
	}
}

// refresh maps device availability to a serving status
func (s *Server) refresh() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	status := healthpb.HealthCheckResponse_NOT_SERVING
	if s.device != nil && s.device.Available() {
		status = healthpb.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(AcceleratorService, status)
}
