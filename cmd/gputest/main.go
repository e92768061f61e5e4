package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/gputest/internal/application/benchmark"
	"github.com/aescanero/gputest/internal/application/monitor"
	"github.com/aescanero/gputest/internal/config"
	"github.com/aescanero/gputest/pkg/adapters/accel"
	"github.com/aescanero/gputest/pkg/adapters/events/memory"
	"github.com/aescanero/gputest/pkg/adapters/events/redis"
	"github.com/aescanero/gputest/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/gputest/pkg/api/grpc"
	"github.com/aescanero/gputest/pkg/api/http"
	"github.com/aescanero/gputest/pkg/api/websocket"
	"github.com/aescanero/gputest/pkg/ports"

	promclient "github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Version is set by build flags
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("starting GPU Test API",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	// Initialize accelerator
	device, err := accel.NewDevice(&accel.Config{
		Kind:            cfg.Device.Kind,
		HostMemoryLimit: cfg.Device.HostMemoryLimit,
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal("failed to initialize device", zap.Error(err))
	}
	logger.Info("accelerator ready",
		zap.String("device", device.Name()),
		zap.Bool("available", device.Available()),
		zap.Int("matrix_size", cfg.Device.MatrixSize))

	// Initialize event bus
	ctx := context.Background()
	var eventBus ports.EventBus
	var redisClient *goredis.Client
	if cfg.RedisEnabled() {
		redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxRetries:   cfg.Redis.MaxRetries,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})

		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))

		eventBus = redis.NewStreamsEventBus(redisClient, cfg.Redis.StreamMaxLen, logger)
	} else {
		eventBus = memory.NewInMemoryEventBus(logger)
	}

	metricsCollector := prometheus.NewCollector(promclient.DefaultRegisterer)

	// Initialize application components
	runner := benchmark.NewRunner(
		device,
		eventBus,
		metricsCollector,
		cfg.Device.MatrixSize,
		logger,
	)

	deviceMonitor := monitor.NewDeviceMonitor(
		device,
		metricsCollector,
		cfg.Device.MonitorInterval,
		logger,
	)
	deviceMonitor.Start()

	// Initialize API servers
	httpServer := http.NewServer(&http.Config{
		Addr:    cfg.GetHTTPAddr(),
		Runner:  runner,
		Metrics: metricsCollector,
		Logger:  logger,
	})

	// Add WebSocket handler to HTTP server
	wsHandler := websocket.NewHandler(eventBus, logger)
	httpServer.SetupWebSocket(wsHandler)

	var grpcServer *grpc.Server
	if cfg.GRPCPort != 0 {
		grpcServer, err = grpc.NewServer(&grpc.Config{
			Addr:            cfg.GetGRPCAddr(),
			Device:          device,
			RefreshInterval: cfg.Device.MonitorInterval,
			Logger:          logger,
		})
		if err != nil {
			logger.Fatal("failed to create gRPC server", zap.Error(err))
		}
	}

	// Start servers
	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	if grpcServer != nil {
		go func() {
			if err := grpcServer.Start(); err != nil {
				logger.Fatal("gRPC server failed", zap.Error(err))
			}
		}()
	}

	logger.Info("GPU Test API started",
		zap.String("http_addr", cfg.GetHTTPAddr()),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.Bool("redis_events", cfg.RedisEnabled()))

	// Wait for interrupt signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("received shutdown signal")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if grpcServer != nil {
		if err := grpcServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("gRPC server shutdown error", zap.Error(err))
		}
	}

	deviceMonitor.Stop()

	if err := device.Close(); err != nil {
		logger.Error("device close error", zap.Error(err))
	}

	if err := eventBus.Close(); err != nil {
		logger.Error("event bus close error", zap.Error(err))
	}

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error("Redis close error", zap.Error(err))
		}
	}

	logger.Info("GPU Test API shut down complete")
}

// initLogger initializes the logger based on log level
func initLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapLevel)
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	return logger
}
