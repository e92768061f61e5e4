package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the GPU Test API
type Config struct {
	// Server configuration
	HTTPHost string `env:"GPUTEST_HTTP_HOST" envDefault:"0.0.0.0"`
	HTTPPort int    `env:"GPUTEST_HTTP_PORT" envDefault:"8000"`
	GRPCPort int    `env:"GPUTEST_GRPC_PORT" envDefault:"9000"` // 0 disables the gRPC server
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Accelerator configuration
	Device DeviceConfig

	// Redis configuration, optional
	Redis RedisConfig

	// Timeouts
	Timeouts TimeoutConfig
}

// DeviceConfig holds accelerator and benchmark configuration
type DeviceConfig struct {
	Kind            string        `env:"GPUTEST_DEVICE" envDefault:"auto"`
	MatrixSize      int           `env:"GPUTEST_MATRIX_SIZE" envDefault:"10000"`
	HostMemoryLimit int64         `env:"GPUTEST_HOST_MEMORY_LIMIT" envDefault:"0"`
	MonitorInterval time.Duration `env:"GPUTEST_MONITOR_INTERVAL" envDefault:"30s"`
}

// RedisConfig holds Redis connection configuration. An empty Addr keeps
// benchmark events in process.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASS"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`

	// Stream settings
	StreamMaxLen int64 `env:"REDIS_STREAM_MAXLEN" envDefault:"1000"`

	// Connection pool settings
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	MaxRetries   int           `env:"REDIS_MAX_RETRIES" envDefault:"3"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// TimeoutConfig holds various timeout configurations
type TimeoutConfig struct {
	ShutdownTimeout time.Duration `env:"TIMEOUT_SHUTDOWN" envDefault:"30s"`
}

// Load reads configuration from an optional .env file and the environment.
// Variables already set in the environment take precedence over the file.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server ports
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.GRPCPort < 0 || c.GRPCPort > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPCPort)
	}
	if c.GRPCPort != 0 && c.GRPCPort == c.HTTPPort {
		return fmt.Errorf("gRPC port %d collides with HTTP port", c.GRPCPort)
	}

	// Validate device config
	validDevices := map[string]bool{
		"auto": true,
		"cuda": true,
		"host": true,
		"none": true,
	}
	if !validDevices[c.Device.Kind] {
		return fmt.Errorf("invalid device: %s (must be auto, cuda, host, or none)", c.Device.Kind)
	}
	if c.Device.MatrixSize < 1 {
		return fmt.Errorf("matrix size must be at least 1")
	}
	if c.Device.HostMemoryLimit < 0 {
		return fmt.Errorf("host memory limit must not be negative")
	}
	if c.Device.MonitorInterval <= 0 {
		return fmt.Errorf("monitor interval must be positive")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// RedisEnabled reports whether events should go through Redis
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// GetGRPCAddr returns the gRPC server address
func (c *Config) GetGRPCAddr() string {
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.GRPCPort))
}
