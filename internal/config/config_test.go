package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func missingEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.GetHTTPAddr() != "0.0.0.0:8000" {
		t.Errorf("Expected HTTP addr 0.0.0.0:8000, got %s", cfg.GetHTTPAddr())
	}
	if cfg.Device.Kind != "auto" {
		t.Errorf("Expected device auto, got %s", cfg.Device.Kind)
	}
	if cfg.Device.MatrixSize != 10000 {
		t.Errorf("Expected matrix size 10000, got %d", cfg.Device.MatrixSize)
	}
	if cfg.Device.MonitorInterval != 30*time.Second {
		t.Errorf("Expected monitor interval 30s, got %v", cfg.Device.MonitorInterval)
	}
	if cfg.RedisEnabled() {
		t.Error("Expected Redis to be disabled by default")
	}
	if cfg.Timeouts.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected shutdown timeout 30s, got %v", cfg.Timeouts.ShutdownTimeout)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("GPUTEST_HTTP_PORT", "8081")
	t.Setenv("GPUTEST_GRPC_PORT", "0")
	t.Setenv("GPUTEST_DEVICE", "host")
	t.Setenv("GPUTEST_MATRIX_SIZE", "512")
	t.Setenv("GPUTEST_HOST_MEMORY_LIMIT", "1048576")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(missingEnvFile(t))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HTTPPort != 8081 {
		t.Errorf("Expected HTTP port 8081, got %d", cfg.HTTPPort)
	}
	if cfg.GRPCPort != 0 {
		t.Errorf("Expected gRPC port 0, got %d", cfg.GRPCPort)
	}
	if cfg.Device.Kind != "host" || cfg.Device.MatrixSize != 512 || cfg.Device.HostMemoryLimit != 1048576 {
		t.Errorf("Unexpected device config: %+v", cfg.Device)
	}
	if !cfg.RedisEnabled() {
		t.Error("Expected Redis to be enabled")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.LogLevel)
	}
}

func TestLoadFromDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "GPUTEST_DEVICE=none\nGPUTEST_MATRIX_SIZE=64\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("GPUTEST_DEVICE")
		os.Unsetenv("GPUTEST_MATRIX_SIZE")
	})

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Device.Kind != "none" {
		t.Errorf("Expected device none, got %s", cfg.Device.Kind)
	}
	if cfg.Device.MatrixSize != 64 {
		t.Errorf("Expected matrix size 64, got %d", cfg.Device.MatrixSize)
	}
}

func TestEnvironmentOverridesDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("GPUTEST_DEVICE=none\n"), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("GPUTEST_DEVICE", "host")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Device.Kind != "host" {
		t.Errorf("Expected device host, got %s", cfg.Device.Kind)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad port", "GPUTEST_HTTP_PORT", "70000", "invalid HTTP port"},
		{"bad grpc port", "GPUTEST_GRPC_PORT", "-1", "invalid gRPC port"},
		{"port collision", "GPUTEST_GRPC_PORT", "8000", "collides"},
		{"bad device", "GPUTEST_DEVICE", "tpu", "invalid device"},
		{"bad matrix size", "GPUTEST_MATRIX_SIZE", "0", "matrix size"},
		{"bad log level", "LOG_LEVEL", "trace", "invalid log level"},
		{"unparsable", "GPUTEST_MATRIX_SIZE", "big", "failed to parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load(missingEnvFile(t))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
