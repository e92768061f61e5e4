package accel

import (
	"errors"
	"fmt"

	"github.com/aescanero/gputest/pkg/adapters/accel/cuda"
	"github.com/aescanero/gputest/pkg/adapters/accel/host"
	"github.com/aescanero/gputest/pkg/adapters/accel/none"
	"github.com/aescanero/gputest/pkg/ports"
	"go.uber.org/zap"
)

// Supported device kinds
const (
	KindAuto = "auto"
	KindCUDA = "cuda"
	KindHost = "host"
	KindNone = "none"
)

// ErrUnknownDevice is returned for an unsupported device kind
var ErrUnknownDevice = errors.New("unknown device kind")

// Config holds device selection settings
type Config struct {
	Kind string
	// HostMemoryLimit caps host device allocations in bytes, 0 for no limit
	HostMemoryLimit int64
	Logger          *zap.Logger
}

// cudaOpen is swapped in tests
var cudaOpen = cuda.Open

// NewDevice creates a device based on kind
func NewDevice(cfg *Config) (ports.Device, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Kind {
	case KindCUDA:
		dev, err := cudaOpen(logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open CUDA device: %w", err)
		}
		return dev, nil
	case KindHost:
		return host.New(cfg.HostMemoryLimit, logger), nil
	case KindNone:
		return none.New(), nil
	case KindAuto, "":
		dev, err := cudaOpen(logger)
		if err != nil {
			// A missing accelerator is a normal condition, reported by /gputest
			logger.Info("no accelerator detected, GPU benchmark disabled",
				zap.Bool("cuda_compiled", cuda.Compiled),
				zap.Error(err))
			return none.New(), nil
		}
		return dev, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, cfg.Kind)
	}
}
