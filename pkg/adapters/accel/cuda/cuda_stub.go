//go:build !cuda

package cuda

import (
	"github.com/aescanero/gputest/pkg/ports"
	"go.uber.org/zap"
)

// Compiled reports whether the CUDA backend is part of this build
const Compiled = false

// Open always fails in builds without the cuda tag
func Open(logger *zap.Logger) (ports.Device, error) {
	return nil, ErrNotCompiled
}
