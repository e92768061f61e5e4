package none

import (
	"errors"

	"github.com/aescanero/gputest/pkg/ports"
)

// ErrUnavailable is returned by every operation of the none device
var ErrUnavailable = errors.New("no accelerator available")

// Device represents the absence of an accelerator
type Device struct{}

// New creates a device that is never available
func New() *Device {
	return &Device{}
}

func (Device) Name() string    { return "none" }
func (Device) Available() bool { return false }

func (Device) RandN(int) (ports.Matrix, error) {
	return nil, ErrUnavailable
}

func (Device) MatMul(ports.Matrix, ports.Matrix) (ports.Matrix, error) {
	return nil, ErrUnavailable
}

func (Device) Synchronize() error      { return ErrUnavailable }
func (Device) Free(ports.Matrix) error { return nil }
func (Device) Close() error            { return nil }

func (Device) MemoryStats() (ports.MemoryStats, error) {
	return ports.MemoryStats{}, nil
}
