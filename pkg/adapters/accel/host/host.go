package host

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/aescanero/gputest/pkg/ports"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

const bytesPerElement = 8 // float64

var (
	// ErrOutOfMemory is returned when an allocation would exceed the memory limit
	ErrOutOfMemory = errors.New("host device: out of memory")
	// ErrShapeMismatch is returned when multiplying matrices of different sizes
	ErrShapeMismatch = errors.New("host device: matrix shape mismatch")
	// ErrInvalidSize is returned for non-positive matrix dimensions
	ErrInvalidSize = errors.New("host device: invalid matrix size")
	// ErrForeignMatrix is returned for handles created by another device
	ErrForeignMatrix = errors.New("host device: matrix not owned by this device")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("host device: closed")
	// ErrFreed is returned for handles that were already freed
	ErrFreed = errors.New("host device: use of freed matrix")
)

// Device emulates an accelerator on the CPU using gonum dense matrices.
// Multiplies run on a background stream; Synchronize waits for them.
type Device struct {
	limit     int64
	allocated atomic.Int64
	closed    atomic.Bool
	stream    *stream
	logger    *zap.Logger
}

// matrix is the host implementation of ports.Matrix
type matrix struct {
	owner *Device
	dense *mat.Dense
	n     int
	freed atomic.Bool
}

func (m *matrix) Size() int    { return m.n }
func (m *matrix) Bytes() int64 { return matrixBytes(m.n) }

// New creates a host device. A memoryLimit of 0 means unlimited.
func New(memoryLimit int64, logger *zap.Logger) *Device {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Device{
		limit:  memoryLimit,
		stream: newStream(),
		logger: logger,
	}
}

// Name returns the backend name
func (d *Device) Name() string {
	return "host"
}

// Available reports whether the device accepts work
func (d *Device) Available() bool {
	return !d.closed.Load()
}

// RandN allocates an n×n matrix with standard normal entries
func (d *Device) RandN(n int) (ports.Matrix, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}

	if err := d.reserve(matrixBytes(n)); err != nil {
		return nil, err
	}

	data := make([]float64, n*n)
	for i := range data {
		data[i] = distuv.UnitNormal.Rand()
	}

	return &matrix{owner: d, dense: mat.NewDense(n, n, data), n: n}, nil
}

// MatMul allocates a×b and enqueues the multiply on the device stream
func (d *Device) MatMul(a, b ports.Matrix) (ports.Matrix, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}

	ma, err := d.own(a)
	if err != nil {
		return nil, err
	}
	mb, err := d.own(b)
	if err != nil {
		return nil, err
	}
	if ma.n != mb.n {
		return nil, fmt.Errorf("%w: %dx%d * %dx%d", ErrShapeMismatch, ma.n, ma.n, mb.n, mb.n)
	}

	n := ma.n
	if err := d.reserve(matrixBytes(n)); err != nil {
		return nil, err
	}

	out := &matrix{owner: d, dense: mat.NewDense(n, n, nil), n: n}
	left, right, dst := ma.dense, mb.dense, out.dense
	d.stream.enqueue(func() {
		dst.Mul(left, right)
	})

	return out, nil
}

// Synchronize blocks until every enqueued multiply has finished
func (d *Device) Synchronize() error {
	d.stream.wait()
	return nil
}

// Free releases the memory held by m
func (d *Device) Free(m ports.Matrix) error {
	if m == nil {
		return nil
	}
	hm, ok := m.(*matrix)
	if !ok || hm == nil || hm.owner != d {
		return ErrForeignMatrix
	}
	if hm.freed.CompareAndSwap(false, true) {
		d.allocated.Add(-hm.Bytes())
	}
	return nil
}

// MemoryStats reports memory held by live matrices
func (d *Device) MemoryStats() (ports.MemoryStats, error) {
	allocated := d.allocated.Load()
	stats := ports.MemoryStats{
		Allocated: allocated,
		Total:     d.limit,
	}
	if d.limit > 0 {
		stats.Free = d.limit - allocated
	}
	return stats, nil
}

// Close waits for outstanding work and marks the device unavailable
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	d.stream.wait()
	d.logger.Info("host device closed", zap.Int64("allocated_bytes", d.allocated.Load()))
	return nil
}

// reserve accounts for size bytes, failing when the limit would be exceeded
func (d *Device) reserve(size int64) error {
	for {
		current := d.allocated.Load()
		next := current + size
		if d.limit > 0 && next > d.limit {
			return fmt.Errorf("%w: requested %d bytes, %d of %d in use", ErrOutOfMemory, size, current, d.limit)
		}
		if d.allocated.CompareAndSwap(current, next) {
			return nil
		}
	}
}

// own checks that m is a live matrix created by this device
func (d *Device) own(m ports.Matrix) (*matrix, error) {
	hm, ok := m.(*matrix)
	if !ok || hm == nil || hm.owner != d {
		return nil, ErrForeignMatrix
	}
	if hm.freed.Load() {
		return nil, ErrFreed
	}
	return hm, nil
}

func matrixBytes(n int) int64 {
	return int64(n) * int64(n) * bytesPerElement
}

// stream runs enqueued work in the background and tracks completion
type stream struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending int
}

func newStream() *stream {
	s := &stream{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

func (s *stream) enqueue(fn func()) {
	s.mu.Lock()
	s.pending++
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.pending--
			if s.pending == 0 {
				s.cond.Broadcast()
			}
			s.mu.Unlock()
		}()
		fn()
	}()
}

func (s *stream) wait() {
	s.mu.Lock()
	for s.pending > 0 {
		s.cond.Wait()
	}
	s.mu.Unlock()
}
