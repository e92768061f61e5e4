//go:build cuda

package cuda

/*
#cgo LDFLAGS: -lcudart -lcublas -lcurand
#include <cuda_runtime.h>
#include <cublas_v2.h>
#include <curand.h>
*/
import "C"

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/aescanero/gputest/pkg/ports"
	"go.uber.org/zap"
)

const bytesPerElement = 4 // float32

// Compiled reports whether the CUDA backend is part of this build
const Compiled = true

// Device drives the first CUDA device through cuRAND and cuBLAS
type Device struct {
	// mu serialises use of the cuBLAS handle and cuRAND generator
	mu        sync.Mutex
	blas      C.cublasHandle_t
	rng       C.curandGenerator_t
	name      string
	allocated atomic.Int64
	closed    atomic.Bool
	logger    *zap.Logger
}

// matrix is a float32 n×n buffer in device memory. cuRAND's normal
// generator needs an even element count, so odd buffers carry one pad element.
type matrix struct {
	owner *Device
	ptr   unsafe.Pointer
	n     int
	elems int
	freed atomic.Bool
}

func (m *matrix) Size() int    { return m.n }
func (m *matrix) Bytes() int64 { return int64(m.elems) * bytesPerElement }

// Open initialises the CUDA runtime on device 0
func Open(logger *zap.Logger) (ports.Device, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var count C.int
	if rc := C.cudaGetDeviceCount(&count); rc != C.cudaSuccess {
		return nil, fmt.Errorf("cuda: get device count: %s", cudaError(rc))
	}
	if count == 0 {
		return nil, ErrNoDevice
	}
	if rc := C.cudaSetDevice(0); rc != C.cudaSuccess {
		return nil, fmt.Errorf("cuda: set device: %s", cudaError(rc))
	}

	var props C.struct_cudaDeviceProp
	if rc := C.cudaGetDeviceProperties(&props, 0); rc != C.cudaSuccess {
		return nil, fmt.Errorf("cuda: get device properties: %s", cudaError(rc))
	}

	d := &Device{
		name:   "cuda:" + C.GoString(&props.name[0]),
		logger: logger,
	}

	if st := C.cublasCreate(&d.blas); st != C.CUBLAS_STATUS_SUCCESS {
		return nil, fmt.Errorf("cuda: cublasCreate failed with status %d", int(st))
	}
	if st := C.curandCreateGenerator(&d.rng, C.CURAND_RNG_PSEUDO_DEFAULT); st != C.CURAND_STATUS_SUCCESS {
		C.cublasDestroy(d.blas)
		return nil, fmt.Errorf("cuda: curandCreateGenerator failed with status %d", int(st))
	}
	seed := C.ulonglong(time.Now().UnixNano())
	if st := C.curandSetPseudoRandomGeneratorSeed(d.rng, seed); st != C.CURAND_STATUS_SUCCESS {
		C.curandDestroyGenerator(d.rng)
		C.cublasDestroy(d.blas)
		return nil, fmt.Errorf("cuda: seed generator failed with status %d", int(st))
	}

	logger.Info("CUDA device opened",
		zap.String("device", d.name),
		zap.Int("device_count", int(count)))

	return d, nil
}

// Name returns the device name reported by the driver
func (d *Device) Name() string {
	return d.name
}

// Available reports whether the device accepts work
func (d *Device) Available() bool {
	return !d.closed.Load()
}

// RandN allocates an n×n float32 matrix filled by cuRAND with N(0, 1) values
func (d *Device) RandN(n int) (ports.Matrix, error) {
	if n <= 0 {
		return nil, fmt.Errorf("cuda: invalid matrix size %d", n)
	}
	m, err := d.alloc(n)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	st := C.curandGenerateNormal(d.rng, (*C.float)(m.ptr), C.size_t(m.elems), 0, 1)
	d.mu.Unlock()
	if st != C.CURAND_STATUS_SUCCESS {
		d.Free(m)
		return nil, fmt.Errorf("cuda: curandGenerateNormal failed with status %d", int(st))
	}

	return m, nil
}

// MatMul allocates the product and enqueues cublasSgemm
func (d *Device) MatMul(a, b ports.Matrix) (ports.Matrix, error) {
	ma, err := d.own(a)
	if err != nil {
		return nil, err
	}
	mb, err := d.own(b)
	if err != nil {
		return nil, err
	}
	if ma.n != mb.n {
		return nil, fmt.Errorf("cuda: matrix shape mismatch %d vs %d", ma.n, mb.n)
	}

	n := ma.n
	out, err := d.alloc(n)
	if err != nil {
		return nil, err
	}

	alpha, beta := C.float(1), C.float(0)
	d.mu.Lock()
	st := C.cublasSgemm(d.blas, C.CUBLAS_OP_N, C.CUBLAS_OP_N,
		C.int(n), C.int(n), C.int(n),
		&alpha,
		(*C.float)(ma.ptr), C.int(n),
		(*C.float)(mb.ptr), C.int(n),
		&beta,
		(*C.float)(out.ptr), C.int(n))
	d.mu.Unlock()
	if st != C.CUBLAS_STATUS_SUCCESS {
		d.Free(out)
		return nil, fmt.Errorf("cuda: cublasSgemm failed with status %d", int(st))
	}

	return out, nil
}

// Synchronize waits for all work on the device
func (d *Device) Synchronize() error {
	if rc := C.cudaDeviceSynchronize(); rc != C.cudaSuccess {
		return fmt.Errorf("cuda: synchronize: %s", cudaError(rc))
	}
	return nil
}

// Free releases the device buffer behind m
func (d *Device) Free(m ports.Matrix) error {
	if m == nil {
		return nil
	}
	cm, ok := m.(*matrix)
	if !ok || cm == nil || cm.owner != d {
		return ErrForeignMatrix
	}
	if !cm.freed.CompareAndSwap(false, true) {
		return nil
	}
	d.allocated.Add(-cm.Bytes())
	if rc := C.cudaFree(cm.ptr); rc != C.cudaSuccess {
		return fmt.Errorf("cuda: free: %s", cudaError(rc))
	}
	return nil
}

// MemoryStats combines this process's allocations with the driver's view
func (d *Device) MemoryStats() (ports.MemoryStats, error) {
	var free, total C.size_t
	if rc := C.cudaMemGetInfo(&free, &total); rc != C.cudaSuccess {
		return ports.MemoryStats{}, fmt.Errorf("cuda: mem get info: %s", cudaError(rc))
	}
	return ports.MemoryStats{
		Allocated: d.allocated.Load(),
		Free:      int64(free),
		Total:     int64(total),
	}, nil
}

// Close destroys the cuBLAS handle and cuRAND generator
func (d *Device) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = d.Synchronize()

	d.mu.Lock()
	defer d.mu.Unlock()
	C.curandDestroyGenerator(d.rng)
	C.cublasDestroy(d.blas)

	d.logger.Info("CUDA device closed", zap.String("device", d.name))
	return nil
}

func (d *Device) alloc(n int) (*matrix, error) {
	if d.closed.Load() {
		return nil, fmt.Errorf("cuda: device closed")
	}
	elems := n * n
	if elems%2 != 0 {
		elems++
	}
	m := &matrix{owner: d, n: n, elems: elems}

	var ptr unsafe.Pointer
	if rc := C.cudaMalloc(&ptr, C.size_t(m.Bytes())); rc != C.cudaSuccess {
		return nil, fmt.Errorf("cuda: malloc %d bytes: %s", m.Bytes(), cudaError(rc))
	}
	m.ptr = ptr
	d.allocated.Add(m.Bytes())
	return m, nil
}

// own checks that m is a live matrix allocated by this device
func (d *Device) own(m ports.Matrix) (*matrix, error) {
	cm, ok := m.(*matrix)
	if !ok || cm == nil || cm.owner != d {
		return nil, ErrForeignMatrix
	}
	if cm.freed.Load() {
		return nil, ErrFreed
	}
	return cm, nil
}

func cudaError(rc C.cudaError_t) string {
	return C.GoString(C.cudaGetErrorString(rc))
}
