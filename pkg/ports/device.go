package ports

// Matrix is an opaque handle to a square matrix living in device memory.
// Handles are only meaningful to the device that created them.
type Matrix interface {
	// Size returns the dimension n of the n×n matrix
	Size() int
	// Bytes returns the device memory held by the matrix
	Bytes() int64
}

// MemoryStats describes device memory usage in bytes
type MemoryStats struct {
	// Allocated is the memory currently held by live matrices
	Allocated int64 `json:"allocated"`
	// Free is the memory still available on the device, 0 when unknown
	Free int64 `json:"free"`
	// Total is the device capacity, 0 when unknown or unlimited
	Total int64 `json:"total"`
}

// Device is an accelerator capable of dense matrix work.
//
// Work submitted through MatMul may run asynchronously; callers must call
// Synchronize before reading timings or results. Implementations are safe
// for concurrent use.
type Device interface {
	// Name identifies the backend for logs and metrics
	Name() string

	// Available reports whether the device can accept work
	Available() bool

	// RandN allocates an n×n matrix filled from the standard normal distribution
	RandN(n int) (Matrix, error)

	// MatMul allocates the product a×b and enqueues the multiply
	MatMul(a, b Matrix) (Matrix, error)

	// Synchronize blocks until all previously enqueued work has completed
	Synchronize() error

	// Free releases the matrix memory. Freeing twice is a no-op.
	Free(m Matrix) error

	// MemoryStats reports current memory usage
	MemoryStats() (MemoryStats, error)

	// Close releases the device
	Close() error
}
