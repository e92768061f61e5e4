package cuda

import "errors"

var (
	// ErrNoDevice is returned when the CUDA runtime reports no devices
	ErrNoDevice = errors.New("cuda: no devices found")
	// ErrNotCompiled is returned when the binary was built without the cuda tag
	ErrNotCompiled = errors.New("cuda: backend not compiled in (build with -tags cuda)")
	// ErrForeignMatrix is returned for handles allocated by another device
	ErrForeignMatrix = errors.New("cuda: matrix not owned by this device")
	// ErrFreed is returned when a freed matrix is passed to MatMul
	ErrFreed = errors.New("cuda: use of freed matrix")
)
