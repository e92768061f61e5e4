// Package cuda implements ports.Device on an NVIDIA GPU.
//
// The backend links against cudart, cuBLAS and cuRAND through cgo and is
// only compiled with the cuda build tag:
//
//	go build -tags cuda ./cmd/gputest
//
// Without the tag, Open returns ErrNotCompiled.
package cuda
