// Package accel provides accelerator device implementations.
//
// The factory creates devices based on the configured kind:
//   - cuda: NVIDIA GPU via cuBLAS/cuRAND (build tag cuda)
//   - host: CPU emulation on gonum dense matrices
//   - none: no accelerator
//   - auto: cuda when present, otherwise none
package accel
