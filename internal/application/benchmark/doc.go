// Package benchmark implements the GPU matrix multiplication benchmark.
//
// A run:
//   - checks that the device is available
//   - allocates two n×n standard normal matrices in device memory
//   - times a dense multiply up to device synchronisation
//   - releases every matrix it allocated, on success and on failure
//
// Runs share nothing. Concurrent runs contend for the device without any
// queueing or admission control.
package benchmark
