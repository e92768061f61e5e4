// Package monitor samples the accelerator on a fixed interval.
//
// Each sample logs availability and memory usage and updates the device
// gauges, so memory held by in-flight benchmarks is visible between
// requests.
package monitor
