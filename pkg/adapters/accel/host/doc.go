// Package host implements ports.Device on the CPU with gonum.
//
// It stands in for an accelerator on machines without one: matrices are
// float64 gonum dense matrices, multiplies run on a background stream and
// memory is accounted against an optional limit so that out-of-memory
// behaviour can be exercised.
package host
