// Package grpc serves the standard gRPC health protocol.
//
// The empty service name is always SERVING while the process runs.
// The gputest.accelerator service is SERVING only when the device accepts
// work, so orchestrators can route benchmark traffic to GPU nodes.
package grpc
