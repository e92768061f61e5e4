// Package http provides the HTTP API.
//
// The HTTP server exposes:
//   - GET /          liveness text
//   - GET /ping      pong
//   - GET /gputest   GPU matrix multiplication benchmark
//   - GET /metrics   Prometheus metrics
//   - GET /ws/events live benchmark events (when a stream handler is set up)
//
// The first three also answer HEAD, and OPTIONS with a CORS preflight.
// All benchmark responses are text/plain.
package http
