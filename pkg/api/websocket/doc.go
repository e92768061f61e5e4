// Package websocket provides real-time benchmark event streaming.
//
// Clients connect to /ws/events and receive every benchmark.* event as a
// JSON text frame.
package websocket
