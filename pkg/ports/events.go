package ports

import (
	"context"
	"time"
)

// EventType identifies what happened during a benchmark run
type EventType string

const (
	EventTypeBenchmarkStarted     EventType = "benchmark.started"
	EventTypeBenchmarkCompleted   EventType = "benchmark.completed"
	EventTypeBenchmarkFailed      EventType = "benchmark.failed"
	EventTypeBenchmarkUnavailable EventType = "benchmark.unavailable"
)

// TopicBenchmark is the topic all benchmark events are published on
const TopicBenchmark = "benchmark.events"

// Event is a single benchmark lifecycle notification
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	RunID     string                 `json:"run_id"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// EventHandler processes an event delivered by an EventBus
type EventHandler func(ctx context.Context, event Event) error

// EventBus publishes and delivers events by topic
type EventBus interface {
	// Publish sends an event to every subscriber of topic
	Publish(ctx context.Context, topic string, event Event) error

	// Subscribe registers handler on topic until ctx is cancelled
	Subscribe(ctx context.Context, topic string, handler EventHandler) error

	// Close releases bus resources
	Close() error
}
