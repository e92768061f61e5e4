package memory

import (
	"context"
	"sync"

	"github.com/aescanero/gputest/pkg/ports"
	"go.uber.org/zap"
)

// subscriptionBuffer is how many undelivered events a subscriber may lag behind
const subscriptionBuffer = 64

// delivery is one queued event with the publisher's context values
type delivery struct {
	ctx   context.Context
	event ports.Event
}

// subscription owns an ordered queue drained by a single goroutine
type subscription struct {
	id      uint64
	handler ports.EventHandler
	queue   chan delivery
	done    chan struct{}
}

// InMemoryEventBus implements EventBus using in-process handlers
type InMemoryEventBus struct {
	subscribers map[string][]*subscription
	nextID      uint64
	mu          sync.RWMutex
	logger      *zap.Logger
}

// NewInMemoryEventBus creates a new in-memory event bus
func NewInMemoryEventBus(logger *zap.Logger) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryEventBus{
		subscribers: make(map[string][]*subscription),
		logger:      logger,
	}
}

// Publish queues an event for every subscriber of a topic. Events reach each
// handler in publish order; a subscriber whose queue is full misses the event.
func (e *InMemoryEventBus) Publish(ctx context.Context, topic string, event ports.Event) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	d := delivery{ctx: context.WithoutCancel(ctx), event: event}
	for _, sub := range e.subscribers[topic] {
		select {
		case sub.queue <- d:
		default:
			e.logger.Warn("subscriber queue full, dropping event",
				zap.String("topic", topic),
				zap.Uint64("subscription", sub.id),
				zap.String("event_type", string(event.Type)))
		}
	}

	return nil
}

// Subscribe subscribes to events on a specific topic until ctx is done
func (e *InMemoryEventBus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) error {
	sub := &subscription{
		handler: handler,
		queue:   make(chan delivery, subscriptionBuffer),
		done:    make(chan struct{}),
	}

	e.mu.Lock()
	e.nextID++
	sub.id = e.nextID
	e.subscribers[topic] = append(e.subscribers[topic], sub)
	e.mu.Unlock()

	go e.deliver(ctx, topic, sub)

	return nil
}

// deliver hands queued events to the handler one at a time
func (e *InMemoryEventBus) deliver(ctx context.Context, topic string, sub *subscription) {
	for {
		select {
		case <-ctx.Done():
			e.unsubscribe(topic, sub.id)
			return
		case <-sub.done:
			return
		case d := <-sub.queue:
			if err := sub.handler(d.ctx, d.event); err != nil {
				e.logger.Debug("event handler failed",
					zap.String("topic", topic),
					zap.Uint64("subscription", sub.id),
					zap.Error(err))
			}
		}
	}
}

// SubscriberCount returns the number of live subscriptions on topic
func (e *InMemoryEventBus) SubscriberCount(topic string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.subscribers[topic])
}

// Close closes the event bus and drops all subscribers
func (e *InMemoryEventBus) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, subs := range e.subscribers {
		for _, sub := range subs {
			close(sub.done)
		}
	}
	e.subscribers = make(map[string][]*subscription)
	return nil
}

// unsubscribe removes a single subscription from a topic
func (e *InMemoryEventBus) unsubscribe(topic string, id uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	subs := e.subscribers[topic]
	for i, s := range subs {
		if s.id == id {
			e.subscribers[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(e.subscribers[topic]) == 0 {
		delete(e.subscribers, topic)
	}
}
