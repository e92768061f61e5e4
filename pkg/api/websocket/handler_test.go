package websocket

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aescanero/gputest/pkg/adapters/events/memory"
	"github.com/aescanero/gputest/pkg/ports"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

func TestHandleEventStream(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bus := memory.NewInMemoryEventBus(nil)
	handler := NewHandler(bus, nil)

	router := gin.New()
	router.GET("/ws/events", handler.HandleEventStream)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount(ports.TopicBenchmark) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	event := ports.Event{
		ID:        "e1",
		Type:      ports.EventTypeBenchmarkCompleted,
		RunID:     "run-1",
		Timestamp: time.Now(),
		Data:      map[string]interface{}{"elapsed_seconds": 0.5},
	}
	if err := bus.Publish(context.Background(), ports.TopicBenchmark, event); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}

	var got ports.Event
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Failed to decode event: %v", err)
	}
	if got.ID != "e1" || got.Type != ports.EventTypeBenchmarkCompleted || got.RunID != "run-1" {
		t.Errorf("Unexpected event: %+v", got)
	}
}

func TestHandleEventStreamUnsubscribesOnClose(t *testing.T) {
	gin.SetMode(gin.TestMode)

	bus := memory.NewInMemoryEventBus(nil)
	router := gin.New()
	router.GET("/ws/events", NewHandler(bus, nil).HandleEventStream)
	srv := httptest.NewServer(router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for bus.SubscriberCount(ports.TopicBenchmark) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for bus.SubscriberCount(ports.TopicBenchmark) != 0 {
		if time.Now().After(deadline) {
			t.Fatal("Subscription was not removed after client disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}
