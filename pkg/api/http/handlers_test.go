package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aescanero/gputest/internal/application/benchmark"
	"github.com/aescanero/gputest/pkg/adapters/accel/host"
	"github.com/aescanero/gputest/pkg/adapters/accel/none"
	metricsprom "github.com/aescanero/gputest/pkg/adapters/metrics/prometheus"
	"github.com/aescanero/gputest/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

var completedPattern = regexp.MustCompile(`^GPU computation completed in (\d+\.\d{4}) seconds$`)

func newTestServer(t *testing.T, device ports.Device) *Server {
	t.Helper()
	reg := prometheus.NewRegistry()
	collector := metricsprom.NewCollector(reg)
	runner := benchmark.NewRunner(device, nil, collector, 16, nil)

	return NewServer(&Config{
		Addr:     "127.0.0.1:0",
		Runner:   runner,
		Metrics:  collector,
		Gatherer: reg,
	})
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHandleIndex(t *testing.T) {
	for _, dev := range []ports.Device{none.New(), host.New(0, nil)} {
		s := newTestServer(t, dev)
		w := get(t, s, "/")

		if w.Code != http.StatusOK {
			t.Errorf("Expected status 200, got %d", w.Code)
		}
		if w.Body.String() != "GPU Test API is running" {
			t.Errorf("Unexpected body %q", w.Body.String())
		}
		if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
			t.Errorf("Expected text/plain, got %q", ct)
		}
	}
}

func TestHandlePing(t *testing.T) {
	s := newTestServer(t, none.New())
	w := get(t, s, "/ping")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "pong" {
		t.Errorf("Expected pong, got %q", w.Body.String())
	}
}

func TestHandleGPUTestUnavailable(t *testing.T) {
	s := newTestServer(t, none.New())
	w := get(t, s, "/gputest")

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "GPU not available" {
		t.Errorf("Expected GPU not available, got %q", w.Body.String())
	}
}

func TestHandleGPUTestCompleted(t *testing.T) {
	s := newTestServer(t, host.New(0, nil))
	w := get(t, s, "/gputest")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	m := completedPattern.FindStringSubmatch(w.Body.String())
	if m == nil {
		t.Fatalf("Body %q does not match expected format", w.Body.String())
	}
	seconds, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		t.Fatalf("Failed to parse elapsed: %v", err)
	}
	if seconds < 0 {
		t.Errorf("Expected non-negative elapsed, got %f", seconds)
	}
}

func TestHandleGPUTestDeviceFailure(t *testing.T) {
	// too small for even one 16x16 matrix
	s := newTestServer(t, host.New(64, nil))
	w := get(t, s, "/gputest")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("Expected empty body, got %q", w.Body.String())
	}
}

func TestHandleGPUTestDoesNotLeak(t *testing.T) {
	dev := host.New(0, nil)
	s := newTestServer(t, dev)

	baseline, _ := dev.MemoryStats()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if w := get(t, s, "/gputest"); w.Code != http.StatusOK {
				t.Errorf("Expected status 200, got %d", w.Code)
			}
		}()
	}
	wg.Wait()

	after, _ := dev.MemoryStats()
	if after.Allocated != baseline.Allocated {
		t.Errorf("Expected allocated memory %d after requests, got %d", baseline.Allocated, after.Allocated)
	}
}

func TestUnknownPathNotFound(t *testing.T) {
	s := newTestServer(t, host.New(0, nil))

	for _, path := range []string{"/nope", "/gputest/extra", "/ping/", "/GPUTEST"} {
		w := get(t, s, path)
		if w.Code != http.StatusNotFound {
			t.Errorf("Expected 404 for %s, got %d", path, w.Code)
		}
		body := w.Body.String()
		for _, known := range []string{"GPU Test API is running", "pong", "GPU not available", "GPU computation completed"} {
			if strings.Contains(body, known) {
				t.Errorf("Path %s returned a known body %q", path, body)
			}
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, none.New())
	get(t, s, "/gputest")

	w := get(t, s, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `gputest_benchmarks_total{result="unavailable"} 1`) {
		t.Errorf("Expected unavailable benchmark counter in metrics output")
	}
	if !strings.Contains(body, `gputest_http_requests_total{method="GET",route="/gputest",status="200"} 1`) {
		t.Errorf("Expected HTTP request counter in metrics output")
	}
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, none.New())

	req := httptest.NewRequest(http.MethodOptions, "/gputest", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("Expected status 204, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS header")
	}
}

func TestMethodRouting(t *testing.T) {
	s := newTestServer(t, none.New())

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodHead, "/", http.StatusOK},
		{http.MethodHead, "/ping", http.StatusOK},
		{http.MethodHead, "/gputest", http.StatusOK},
		{http.MethodOptions, "/ping", http.StatusNoContent},
		{http.MethodOptions, "/nope", http.StatusNotFound},
		{http.MethodOptions, "/ping/", http.StatusNotFound},
		{http.MethodPost, "/ping", http.StatusNotFound},
		{http.MethodHead, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		if w.Code != tt.want {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.want, w.Code)
		}
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	s := newTestServer(t, none.New())
	if err := s.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}
