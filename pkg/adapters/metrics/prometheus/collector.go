package prometheus

import (
	"strconv"
	"time"

	"github.com/aescanero/gputest/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	benchmarks        *prometheus.CounterVec
	benchmarkDuration *prometheus.HistogramVec
	inFlight          prometheus.Gauge

	deviceAvailable *prometheus.GaugeVec
	deviceAllocated *prometheus.GaugeVec
	deviceFree      *prometheus.GaugeVec
	deviceTotal     *prometheus.GaugeVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

var _ ports.MetricsCollector = (*Collector)(nil)

// NewCollector creates a new Prometheus metrics collector registered on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		benchmarks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gputest_benchmarks_total",
				Help: "Total number of GPU benchmark runs by result",
			},
			[]string{"result"},
		),
		benchmarkDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gputest_benchmark_duration_seconds",
				Help:    "Time from multiply submission to device synchronisation",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"result"},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gputest_benchmarks_in_flight",
				Help: "Number of benchmark runs currently executing",
			},
		),
		deviceAvailable: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gputest_device_available",
				Help: "1 if the accelerator accepts work, 0 otherwise",
			},
			[]string{"device"},
		),
		deviceAllocated: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gputest_device_memory_allocated_bytes",
				Help: "Device memory held by live benchmark matrices",
			},
			[]string{"device"},
		),
		deviceFree: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gputest_device_memory_free_bytes",
				Help: "Free device memory as reported by the backend",
			},
			[]string{"device"},
		),
		deviceTotal: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gputest_device_memory_total_bytes",
				Help: "Total device memory as reported by the backend",
			},
			[]string{"device"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gputest_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gputest_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
}

// RecordBenchmark records a finished benchmark run
func (c *Collector) RecordBenchmark(result string, duration time.Duration) {
	c.benchmarks.WithLabelValues(result).Inc()
	if duration > 0 {
		c.benchmarkDuration.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncBenchmarksInFlight marks a run as started
func (c *Collector) IncBenchmarksInFlight() {
	c.inFlight.Inc()
}

// DecBenchmarksInFlight marks a run as finished
func (c *Collector) DecBenchmarksInFlight() {
	c.inFlight.Dec()
}

// RecordDeviceStatus records device availability and memory
func (c *Collector) RecordDeviceStatus(device string, available bool, stats ports.MemoryStats) {
	value := 0.0
	if available {
		value = 1
	}
	c.deviceAvailable.WithLabelValues(device).Set(value)
	c.deviceAllocated.WithLabelValues(device).Set(float64(stats.Allocated))
	c.deviceFree.WithLabelValues(device).Set(float64(stats.Free))
	c.deviceTotal.WithLabelValues(device).Set(float64(stats.Total))
}

// RecordHTTPRequest records a served HTTP request
func (c *Collector) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
