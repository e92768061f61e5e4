package ports

import "time"

// MetricsCollector records benchmark and device metrics
type MetricsCollector interface {
	RecordBenchmark(result string, duration time.Duration)
	IncBenchmarksInFlight()
	DecBenchmarksInFlight()
	RecordDeviceStatus(device string, available bool, stats MemoryStats)
	RecordHTTPRequest(method, route string, status int, duration time.Duration)
}
