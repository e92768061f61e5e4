package monitor

import (
	"sync"
	"time"

	"github.com/aescanero/gputest/pkg/ports"
	"go.uber.org/zap"
)

// DeviceMonitor periodically samples device availability and memory
type DeviceMonitor struct {
	device   ports.Device
	metrics  ports.MetricsCollector
	interval time.Duration
	logger   *zap.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Status is a single device sample
type Status struct {
	Device    string
	Available bool
	Memory    ports.MemoryStats
	Timestamp time.Time
}

// DefaultInterval is used when NewDeviceMonitor gets a non-positive interval
const DefaultInterval = 30 * time.Second

// NewDeviceMonitor creates a new device monitor. metrics may be nil.
func NewDeviceMonitor(device ports.Device, metrics ports.MetricsCollector, interval time.Duration, logger *zap.Logger) *DeviceMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &DeviceMonitor{
		device:   device,
		metrics:  metrics,
		interval: interval,
		logger:   logger,
	}
}

// Start starts the monitor loop. Calling Start twice is a no-op.
func (m *DeviceMonitor) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.run(m.stopCh, m.doneCh)
}

// Stop stops the monitor loop and waits for it to exit
func (m *DeviceMonitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stopCh, doneCh := m.stopCh, m.doneCh
	m.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// run is the main monitoring loop
func (m *DeviceMonitor) run(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.Check()
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check samples the device once, logs the sample and records metrics
func (m *DeviceMonitor) Check() *Status {
	status := &Status{
		Device:    m.device.Name(),
		Available: m.device.Available(),
		Timestamp: time.Now(),
	}

	stats, err := m.device.MemoryStats()
	if err != nil {
		m.logger.Warn("failed to read device memory",
			zap.String("device", status.Device),
			zap.Error(err))
	} else {
		status.Memory = stats
	}

	m.logger.Debug("device check",
		zap.String("device", status.Device),
		zap.Bool("available", status.Available),
		zap.Int64("allocated_bytes", status.Memory.Allocated),
		zap.Int64("free_bytes", status.Memory.Free),
		zap.Int64("total_bytes", status.Memory.Total))

	if m.metrics != nil {
		m.metrics.RecordDeviceStatus(status.Device, status.Available, status.Memory)
	}

	if status.Memory.Total > 0 && status.Memory.Free*10 < status.Memory.Total {
		m.logger.Warn("device memory nearly exhausted",
			zap.String("device", status.Device),
			zap.Int64("free_bytes", status.Memory.Free),
			zap.Int64("total_bytes", status.Memory.Total))
	}

	return status
}
