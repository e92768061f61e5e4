package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/gputest/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMatrixSize is the dimension of the square matrices multiplied per run
const DefaultMatrixSize = 10000

// Run results, used as metric labels
const (
	ResultCompleted   = "completed"
	ResultFailed      = "failed"
	ResultUnavailable = "unavailable"
)

// ErrUnavailable is returned when the device reports no accelerator
var ErrUnavailable = errors.New("GPU not available")

// Result describes a completed benchmark run
type Result struct {
	RunID      string
	Device     string
	MatrixSize int
	Elapsed    time.Duration
}

// Message renders the response sentence for the run
func (r *Result) Message() string {
	return FormatMessage(r.Elapsed)
}

// FormatMessage renders elapsed as seconds with four fractional digits
func FormatMessage(elapsed time.Duration) string {
	return fmt.Sprintf("GPU computation completed in %.4f seconds", elapsed.Seconds())
}

// Runner allocates two random matrices on the device, multiplies them and
// times the multiply up to device synchronisation.
type Runner struct {
	device   ports.Device
	eventBus ports.EventBus
	metrics  ports.MetricsCollector
	size     int
	logger   *zap.Logger
}

// NewRunner creates a new benchmark runner. eventBus and metrics may be nil.
func NewRunner(
	device ports.Device,
	eventBus ports.EventBus,
	metrics ports.MetricsCollector,
	size int,
	logger *zap.Logger,
) *Runner {
	if size <= 0 {
		size = DefaultMatrixSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		device:   device,
		eventBus: eventBus,
		metrics:  metrics,
		size:     size,
		logger:   logger,
	}
}

// Device returns the device the runner benchmarks
func (r *Runner) Device() ports.Device {
	return r.device
}

// Run executes one benchmark. It returns ErrUnavailable without touching
// the device when no accelerator is present.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	runID := uuid.New().String()
	deviceName := r.device.Name()

	if !r.device.Available() {
		r.logger.Debug("benchmark skipped, no accelerator",
			zap.String("run_id", runID),
			zap.String("device", deviceName))
		r.publish(ctx, runID, ports.EventTypeBenchmarkUnavailable, map[string]interface{}{
			"device": deviceName,
		})
		r.record(ResultUnavailable, 0)
		return nil, ErrUnavailable
	}

	if r.metrics != nil {
		r.metrics.IncBenchmarksInFlight()
		defer r.metrics.DecBenchmarksInFlight()
	}

	r.publish(ctx, runID, ports.EventTypeBenchmarkStarted, map[string]interface{}{
		"device":      deviceName,
		"matrix_size": r.size,
	})

	elapsed, err := r.multiply()
	if err != nil {
		r.logger.Error("benchmark failed",
			zap.String("run_id", runID),
			zap.String("device", deviceName),
			zap.Int("matrix_size", r.size),
			zap.Error(err))
		r.publish(ctx, runID, ports.EventTypeBenchmarkFailed, map[string]interface{}{
			"device": deviceName,
			"error":  err.Error(),
		})
		r.record(ResultFailed, 0)
		return nil, fmt.Errorf("benchmark %s failed: %w", runID, err)
	}

	result := &Result{
		RunID:      runID,
		Device:     deviceName,
		MatrixSize: r.size,
		Elapsed:    elapsed,
	}

	r.logger.Info("benchmark completed",
		zap.String("run_id", runID),
		zap.String("device", deviceName),
		zap.Int("matrix_size", r.size),
		zap.Duration("elapsed", elapsed))
	r.publish(ctx, runID, ports.EventTypeBenchmarkCompleted, map[string]interface{}{
		"device":          deviceName,
		"matrix_size":     r.size,
		"elapsed_seconds": elapsed.Seconds(),
	})
	r.record(ResultCompleted, elapsed)

	return result, nil
}

// multiply runs allocate, multiply, synchronise and releases every matrix
// it allocated before returning.
func (r *Runner) multiply() (elapsed time.Duration, err error) {
	var allocated []ports.Matrix
	defer func() {
		for _, m := range allocated {
			if ferr := r.device.Free(m); ferr != nil && err == nil {
				err = fmt.Errorf("failed to free matrix: %w", ferr)
			}
		}
	}()

	a, err := r.device.RandN(r.size)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate matrix a: %w", err)
	}
	allocated = append(allocated, a)

	b, err := r.device.RandN(r.size)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate matrix b: %w", err)
	}
	allocated = append(allocated, b)

	start := time.Now()
	c, err := r.device.MatMul(a, b)
	if err != nil {
		return 0, fmt.Errorf("failed to multiply: %w", err)
	}
	allocated = append(allocated, c)

	if err := r.device.Synchronize(); err != nil {
		return 0, fmt.Errorf("failed to synchronize: %w", err)
	}

	return time.Since(start), nil
}

// publish emits a run event. Failures are logged and never returned.
func (r *Runner) publish(ctx context.Context, runID string, eventType ports.EventType, data map[string]interface{}) {
	if r.eventBus == nil {
		return
	}

	event := ports.Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		RunID:     runID,
		Timestamp: time.Now(),
		Data:      data,
	}

	if err := r.eventBus.Publish(ctx, ports.TopicBenchmark, event); err != nil {
		r.logger.Warn("failed to publish event",
			zap.String("run_id", runID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

func (r *Runner) record(result string, elapsed time.Duration) {
	if r.metrics != nil {
		r.metrics.RecordBenchmark(result, elapsed)
	}
}
