// Package ports defines the contracts between the application layer and
// its adapters.
//
// Contracts:
//   - Device: accelerator memory and dense matrix work
//   - EventBus: benchmark lifecycle events
//   - MetricsCollector: benchmark, device and HTTP metrics
package ports
