// Package metrics provides MetricsCollector implementations for the
// scheduling core: a no-op collector used as the default and a
// Prometheus-backed collector for production.
package metrics

import "github.com/shaunnez/diamond-opus-sub001/types"

// NopMetrics is a no-op metrics collector that discards all measurements.
//
// Used as the default when no collector is injected, so components can record
// metrics unconditionally without nil checks.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
//
// Returns:
//   - *NopMetrics: Collector that performs no operations
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordProbeDuration discards the measurement.
func (n *NopMetrics) RecordProbeDuration(_ /* seconds */ float64) {}

// IncrementProbeRetry discards the event.
func (n *NopMetrics) IncrementProbeRetry() {}

// RecordScan discards the measurement.
func (n *NopMetrics) RecordScan(_ /* scanType */ types.ScanType, _ /* apiCalls */ int, _ /* seconds */ float64) {
}

// IncrementBisection discards the event.
func (n *NopMetrics) IncrementBisection() {}

// RecordPartitionCount discards the measurement.
func (n *NopMetrics) RecordPartitionCount(_ /* count */ int) {}

// RecordPartitionImbalance discards the measurement.
func (n *NopMetrics) RecordPartitionImbalance(_ /* ratio */ float64) {}

// RecordCASResult discards the event.
func (n *NopMetrics) RecordCASResult(_ /* op */ string, _ /* applied */ bool) {}

// RecordStoreOperationDuration discards the measurement.
func (n *NopMetrics) RecordStoreOperationDuration(_ /* op */ string, _ /* seconds */ float64) {}
