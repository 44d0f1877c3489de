package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// Tracker methods in particular are called on every page a worker processes
// and must be cheap and thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better modularity.
type MetricsCollector interface {
	ScannerMetrics
	PlannerMetrics
	TrackerMetrics
}

// ScannerMetrics defines metrics for density scan operations.
type ScannerMetrics interface {
	// RecordProbeDuration records the latency of one range-count probe.
	//
	// Parameters:
	//   - seconds: Probe latency in seconds
	RecordProbeDuration(seconds float64)

	// IncrementProbeRetry records one retry of a failed probe.
	IncrementProbeRetry()

	// RecordScan records a completed scan.
	//
	// Parameters:
	//   - scanType: "run" or "preview"
	//   - apiCalls: Total probe attempts issued
	//   - seconds: Wall-clock scan duration in seconds
	RecordScan(scanType ScanType, apiCalls int, seconds float64)

	// IncrementBisection records one two-pass bisection of a saturated chunk.
	IncrementBisection()
}

// PlannerMetrics defines metrics for partition planning.
type PlannerMetrics interface {
	// RecordPartitionCount sets the partition count of the latest plan.
	RecordPartitionCount(count int)

	// RecordPartitionImbalance records the ratio of the largest partition's
	// record count to the ideal per-partition target (1.0 = perfectly even).
	RecordPartitionImbalance(ratio float64)
}

// TrackerMetrics defines metrics for partition progress operations.
type TrackerMetrics interface {
	// RecordCASResult records the outcome of one conditional update.
	//
	// Rejections are expected idempotency events under at-least-once
	// delivery, not failures; they are counted, never logged as errors.
	//
	// Parameters:
	//   - op: Operation name ("advance" or "complete")
	//   - applied: true if the transition was applied
	RecordCASResult(op string, applied bool)

	// RecordStoreOperationDuration records progress store call latency.
	//
	// Parameters:
	//   - op: Operation type ("create", "get", "update")
	//   - seconds: Time taken in seconds
	RecordStoreOperationDuration(op string, seconds float64)
}
