package scan

import "github.com/shaunnez/diamond-opus-sub001/types"

// Option configures a Scheduler or DensityScanner with optional dependencies.
type Option func(*schedulerOptions)

// schedulerOptions holds optional configuration.
type schedulerOptions struct {
	logger  types.Logger
	metrics types.MetricsCollector
	history types.ScanHistoryStore
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewScheduler / NewDensityScanner
//
// Example:
//
//	logger := logging.NewSlogDefault()
//	sched, err := scan.NewScheduler(counter, scan.WithLogger(logger))
func WithLogger(logger types.Logger) Option {
	return func(o *schedulerOptions) {
		o.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewScheduler / NewDensityScanner
//
// Example:
//
//	collector := metrics.NewPrometheus(nil, "feedscan")
//	sched, err := scan.NewScheduler(counter, scan.WithMetrics(collector))
func WithMetrics(metrics types.MetricsCollector) Option {
	return func(o *schedulerOptions) {
		o.metrics = metrics
	}
}

// WithHistoryStore sets the store that records the latest scan result per
// (feed, scan type). When omitted, the scheduler keeps history in memory.
//
// Parameters:
//   - history: ScanHistoryStore implementation
//
// Returns:
//   - Option: Functional option for NewScheduler
//
// Example:
//
//	hist, _ := store.NewNATSKV(ctx, js, store.DefaultKVConfig())
//	sched, err := scan.NewScheduler(counter, scan.WithHistoryStore(hist))
func WithHistoryStore(history types.ScanHistoryStore) Option {
	return func(o *schedulerOptions) {
		o.history = history
	}
}
