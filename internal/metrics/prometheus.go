package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/shaunnez/diamond-opus-sub001/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Metric registration is deferred until first use so that constructing the
// collector never panics on duplicate registration in tests.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// Scanner metrics
	probeDuration prometheus.Histogram
	probeRetries  prometheus.Counter
	scanAPICalls  *prometheus.HistogramVec
	scanDuration  *prometheus.HistogramVec
	bisections    prometheus.Counter

	// Planner metrics
	partitionCount     prometheus.Gauge
	partitionImbalance prometheus.Gauge

	// Tracker metrics
	casResults    *prometheus.CounterVec
	storeDuration *prometheus.HistogramVec
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "feedscan" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "feedscan"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.probeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "scanner",
			Name:      "probe_duration_seconds",
			Help:      "Latency of range-count probes in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 1.6, 10), // 10ms .. ~1.6s
		})

		p.probeRetries = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "scanner",
			Name:      "probe_retries_total",
			Help:      "Total probe retries after transient failures.",
		})

		p.scanAPICalls = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "scanner",
			Name:      "scan_api_calls",
			Help:      "Probe attempts issued per completed scan by scan type.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}, []string{"scan_type"})

		p.scanDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "scanner",
			Name:      "scan_duration_seconds",
			Help:      "Wall-clock duration of completed scans by scan type.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"scan_type"})

		p.bisections = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "scanner",
			Name:      "bisections_total",
			Help:      "Total two-pass bisections of saturated chunks.",
		})

		p.partitionCount = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "planner",
			Name:      "partitions_current",
			Help:      "Partition count of the most recent plan.",
		})

		p.partitionImbalance = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "planner",
			Name:      "partition_imbalance_ratio",
			Help:      "Largest partition record count over the ideal target (1.0 = even).",
		})

		p.casResults = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "tracker",
			Name:      "cas_results_total",
			Help:      "Conditional update outcomes by operation (advance,complete) and result (applied,rejected).",
		}, []string{"op", "result"})

		p.storeDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "tracker",
			Name:      "store_operation_duration_seconds",
			Help:      "Progress store operation latency in seconds by operation.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"op"})

		p.reg.MustRegister(p.probeDuration)
		p.reg.MustRegister(p.probeRetries)
		p.reg.MustRegister(p.scanAPICalls)
		p.reg.MustRegister(p.scanDuration)
		p.reg.MustRegister(p.bisections)
		p.reg.MustRegister(p.partitionCount)
		p.reg.MustRegister(p.partitionImbalance)
		p.reg.MustRegister(p.casResults)
		p.reg.MustRegister(p.storeDuration)
	})
}

// ScannerMetrics implementation

// RecordProbeDuration observes one probe's latency.
func (p *PrometheusCollector) RecordProbeDuration(seconds float64) {
	p.ensureRegistered()
	p.probeDuration.Observe(seconds)
}

// IncrementProbeRetry increments the probe retry counter.
func (p *PrometheusCollector) IncrementProbeRetry() {
	p.ensureRegistered()
	p.probeRetries.Inc()
}

// RecordScan records a completed scan's probe count and duration.
func (p *PrometheusCollector) RecordScan(scanType types.ScanType, apiCalls int, seconds float64) {
	p.ensureRegistered()
	p.scanAPICalls.WithLabelValues(string(scanType)).Observe(float64(apiCalls))
	p.scanDuration.WithLabelValues(string(scanType)).Observe(seconds)
}

// IncrementBisection increments the bisection counter.
func (p *PrometheusCollector) IncrementBisection() {
	p.ensureRegistered()
	p.bisections.Inc()
}

// PlannerMetrics implementation

// RecordPartitionCount sets the partition count gauge.
func (p *PrometheusCollector) RecordPartitionCount(count int) {
	p.ensureRegistered()
	p.partitionCount.Set(float64(count))
}

// RecordPartitionImbalance sets the imbalance ratio gauge.
func (p *PrometheusCollector) RecordPartitionImbalance(ratio float64) {
	p.ensureRegistered()
	p.partitionImbalance.Set(ratio)
}

// TrackerMetrics implementation

// RecordCASResult counts one conditional update outcome.
func (p *PrometheusCollector) RecordCASResult(op string, applied bool) {
	p.ensureRegistered()
	result := "rejected"
	if applied {
		result = "applied"
	}
	p.casResults.WithLabelValues(op, result).Inc()
}

// RecordStoreOperationDuration observes progress store call latency.
func (p *PrometheusCollector) RecordStoreOperationDuration(op string, seconds float64) {
	p.ensureRegistered()
	p.storeDuration.WithLabelValues(op).Observe(seconds)
}
