package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/shaunnez/diamond-opus-sub001/types"
)

func TestNopMetrics_AllMethodsSafe(t *testing.T) {
	t.Parallel()

	m := NewNop()

	m.RecordProbeDuration(0.01)
	m.IncrementProbeRetry()
	m.RecordScan(types.ScanTypeRun, 42, 1.5)
	m.IncrementBisection()
	m.RecordPartitionCount(8)
	m.RecordPartitionImbalance(1.2)
	m.RecordCASResult("advance", true)
	m.RecordCASResult("complete", false)
	m.RecordStoreOperationDuration("update", 0.002)
}

func TestPrometheusCollector_RegistersOnce(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg, "testns")

	// Repeated use must only register each metric once.
	m.RecordCASResult("advance", true)
	m.RecordCASResult("advance", false)
	m.RecordScan(types.ScanTypePreview, 10, 0.2)
	m.RecordPartitionCount(4)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["testns_tracker_cas_results_total"])
	require.True(t, names["testns_scanner_scan_api_calls"])
	require.True(t, names["testns_planner_partitions_current"])
}

func TestPrometheusCollector_DefaultNamespace(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg, "")
	m.IncrementProbeRetry()

	families, err := reg.Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if f.GetName() == "feedscan_scanner_probe_retries_total" {
			found = true
		}
	}
	require.True(t, found, "expected default namespace to apply")
}
