// Package scan divides an unbounded, unevenly distributed numeric range into
// near-balanced units of work without prior knowledge of the distribution.
//
// The package is the scheduling half of an ingestion pipeline: a scheduler
// asks for a partition plan once per run, dispatches one message per
// partition to workers, and the progress package tracks each worker's
// paginated walk through its partition.
//
// # Quick Start
//
//	sched, err := scan.NewScheduler(counter)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := sched.RunScan(ctx, "inventory", scan.DefaultConfig())
//	if err != nil {
//	    // No plan available; do not schedule this run.
//	    log.Fatal(err)
//	}
//
//	for _, p := range result.Partitions {
//	    dispatch(result.RunID, p)
//	}
//
// # How scanning works
//
// The DensityScanner probes the value space in bounded-size range-count
// queries, building a histogram of record counts per sub-range. Regions below
// DenseZoneThreshold are probed with a finer step because that is where
// records concentrate. In two-pass mode, probes that exceed
// SaturationThreshold are bisected iteratively until each chunk's count falls
// under the threshold or the sub-range reaches MinBisectWidth.
//
// PlanPartitions then accumulates consecutive chunks greedily into at most
// MaxWorkers contiguous partitions of approximately equal record counts.
//
// The density map is an estimate used only for load balancing: workers
// independently discover the true record count as they page through their
// partition, so scan accuracy affects balance, never correctness.
//
// # Preview scans
//
// PreviewScan runs the identical algorithm with a reduced probe budget for
// fast iteration on scan settings. Both scan types record their latest result
// in a ScanHistoryStore, keyed by (feed, scan type), last-write-wins.
package scan
