package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shaunnez/diamond-opus-sub001/store"
	"github.com/shaunnez/diamond-opus-sub001/types"
)

// Scheduler is the collaborator-facing entry point for scan-and-plan cycles.
//
// One Scheduler serves one range counter (one feed backend). Each RunScan
// performs a full density scan, derives a partition plan, and records the
// result in the scan history; the surrounding pipeline then dispatches one
// message per partition to workers. PreviewScan runs the same algorithm with
// a reduced probe budget for interactive iteration.
type Scheduler struct {
	counter types.RangeCounter
	history types.ScanHistoryStore

	logger  types.Logger
	metrics types.MetricsCollector
}

// NewScheduler creates a Scheduler for the given range counter.
//
// Parameters:
//   - counter: Range-count query backend for the feed
//   - opts: Optional logger, metrics, and history store
//
// Returns:
//   - *Scheduler: Initialized scheduler
//   - error: ErrRangeCounterRequired if counter is nil
//
// Example:
//
//	sched, err := scan.NewScheduler(counter,
//	    scan.WithHistoryStore(hist),
//	    scan.WithLogger(logger),
//	)
//	if err != nil { /* handle */ }
//	result, err := sched.RunScan(ctx, "inventory", scan.DefaultConfig())
func NewScheduler(counter types.RangeCounter, opts ...Option) (*Scheduler, error) {
	if counter == nil {
		return nil, ErrRangeCounterRequired
	}

	o := applyOptions(opts)
	if o.history == nil {
		o.history = store.NewMemory()
	}

	return &Scheduler{
		counter: counter,
		history: o.history,
		logger:  o.logger,
		metrics: o.metrics,
	}, nil
}

// RunScan performs a full scan-and-plan cycle for a run.
//
// Unset config fields are filled from DefaultConfig. On success the result is
// recorded in the scan history under (feed, ScanTypeRun). A scan failure
// produces no result and no history entry: callers must treat it as "no plan
// available, do not schedule this run".
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - feed: Name of the inventory feed being scanned
//   - cfg: Scan configuration (zero fields defaulted)
//
// Returns:
//   - types.ScanResult: Density map, partition plan, and stats
//   - error: ErrInvalidConfig or ErrScanFailed (wrapped)
func (s *Scheduler) RunScan(ctx context.Context, feed string, cfg Config) (types.ScanResult, error) {
	SetDefaults(&cfg)

	return s.scan(ctx, feed, types.ScanTypeRun, cfg)
}

// PreviewScan performs a reduced-budget scan using the same algorithm.
//
// Unset config fields are filled from PreviewConfig rather than
// DefaultConfig, so a zero-valued config yields a cheap single-pass sweep.
// The result is recorded under (feed, ScanTypePreview) and never used to
// schedule a run.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - feed: Name of the inventory feed being scanned
//   - cfg: Partial scan configuration (zero fields filled from preview defaults)
//
// Returns:
//   - types.ScanResult: Density map, partition plan, and stats
//   - error: ErrInvalidConfig or ErrScanFailed (wrapped)
func (s *Scheduler) PreviewScan(ctx context.Context, feed string, cfg Config) (types.ScanResult, error) {
	setDefaultsFrom(&cfg, PreviewConfig())

	return s.scan(ctx, feed, types.ScanTypePreview, cfg)
}

// scan runs the scanner and planner and records the result.
func (s *Scheduler) scan(ctx context.Context, feed string, scanType types.ScanType, cfg Config) (types.ScanResult, error) {
	if err := cfg.Validate(); err != nil {
		return types.ScanResult{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	scanner, err := NewDensityScanner(s.counter, cfg, WithLogger(s.logger), WithMetrics(s.metrics))
	if err != nil {
		return types.ScanResult{}, err
	}

	s.logger.Info("scan starting",
		"feed", feed, "scan_type", scanType,
		"min", cfg.MinValue, "max", cfg.MaxValue,
		"mode", cfg.Mode, "max_workers", cfg.MaxWorkers,
	)

	densityMap, stats, err := scanner.Scan(ctx)
	if err != nil {
		s.logger.Error("scan failed, no plan produced",
			"feed", feed, "scan_type", scanType, "api_calls", stats.APICalls, "error", err)

		return types.ScanResult{}, err
	}

	partitions, err := PlanPartitions(densityMap, cfg.MaxWorkers)
	if err != nil {
		return types.ScanResult{}, err
	}

	s.metrics.RecordScan(scanType, stats.APICalls, stats.Elapsed.Seconds())
	s.metrics.RecordPartitionCount(len(partitions))
	s.metrics.RecordPartitionImbalance(planImbalance(partitions, stats.TotalRecords))

	result := types.ScanResult{
		RunID:        uuid.NewString(),
		Feed:         feed,
		TotalRecords: stats.TotalRecords,
		WorkerCount:  len(partitions),
		Stats:        stats,
		DensityMap:   densityMap,
		Partitions:   partitions,
		CreatedAt:    time.Now().UTC(),
	}

	// History is inspection-only; a failed write does not invalidate the plan.
	if err := s.history.SaveScan(ctx, feed, scanType, result); err != nil {
		s.logger.Warn("failed to record scan history",
			"feed", feed, "scan_type", scanType, "run_id", result.RunID, "error", err)
	}

	s.logger.Info("scan complete",
		"feed", feed, "scan_type", scanType, "run_id", result.RunID,
		"total_records", result.TotalRecords, "worker_count", result.WorkerCount,
		"api_calls", stats.APICalls,
	)

	return result, nil
}

// ScanHistory returns the latest run and preview results recorded for a feed.
// Entries that have never been recorded are nil; that is not an error.
//
// History retrieval is the primitive that lets operators replay and inspect
// the most recent plan without re-running a scan.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - feed: Name of the inventory feed
//
// Returns:
//   - types.ScanHistory: Latest run/preview results (nil fields when absent)
//   - error: Store failure
func (s *Scheduler) ScanHistory(ctx context.Context, feed string) (types.ScanHistory, error) {
	var history types.ScanHistory

	run, err := s.history.LoadScan(ctx, feed, types.ScanTypeRun)
	switch {
	case err == nil:
		history.Run = &run
	case errors.Is(err, ErrScanNotFound):
		// Never scanned; leave nil.
	default:
		return types.ScanHistory{}, fmt.Errorf("failed to load run history: %w", err)
	}

	preview, err := s.history.LoadScan(ctx, feed, types.ScanTypePreview)
	switch {
	case err == nil:
		history.Preview = &preview
	case errors.Is(err, ErrScanNotFound):
		// Never previewed; leave nil.
	default:
		return types.ScanHistory{}, fmt.Errorf("failed to load preview history: %w", err)
	}

	return history, nil
}
