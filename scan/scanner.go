package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/shaunnez/diamond-opus-sub001/internal/logging"
	"github.com/shaunnez/diamond-opus-sub001/internal/metrics"
	"github.com/shaunnez/diamond-opus-sub001/types"
)

// DensityScanner builds a record-count histogram over the value space using
// bounded range-count probes.
//
// The scanner never enumerates individual records: its cost is the number of
// probes issued, which is bounded by the configured step sizes and budget.
// Probes are strictly sequential because each chunk boundary depends on the
// previous result; this keeps probe count bounded and the output
// deterministic for a fixed config against a static data set.
type DensityScanner struct {
	counter types.RangeCounter
	cfg     Config

	logger  types.Logger
	metrics types.MetricsCollector
}

// NewDensityScanner creates a scanner for the given counter and validated
// configuration.
//
// Parameters:
//   - counter: Range-count query backend
//   - cfg: Scan configuration; callers should apply SetDefaults and Validate first
//   - opts: Optional logger/metrics injection
//
// Returns:
//   - *DensityScanner: Initialized scanner
//   - error: ErrRangeCounterRequired if counter is nil
//
// Example:
//
//	cfg := scan.DefaultConfig()
//	scanner, err := scan.NewDensityScanner(counter, cfg)
//	if err != nil { /* handle */ }
//	densityMap, stats, err := scanner.Scan(ctx)
func NewDensityScanner(counter types.RangeCounter, cfg Config, opts ...Option) (*DensityScanner, error) {
	if counter == nil {
		return nil, ErrRangeCounterRequired
	}

	o := applyOptions(opts)

	return &DensityScanner{
		counter: counter,
		cfg:     cfg,
		logger:  o.logger,
		metrics: o.metrics,
	}, nil
}

// span is a pending sub-range on the bisection worklist.
type span struct {
	min, max float64
	count    int64
}

// Scan sweeps [MinValue, MaxValue) and returns the density map and stats.
//
// Guarantees:
//   - The returned chunks are sorted, contiguous, and gapless over the
//     configured range.
//   - stats.APICalls counts every probe attempt issued, retries included.
//   - stats.UsedTwoPass is true iff any bisection occurred.
//
// The result is an estimate used only for load balancing; workers discover
// the true record count as they page through their partition.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - []types.DensityChunk: Contiguous density map
//   - types.ScanStats: Probe counts and scan summary
//   - error: ErrScanFailed (wrapped) when probe retries are exhausted;
//     callers must treat this as "no plan available"
func (s *DensityScanner) Scan(ctx context.Context) ([]types.DensityChunk, types.ScanStats, error) {
	started := time.Now()
	stats := types.ScanStats{}

	var (
		chunks []types.DensityChunk
		total  int64
	)

	pos := s.cfg.MinValue
	for pos < s.cfg.MaxValue {
		if s.budgetExhausted(stats.APICalls, total) {
			// Close the remainder with one probe so the map stays gapless.
			// The API-call cap is soft by exactly this one call.
			count, err := s.probe(ctx, pos, s.cfg.MaxValue, &stats)
			if err != nil {
				return nil, stats, fmt.Errorf("%w: closing probe [%v, %v): %w", ErrScanFailed, pos, s.cfg.MaxValue, err)
			}
			chunks = append(chunks, types.DensityChunk{MinValue: pos, MaxValue: s.cfg.MaxValue, Count: count})
			total += count
			s.logger.Debug("scan budget reached, closed remaining range",
				"position", pos, "api_calls", stats.APICalls, "total_records", total)

			break
		}

		end := pos + s.stepAt(pos)
		if end > s.cfg.MaxValue {
			end = s.cfg.MaxValue
		}
		if end <= pos {
			// Step underflow: at large magnitudes pos+step can round back to
			// pos. Close the range with one probe rather than spinning on
			// zero-width chunks.
			end = s.cfg.MaxValue
		}

		count, err := s.probe(ctx, pos, end, &stats)
		if err != nil {
			return nil, stats, fmt.Errorf("%w: probe [%v, %v): %w", ErrScanFailed, pos, end, err)
		}

		if s.cfg.Mode == ModeTwoPass && count > s.cfg.SaturationThreshold {
			refined, err := s.bisect(ctx, span{min: pos, max: end, count: count}, &stats)
			if err != nil {
				return nil, stats, fmt.Errorf("%w: refining [%v, %v): %w", ErrScanFailed, pos, end, err)
			}
			chunks = append(chunks, refined...)
		} else {
			chunks = append(chunks, types.DensityChunk{MinValue: pos, MaxValue: end, Count: count})
		}

		total += count
		pos = end
	}

	stats.TotalRecords = total
	stats.ChunkCount = len(chunks)
	stats.Elapsed = time.Since(started)
	stats.ConfigDigest = s.cfg.Digest()

	s.logger.Info("density scan complete",
		"chunks", stats.ChunkCount,
		"total_records", stats.TotalRecords,
		"api_calls", stats.APICalls,
		"used_two_pass", stats.UsedTwoPass,
		"elapsed", stats.Elapsed,
	)

	return chunks, stats, nil
}

// stepAt returns the probe width for a position: the fine dense-zone step
// below DenseZoneThreshold, the coarse initial step at or above it.
func (s *DensityScanner) stepAt(pos float64) float64 {
	if pos < s.cfg.DenseZoneThreshold {
		return s.cfg.DenseZoneStep
	}

	return s.cfg.InitialStep
}

// budgetExhausted reports whether the next regular probe would exceed the
// configured API-call or record budget.
func (s *DensityScanner) budgetExhausted(apiCalls int, total int64) bool {
	if s.cfg.MaxAPICalls > 0 && apiCalls >= s.cfg.MaxAPICalls {
		return true
	}
	if s.cfg.MaxTotalRecords > 0 && total >= s.cfg.MaxTotalRecords {
		return true
	}

	return false
}

// bisect refines a saturated sub-range with an explicit worklist instead of
// recursion, bounding memory and keeping the refinement iterative.
//
// Each split probes only the left half; the right half inherits the parent
// count minus the left count, so refined chunk counts always sum exactly to
// the parent's count. Splitting stops when a sub-range's count falls under
// SaturationThreshold, its width reaches MinBisectWidth, or the probe budget
// runs out (the unsplit chunk is accepted as-is: refinement improves the
// estimate, it is never required for correctness).
func (s *DensityScanner) bisect(ctx context.Context, root span, stats *types.ScanStats) ([]types.DensityChunk, error) {
	out := make([]types.DensityChunk, 0, 4)
	stack := []span{root}

	for len(stack) > 0 {
		sp := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		width := sp.max - sp.min
		mid := sp.min + width/2

		needsSplit := sp.count > s.cfg.SaturationThreshold &&
			width > s.cfg.MinBisectWidth &&
			mid > sp.min && mid < sp.max && // float underflow guard
			!s.budgetExhausted(stats.APICalls, 0)

		if !needsSplit {
			out = append(out, types.DensityChunk{MinValue: sp.min, MaxValue: sp.max, Count: sp.count})

			continue
		}

		leftCount, err := s.probe(ctx, sp.min, mid, stats)
		if err != nil {
			return nil, err
		}

		rightCount := sp.count - leftCount
		if rightCount < 0 {
			// Backend answered inconsistently between probes; keep totals sane.
			rightCount = 0
		}

		// The flag tracks actual splits, not attempts: a saturated chunk
		// already at MinBisectWidth is accepted as-is and must not set it.
		stats.UsedTwoPass = true
		s.metrics.IncrementBisection()
		s.logger.Debug("bisected saturated chunk",
			"min", sp.min, "mid", mid, "max", sp.max,
			"left_count", leftCount, "right_count", rightCount)

		// Push right first so the left half is processed next, keeping the
		// output ordered.
		stack = append(stack, span{min: mid, max: sp.max, count: rightCount})
		stack = append(stack, span{min: sp.min, max: mid, count: leftCount})
	}

	return out, nil
}

// probe issues one bounded count query, retrying transient failures with
// identical bounds up to ProbeRetries times with exponential backoff. Every
// attempt counts against stats.APICalls.
func (s *DensityScanner) probe(ctx context.Context, minValue, maxValue float64, stats *types.ScanStats) (int64, error) {
	var lastErr error

	for attempt := 0; attempt <= s.cfg.ProbeRetries; attempt++ {
		if attempt > 0 {
			s.metrics.IncrementProbeRetry()

			// Exponential backoff: 10ms, 20ms, 40ms...
			backoff := time.Duration(1<<uint(attempt-1)) * 10 * time.Millisecond //nolint:gosec // attempt is bounded by ProbeRetries, no overflow risk
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(backoff):
			}
		}

		count, err := s.countOnce(ctx, minValue, maxValue, stats)
		if err == nil {
			return count, nil
		}

		// Don't retry if the caller's context is gone.
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		lastErr = err
		s.logger.Warn("probe failed",
			"min", minValue, "max", maxValue,
			"attempt", attempt+1, "max_attempts", s.cfg.ProbeRetries+1,
			"error", err)
	}

	return 0, fmt.Errorf("probe failed after %d attempts: %w", s.cfg.ProbeRetries+1, lastErr)
}

// countOnce issues a single probe attempt with the per-probe timeout applied.
func (s *DensityScanner) countOnce(ctx context.Context, minValue, maxValue float64, stats *types.ScanStats) (int64, error) {
	if s.cfg.OperationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.OperationTimeout)
		defer cancel()
	}

	stats.APICalls++

	start := time.Now()
	count, err := s.counter.CountRange(ctx, minValue, maxValue)
	s.metrics.RecordProbeDuration(time.Since(start).Seconds())

	return count, err
}

// applyOptions resolves optional dependencies with nop fallbacks.
func applyOptions(opts []Option) *schedulerOptions {
	o := &schedulerOptions{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewNop()
	}

	return o
}
