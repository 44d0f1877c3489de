// Package progress tracks per-partition pagination progress for concurrently
// running workers under at-least-once message delivery.
//
// Each (run, partition) pair has one durable row holding a monotonic page
// offset and a completion flag. All mutation goes through the store's atomic
// conditional update, so duplicate or out-of-order continuation messages are
// safely rejected rather than silently corrupting progress: exactly one
// offset transition is valid at a time, regardless of delivery order.
//
// Rejections are booleans, not errors. Under at-least-once delivery they are
// an expected and frequent outcome — a duplicate caller simply observes false
// and takes no further action for that page.
package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/shaunnez/diamond-opus-sub001/internal/logging"
	"github.com/shaunnez/diamond-opus-sub001/internal/metrics"
	"github.com/shaunnez/diamond-opus-sub001/types"
)

// Tracker provides the per-partition progress state machine:
//
//	uninitialized → active(offset=0) → active(offset=k) → … → completed
//
// There is no transition out of completed, and no failed state: failure
// handling is the surrounding scheduler's responsibility, and its retries
// naturally no-op here when stale.
//
// Tracker holds no in-process locks across store calls. Workers in different
// partitions act completely independently; workers racing on the same
// partition are serialized purely by the store's atomic conditional update.
type Tracker struct {
	store types.ProgressStore

	logger  types.Logger
	metrics types.MetricsCollector
}

// Option configures a Tracker with optional dependencies.
type Option func(*Tracker)

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewTracker
func WithLogger(logger types.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewTracker
func WithMetrics(metrics types.MetricsCollector) Option {
	return func(t *Tracker) {
		t.metrics = metrics
	}
}

// NewTracker creates a Tracker over the given progress store.
//
// Parameters:
//   - store: Durable store arbitrating concurrent mutation
//   - opts: Optional logger/metrics injection
//
// Returns:
//   - *Tracker: Initialized tracker
//   - error: ErrProgressStoreRequired if store is nil
//
// Example:
//
//	st, _ := store.NewNATSKV(ctx, js, store.DefaultKVConfig(), logger)
//	tracker, err := progress.NewTracker(st, progress.WithLogger(logger))
func NewTracker(store types.ProgressStore, opts ...Option) (*Tracker, error) {
	if store == nil {
		return nil, types.ErrProgressStoreRequired
	}

	t := &Tracker{store: store}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logging.NewNop()
	}
	if t.metrics == nil {
		t.metrics = metrics.NewNop()
	}

	return t, nil
}

// Initialize idempotently creates the progress row for (runID, partitionID)
// with NextOffset 0 and Completed false.
//
// If the row already exists it is returned unchanged: a duplicate initialize
// never resets offset or completion, so redelivered "start partition"
// messages are harmless.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - runID: Scheduling run identifier
//   - partitionID: Partition ordinal within the run
//
// Returns:
//   - types.PartitionProgress: The created or pre-existing row
//   - error: Store failure
func (t *Tracker) Initialize(ctx context.Context, runID string, partitionID int) (types.PartitionProgress, error) {
	start := time.Now()

	p, err := t.store.CreateProgress(ctx, types.PartitionProgress{
		RunID:       runID,
		PartitionID: partitionID,
		NextOffset:  0,
		Completed:   false,
	})

	t.metrics.RecordStoreOperationDuration("create", time.Since(start).Seconds())

	if err != nil {
		return types.PartitionProgress{}, fmt.Errorf("failed to initialize progress: %w", err)
	}

	t.logger.Debug("partition progress initialized",
		"run_id", runID, "partition_id", partitionID,
		"next_offset", p.NextOffset, "completed", p.Completed)

	return p, nil
}

// Get returns the progress row for (runID, partitionID).
//
// This is the resumption primitive: a scheduler that detects a stalled
// partition reads the last known NextOffset here and re-dispatches from it.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - runID: Scheduling run identifier
//   - partitionID: Partition ordinal within the run
//
// Returns:
//   - types.PartitionProgress: The stored row
//   - error: types.ErrProgressNotFound if never initialized, or store failure
func (t *Tracker) Get(ctx context.Context, runID string, partitionID int) (types.PartitionProgress, error) {
	start := time.Now()
	p, err := t.store.GetProgress(ctx, runID, partitionID)
	t.metrics.RecordStoreOperationDuration("get", time.Since(start).Seconds())

	return p, err
}

// Advance attempts the offset transition currentOffset → newOffset.
//
// The transition applies iff the stored NextOffset equals currentOffset and
// the partition is not completed; otherwise nothing is mutated and false is
// returned. This is a compare-and-swap: the caller's belief about the current
// offset must match reality or the call is rejected — never an error, always
// a boolean signal. A transition is accepted at most once, so duplicates and
// out-of-order continuations both observe false.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - runID: Scheduling run identifier
//   - partitionID: Partition ordinal within the run
//   - currentOffset: The offset the caller believes is current
//   - newOffset: The offset to advance to
//
// Returns:
//   - bool: true iff the transition was applied
//   - error: ErrInvalidOffset for negative offsets,
//     types.ErrProgressNotFound if never initialized, or store failure
func (t *Tracker) Advance(ctx context.Context, runID string, partitionID int, currentOffset, newOffset int64) (bool, error) {
	if currentOffset < 0 || newOffset < 0 {
		return false, fmt.Errorf("%w: advance(%d, %d)", types.ErrInvalidOffset, currentOffset, newOffset)
	}

	start := time.Now()
	applied, err := t.store.ConditionalUpdate(ctx, runID, partitionID, currentOffset, func(p *types.PartitionProgress) {
		p.NextOffset = newOffset
	})
	t.metrics.RecordStoreOperationDuration("update", time.Since(start).Seconds())

	if err != nil {
		return false, err
	}

	t.metrics.RecordCASResult("advance", applied)

	// Rejections are expected idempotency events, logged at debug only.
	t.logger.Debug("advance attempted",
		"run_id", runID, "partition_id", partitionID,
		"current_offset", currentOffset, "new_offset", newOffset, "applied", applied)

	return applied, nil
}

// Complete attempts to mark the partition completed at finalOffset.
//
// The transition applies iff the stored NextOffset equals finalOffset and the
// partition is not already completed. Completed is terminal: no subsequent
// Advance or Complete will ever apply.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - runID: Scheduling run identifier
//   - partitionID: Partition ordinal within the run
//   - finalOffset: The offset the caller believes is current
//
// Returns:
//   - bool: true iff the partition was marked completed by this call
//   - error: ErrInvalidOffset for a negative offset,
//     types.ErrProgressNotFound if never initialized, or store failure
func (t *Tracker) Complete(ctx context.Context, runID string, partitionID int, finalOffset int64) (bool, error) {
	if finalOffset < 0 {
		return false, fmt.Errorf("%w: complete(%d)", types.ErrInvalidOffset, finalOffset)
	}

	start := time.Now()
	applied, err := t.store.ConditionalUpdate(ctx, runID, partitionID, finalOffset, func(p *types.PartitionProgress) {
		p.Completed = true
	})
	t.metrics.RecordStoreOperationDuration("update", time.Since(start).Seconds())

	if err != nil {
		return false, err
	}

	t.metrics.RecordCASResult("complete", applied)

	t.logger.Debug("complete attempted",
		"run_id", runID, "partition_id", partitionID,
		"final_offset", finalOffset, "applied", applied)

	return applied, nil
}

// IsCompleted reports whether the partition has been marked completed.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - runID: Scheduling run identifier
//   - partitionID: Partition ordinal within the run
//
// Returns:
//   - bool: true if the partition is completed
//   - error: types.ErrProgressNotFound if never initialized, or store failure
func (t *Tracker) IsCompleted(ctx context.Context, runID string, partitionID int) (bool, error) {
	p, err := t.Get(ctx, runID, partitionID)
	if err != nil {
		return false, err
	}

	return p.Completed, nil
}
