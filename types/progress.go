package types

import (
	"context"
	"fmt"
	"time"
)

// PartitionProgress is the durable state of one worker's paginated walk
// through one partition of one run.
//
// Lifecycle: created once per (RunID, PartitionID) with NextOffset 0, advanced
// through monotonically increasing offsets, and finally marked Completed.
// There is no transition out of Completed. Rows are never deleted by this
// subsystem; garbage collection of old runs is an external concern.
type PartitionProgress struct {
	// RunID identifies the scheduling run.
	RunID string `json:"run_id"`

	// PartitionID identifies the partition within the run.
	PartitionID int `json:"partition_id"`

	// NextOffset is the page offset the next continuation message should
	// process. Mutated only through the store's conditional update.
	NextOffset int64 `json:"next_offset"`

	// Completed marks the partition as fully processed. Terminal.
	Completed bool `json:"completed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressKey returns the canonical store key for a (runID, partitionID)
// pair, in the form "runID:partitionID".
//
// Parameters:
//   - runID: Scheduling run identifier
//   - partitionID: Partition ordinal within the run
//
// Returns:
//   - string: Colon-joined key
func ProgressKey(runID string, partitionID int) string {
	return fmt.Sprintf("%s:%d", runID, partitionID)
}

// ProgressStore persists partition progress rows and arbitrates concurrent
// mutation through an atomic conditional update.
//
// The store, not an in-process lock, is the arbiter of correctness: message
// delivery is at-least-once, so duplicate and racing callers are expected.
// Implementations must make ConditionalUpdate atomic per key; no ordering
// guarantee is required across different keys.
type ProgressStore interface {
	// CreateProgress creates the row for p's (RunID, PartitionID) if it does
	// not exist. If a row already exists, the existing row is returned
	// unchanged: creation is idempotent and never resets progress.
	//
	// Parameters:
	//   - ctx: Context for timeout/cancellation
	//   - p: Initial progress row (NextOffset 0, Completed false)
	//
	// Returns:
	//   - PartitionProgress: The created or pre-existing row
	//   - error: Store failure
	CreateProgress(ctx context.Context, p PartitionProgress) (PartitionProgress, error)

	// GetProgress returns the row for (runID, partitionID).
	//
	// Returns:
	//   - PartitionProgress: The stored row
	//   - error: ErrProgressNotFound if never created, or store failure
	GetProgress(ctx context.Context, runID string, partitionID int) (PartitionProgress, error)

	// ConditionalUpdate applies mutate to the stored row iff the row exists,
	// its NextOffset equals expectedOffset, and it is not Completed. The
	// check-and-mutate is atomic with respect to concurrent callers on the
	// same key. UpdatedAt is refreshed on every applied mutation.
	//
	// A false return with nil error is the normal outcome for duplicate or
	// out-of-order callers and must not be treated as a failure.
	//
	// Parameters:
	//   - ctx: Context for timeout/cancellation
	//   - runID: Scheduling run identifier
	//   - partitionID: Partition ordinal within the run
	//   - expectedOffset: The NextOffset the caller believes is current
	//   - mutate: Mutation applied to the row when the predicate holds
	//
	// Returns:
	//   - bool: true iff the mutation was applied
	//   - error: ErrProgressNotFound if never created, or store failure
	ConditionalUpdate(ctx context.Context, runID string, partitionID int, expectedOffset int64, mutate func(p *PartitionProgress)) (bool, error)
}
