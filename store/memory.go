// Package store provides ProgressStore and ScanHistoryStore implementations:
// an in-memory store for tests and single-process use, and a NATS JetStream
// KV store whose revision-conditioned updates supply the atomic
// compare-and-swap the progress tracker relies on.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/shaunnez/diamond-opus-sub001/types"
)

// Memory is an in-memory ProgressStore and ScanHistoryStore.
//
// Progress rows are keyed "runID:partitionID". Conditional updates use the
// map's per-key atomic Compute, so workers on different partitions never
// contend on a shared lock and duplicate workers on the same partition are
// serialized exactly as a durable store would serialize them.
type Memory struct {
	progress *xsync.Map[string, types.PartitionProgress]
	history  *xsync.Map[string, types.ScanResult]
}

// Compile-time assertions that Memory implements both store interfaces.
var (
	_ types.ProgressStore    = (*Memory)(nil)
	_ types.ScanHistoryStore = (*Memory)(nil)
)

// NewMemory creates an empty in-memory store.
//
// Returns:
//   - *Memory: Initialized store
//
// Example:
//
//	st := store.NewMemory()
//	tracker, err := progress.NewTracker(st)
func NewMemory() *Memory {
	return &Memory{
		progress: xsync.NewMap[string, types.PartitionProgress](),
		history:  xsync.NewMap[string, types.ScanResult](),
	}
}

// CreateProgress creates the row if absent and returns the stored row.
// A second create for the same key is a no-op returning the existing row.
func (m *Memory) CreateProgress(_ context.Context, p types.PartitionProgress) (types.PartitionProgress, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}

	actual, _ := m.progress.LoadOrStore(types.ProgressKey(p.RunID, p.PartitionID), p)

	return actual, nil
}

// GetProgress returns the row for (runID, partitionID).
func (m *Memory) GetProgress(_ context.Context, runID string, partitionID int) (types.PartitionProgress, error) {
	p, ok := m.progress.Load(types.ProgressKey(runID, partitionID))
	if !ok {
		return types.PartitionProgress{}, fmt.Errorf("%w: %s", types.ErrProgressNotFound, types.ProgressKey(runID, partitionID))
	}

	return p, nil
}

// ConditionalUpdate atomically applies mutate iff the stored NextOffset
// equals expectedOffset and the row is not completed.
func (m *Memory) ConditionalUpdate(_ context.Context, runID string, partitionID int, expectedOffset int64, mutate func(p *types.PartitionProgress)) (bool, error) {
	var (
		applied bool
		found   bool
	)

	m.progress.Compute(types.ProgressKey(runID, partitionID),
		func(old types.PartitionProgress, loaded bool) (types.PartitionProgress, xsync.ComputeOp) {
			if !loaded {
				return old, xsync.CancelOp
			}
			found = true

			if old.Completed || old.NextOffset != expectedOffset {
				return old, xsync.CancelOp
			}

			updated := old
			mutate(&updated)
			updated.UpdatedAt = time.Now().UTC()
			applied = true

			return updated, xsync.UpdateOp
		})

	if !found {
		return false, fmt.Errorf("%w: %s", types.ErrProgressNotFound, types.ProgressKey(runID, partitionID))
	}

	return applied, nil
}

// SaveScan records result as the latest scan for (feed, scanType),
// replacing any previous entry.
func (m *Memory) SaveScan(_ context.Context, feed string, scanType types.ScanType, result types.ScanResult) error {
	m.history.Store(historyKey(feed, scanType), result)

	return nil
}

// LoadScan returns the latest recorded scan for (feed, scanType).
func (m *Memory) LoadScan(_ context.Context, feed string, scanType types.ScanType) (types.ScanResult, error) {
	r, ok := m.history.Load(historyKey(feed, scanType))
	if !ok {
		return types.ScanResult{}, fmt.Errorf("%w: feed %q type %q", types.ErrScanNotFound, feed, scanType)
	}

	return r, nil
}

// historyKey builds the store key for a (feed, scanType) pair.
func historyKey(feed string, scanType types.ScanType) string {
	return feed + "." + string(scanType)
}
