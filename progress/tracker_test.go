package progress_test

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/shaunnez/diamond-opus-sub001/progress"
	"github.com/shaunnez/diamond-opus-sub001/store"
	feedtest "github.com/shaunnez/diamond-opus-sub001/testing"
	"github.com/shaunnez/diamond-opus-sub001/types"
)

func newTracker(t *testing.T) *progress.Tracker {
	t.Helper()

	tracker, err := progress.NewTracker(store.NewMemory(),
		progress.WithLogger(feedtest.NewTestLogger(t)))
	require.NoError(t, err)

	return tracker
}

func TestNewTracker_RequiresStore(t *testing.T) {
	t.Parallel()

	_, err := progress.NewTracker(nil)
	require.ErrorIs(t, err, types.ErrProgressStoreRequired)
}

func TestTracker_InitializeIdempotent(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t)
	ctx := t.Context()

	p, err := tracker.Initialize(ctx, "run-1", 0)
	require.NoError(t, err)
	require.Equal(t, int64(0), p.NextOffset)
	require.False(t, p.Completed)

	// Advance, then re-initialize: the duplicate must not reset progress.
	applied, err := tracker.Advance(ctx, "run-1", 0, 0, 30)
	require.NoError(t, err)
	require.True(t, applied)

	p, err = tracker.Initialize(ctx, "run-1", 0)
	require.NoError(t, err)
	require.Equal(t, int64(30), p.NextOffset, "duplicate initialize must return existing state")
}

func TestTracker_AdvanceRequiresMatchingOffset(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t)
	ctx := t.Context()

	_, err := tracker.Initialize(ctx, "run-1", 3)
	require.NoError(t, err)

	// Out-of-order continuation: stored offset is 0, caller claims 30.
	applied, err := tracker.Advance(ctx, "run-1", 3, 30, 60)
	require.NoError(t, err)
	require.False(t, applied)

	p, err := tracker.Get(ctx, "run-1", 3)
	require.NoError(t, err)
	require.Equal(t, int64(0), p.NextOffset, "rejected advance must not mutate state")

	applied, err = tracker.Advance(ctx, "run-1", 3, 0, 30)
	require.NoError(t, err)
	require.True(t, applied)
}

func TestTracker_DuplicateAdvanceRejected(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t)
	ctx := t.Context()

	_, err := tracker.Initialize(ctx, "run-1", 0)
	require.NoError(t, err)

	applied, err := tracker.Advance(ctx, "run-1", 0, 0, 30)
	require.NoError(t, err)
	require.True(t, applied)

	// Redelivered message replays the same transition.
	applied, err = tracker.Advance(ctx, "run-1", 0, 0, 30)
	require.NoError(t, err)
	require.False(t, applied, "each transition applies at most once")

	p, err := tracker.Get(ctx, "run-1", 0)
	require.NoError(t, err)
	require.Equal(t, int64(30), p.NextOffset)
}

func TestTracker_CompletionIsTerminal(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t)
	ctx := t.Context()

	_, err := tracker.Initialize(ctx, "run-1", 0)
	require.NoError(t, err)

	applied, err := tracker.Complete(ctx, "run-1", 0, 0)
	require.NoError(t, err)
	require.True(t, applied)

	done, err := tracker.IsCompleted(ctx, "run-1", 0)
	require.NoError(t, err)
	require.True(t, done)

	// No transition leaves the completed state.
	applied, err = tracker.Advance(ctx, "run-1", 0, 0, 30)
	require.NoError(t, err)
	require.False(t, applied)

	applied, err = tracker.Complete(ctx, "run-1", 0, 0)
	require.NoError(t, err)
	require.False(t, applied, "duplicate complete is rejected")
}

func TestTracker_CompleteRequiresExactOffset(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t)
	ctx := t.Context()

	_, err := tracker.Initialize(ctx, "run-1", 0)
	require.NoError(t, err)

	applied, err := tracker.Advance(ctx, "run-1", 0, 0, 30)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = tracker.Complete(ctx, "run-1", 0, 60)
	require.NoError(t, err)
	require.False(t, applied, "complete with mismatched offset must be rejected")

	applied, err = tracker.Complete(ctx, "run-1", 0, 30)
	require.NoError(t, err)
	require.True(t, applied)
}

func TestTracker_InvalidOffsets(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t)
	ctx := t.Context()

	_, err := tracker.Initialize(ctx, "run-1", 0)
	require.NoError(t, err)

	_, err = tracker.Advance(ctx, "run-1", 0, -1, 30)
	require.ErrorIs(t, err, types.ErrInvalidOffset)

	_, err = tracker.Advance(ctx, "run-1", 0, 0, -30)
	require.ErrorIs(t, err, types.ErrInvalidOffset)

	_, err = tracker.Complete(ctx, "run-1", 0, -1)
	require.ErrorIs(t, err, types.ErrInvalidOffset)
}

func TestTracker_UninitializedPartition(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t)
	ctx := t.Context()

	_, err := tracker.Get(ctx, "run-1", 99)
	require.ErrorIs(t, err, types.ErrProgressNotFound)

	_, err = tracker.Advance(ctx, "run-1", 99, 0, 30)
	require.ErrorIs(t, err, types.ErrProgressNotFound)
}

func TestTracker_PartitionsIndependent(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t)
	ctx := t.Context()

	for id := range 3 {
		_, err := tracker.Initialize(ctx, "run-1", id)
		require.NoError(t, err)
	}

	applied, err := tracker.Advance(ctx, "run-1", 1, 0, 50)
	require.NoError(t, err)
	require.True(t, applied)

	p0, err := tracker.Get(ctx, "run-1", 0)
	require.NoError(t, err)
	require.Equal(t, int64(0), p0.NextOffset)

	p2, err := tracker.Get(ctx, "run-1", 2)
	require.NoError(t, err)
	require.Equal(t, int64(0), p2.NextOffset)
}

func TestTracker_WorkerLifecycle(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t)
	ctx := t.Context()

	_, err := tracker.Initialize(ctx, "run-1", 0)
	require.NoError(t, err)

	// Pages of 30, 30, 20 records; the last page ends the partition.
	applied, err := tracker.Advance(ctx, "run-1", 0, 0, 30)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = tracker.Advance(ctx, "run-1", 0, 30, 60)
	require.NoError(t, err)
	require.True(t, applied)

	// Redelivery of the second page.
	applied, err = tracker.Advance(ctx, "run-1", 0, 30, 60)
	require.NoError(t, err)
	require.False(t, applied)

	applied, err = tracker.Advance(ctx, "run-1", 0, 60, 80)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = tracker.Complete(ctx, "run-1", 0, 80)
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = tracker.Advance(ctx, "run-1", 0, 80, 100)
	require.NoError(t, err)
	require.False(t, applied, "no advance after completion")
}

func TestTracker_ConcurrentAdvance(t *testing.T) {
	t.Parallel()

	tracker := newTracker(t)
	ctx := t.Context()

	_, err := tracker.Initialize(ctx, "run-1", 0)
	require.NoError(t, err)

	const workers = 16

	var wins atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			applied, err := tracker.Advance(gctx, "run-1", 0, 0, 30)
			if err != nil {
				return err
			}
			if applied {
				wins.Add(1)
			}

			return nil
		})
	}
	require.NoError(t, g.Wait())

	require.Equal(t, int64(1), wins.Load(), "exactly one concurrent advance may win")

	p, err := tracker.Get(ctx, "run-1", 0)
	require.NoError(t, err)
	require.Equal(t, int64(30), p.NextOffset)
}
