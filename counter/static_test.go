package counter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStatic_CountRange(t *testing.T) {
	t.Parallel()

	ctr := NewStatic([]float64{500, 100, 300, 200, 400})
	ctx := context.Background()

	count, err := ctr.CountRange(ctx, 100, 300)
	require.NoError(t, err)
	require.Equal(t, int64(2), count, "half-open: 100 and 200 in, 300 out")

	count, err = ctr.CountRange(ctx, 0, 1000)
	require.NoError(t, err)
	require.Equal(t, int64(5), count)

	count, err = ctr.CountRange(ctx, 600, 700)
	require.NoError(t, err)
	require.Equal(t, int64(0), count)
}

func TestStatic_CountRange_Boundaries(t *testing.T) {
	t.Parallel()

	ctr := NewStatic([]float64{100, 100, 100, 200})
	ctx := context.Background()

	count, err := ctr.CountRange(ctx, 100, 200)
	require.NoError(t, err)
	require.Equal(t, int64(3), count, "duplicates at min boundary are included")

	count, err = ctr.CountRange(ctx, 100, 100)
	require.NoError(t, err)
	require.Equal(t, int64(0), count, "empty interval")
}

func TestStatic_Update(t *testing.T) {
	t.Parallel()

	ctr := NewStatic([]float64{100})
	require.Equal(t, 1, ctr.Len())

	ctr.Update([]float64{100, 200, 300})
	require.Equal(t, 3, ctr.Len())

	count, err := ctr.CountRange(context.Background(), 0, 1000)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestRateLimited_Delegates(t *testing.T) {
	t.Parallel()

	inner := NewStatic([]float64{100, 200, 300})
	ctr := NewRateLimited(inner, 1000, 10)

	count, err := ctr.CountRange(context.Background(), 0, 1000)
	require.NoError(t, err)
	require.Equal(t, int64(3), count)
}

func TestRateLimited_ContextCanceled(t *testing.T) {
	t.Parallel()

	inner := NewStatic([]float64{100})
	// Zero-rate limiter never grants a token after the burst is spent.
	ctr := NewRateLimited(inner, 0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := ctr.CountRange(ctx, 0, 1000)
	require.Error(t, err)
}
