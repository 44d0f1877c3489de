package scan_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shaunnez/diamond-opus-sub001/counter"
	"github.com/shaunnez/diamond-opus-sub001/scan"
	"github.com/shaunnez/diamond-opus-sub001/types"
)

// flakyCounter fails the first failures calls, then delegates.
type flakyCounter struct {
	inner    types.RangeCounter
	failures int32
	calls    atomic.Int32
}

func (f *flakyCounter) CountRange(ctx context.Context, minValue, maxValue float64) (int64, error) {
	if f.calls.Add(1) <= f.failures {
		return 0, errors.New("upstream query timed out")
	}

	return f.inner.CountRange(ctx, minValue, maxValue)
}

// uniformValues returns count values evenly spread over [lo, hi).
func uniformValues(lo, hi float64, count int) []float64 {
	values := make([]float64, count)
	step := (hi - lo) / float64(count)
	for i := range count {
		values[i] = lo + float64(i)*step
	}

	return values
}

func TestDensityScanner_RequiresCounter(t *testing.T) {
	t.Parallel()

	_, err := scan.NewDensityScanner(nil, scan.TestConfig())
	require.ErrorIs(t, err, scan.ErrRangeCounterRequired)
}

func TestDensityScanner_CoversConfiguredRange(t *testing.T) {
	t.Parallel()

	cfg := scan.TestConfig()
	ctr := counter.NewStatic(uniformValues(0, 1000, 300))

	scanner, err := scan.NewDensityScanner(ctr, cfg)
	require.NoError(t, err)

	chunks, stats, err := scanner.Scan(t.Context())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	// Sorted, contiguous, gapless over [MinValue, MaxValue).
	require.NoError(t, types.ValidateDensityMap(chunks, cfg.MinValue, cfg.MaxValue))
	require.Equal(t, cfg.MinValue, chunks[0].MinValue)
	require.Equal(t, cfg.MaxValue, chunks[len(chunks)-1].MaxValue)

	require.Equal(t, int64(300), stats.TotalRecords)
	require.Equal(t, len(chunks), stats.ChunkCount)
	require.Positive(t, stats.APICalls)
}

func TestDensityScanner_Deterministic(t *testing.T) {
	t.Parallel()

	cfg := scan.TestConfig()
	ctr := counter.NewStatic(uniformValues(0, 1000, 500))

	first, err := scan.NewDensityScanner(ctr, cfg)
	require.NoError(t, err)
	second, err := scan.NewDensityScanner(ctr, cfg)
	require.NoError(t, err)

	chunksA, statsA, err := first.Scan(t.Context())
	require.NoError(t, err)
	chunksB, statsB, err := second.Scan(t.Context())
	require.NoError(t, err)

	require.Equal(t, chunksA, chunksB, "same config and data must yield identical maps")
	require.Equal(t, statsA.APICalls, statsB.APICalls)
	require.Equal(t, statsA.ConfigDigest, statsB.ConfigDigest)
}

func TestDensityScanner_DenseZoneStepping(t *testing.T) {
	t.Parallel()

	cfg := scan.TestConfig()
	cfg.Mode = scan.ModeSinglePass
	ctr := counter.NewStatic(nil)

	scanner, err := scan.NewDensityScanner(ctr, cfg)
	require.NoError(t, err)

	chunks, _, err := scanner.Scan(t.Context())
	require.NoError(t, err)

	for _, c := range chunks {
		if c.MinValue < cfg.DenseZoneThreshold {
			require.Equal(t, cfg.DenseZoneStep, c.Width(),
				"dense zone chunk at %v must use the fine step", c.MinValue)
		} else {
			require.Equal(t, cfg.InitialStep, c.Width(),
				"sparse zone chunk at %v must use the coarse step", c.MinValue)
		}
	}
}

func TestDensityScanner_TwoPassRefinesSaturatedChunks(t *testing.T) {
	t.Parallel()

	cfg := scan.TestConfig()

	// Pile 400 records into one dense-step-wide spike; saturation is 50.
	spike := make([]float64, 400)
	for i := range spike {
		spike[i] = 500 + float64(i%20)
	}
	ctr := counter.NewStatic(spike)

	scanner, err := scan.NewDensityScanner(ctr, cfg)
	require.NoError(t, err)

	chunks, stats, err := scanner.Scan(t.Context())
	require.NoError(t, err)

	require.True(t, stats.UsedTwoPass)
	require.NoError(t, types.ValidateDensityMap(chunks, cfg.MinValue, cfg.MaxValue))
	require.Equal(t, int64(400), stats.TotalRecords, "refinement must preserve totals")

	// The probe window holding the spike must have been broken into
	// sub-chunks finer than the coarse step.
	var refined int
	for _, c := range chunks {
		if c.MinValue >= 500 && c.MaxValue <= 600 && c.Width() < cfg.InitialStep {
			refined++
		}
	}
	require.Positive(t, refined)
}

func TestDensityScanner_TwoPassFlagOnlyWhenSplit(t *testing.T) {
	t.Parallel()

	// Saturated chunks that are already at MinBisectWidth cannot be split;
	// the two-pass flag must stay false when no extra probe is issued.
	cfg := scan.TestConfig()
	cfg.MinValue = 0
	cfg.MaxValue = 100
	cfg.DenseZoneThreshold = 200
	cfg.DenseZoneStep = 10
	cfg.InitialStep = 100
	cfg.SaturationThreshold = 5
	cfg.MinBisectWidth = 10

	// 10 records per 10-wide chunk, every chunk saturated.
	ctr := counter.NewStatic(uniformValues(0, 100, 100))

	scanner, err := scan.NewDensityScanner(ctr, cfg)
	require.NoError(t, err)

	chunks, stats, err := scanner.Scan(t.Context())
	require.NoError(t, err)
	require.NoError(t, types.ValidateDensityMap(chunks, cfg.MinValue, cfg.MaxValue))

	require.Equal(t, len(chunks), stats.APICalls, "no refinement probes were issued")
	require.False(t, stats.UsedTwoPass, "flag must report actual splits, not attempts")
}

func TestDensityScanner_SinglePassNeverBisects(t *testing.T) {
	t.Parallel()

	cfg := scan.TestConfig()
	cfg.Mode = scan.ModeSinglePass

	spike := make([]float64, 400)
	for i := range spike {
		spike[i] = 500 + float64(i%20)
	}
	ctr := counter.NewStatic(spike)

	scanner, err := scan.NewDensityScanner(ctr, cfg)
	require.NoError(t, err)

	chunks, stats, err := scanner.Scan(t.Context())
	require.NoError(t, err)
	require.False(t, stats.UsedTwoPass)
	require.NoError(t, types.ValidateDensityMap(chunks, cfg.MinValue, cfg.MaxValue))
}

func TestDensityScanner_RetriesTransientFailures(t *testing.T) {
	t.Parallel()

	cfg := scan.TestConfig()
	cfg.ProbeRetries = 2

	ctr := &flakyCounter{
		inner:    counter.NewStatic(uniformValues(0, 1000, 100)),
		failures: 2,
	}

	scanner, err := scan.NewDensityScanner(ctr, cfg)
	require.NoError(t, err)

	chunks, stats, err := scanner.Scan(t.Context())
	require.NoError(t, err, "transient failures within the retry budget must not fail the scan")
	require.NoError(t, types.ValidateDensityMap(chunks, cfg.MinValue, cfg.MaxValue))
	require.Equal(t, int64(100), stats.TotalRecords)

	// Failed attempts count against the API budget too.
	require.Equal(t, int(ctr.calls.Load()), stats.APICalls)
}

func TestDensityScanner_RetryExhaustionFailsScan(t *testing.T) {
	t.Parallel()

	cfg := scan.TestConfig()
	cfg.ProbeRetries = 1

	ctr := &flakyCounter{
		inner:    counter.NewStatic(nil),
		failures: 1_000, // never recovers
	}

	scanner, err := scan.NewDensityScanner(ctr, cfg)
	require.NoError(t, err)

	chunks, _, err := scanner.Scan(t.Context())
	require.ErrorIs(t, err, scan.ErrScanFailed)
	require.Nil(t, chunks, "a failed scan produces no partial map")
}

func TestDensityScanner_APICallBudgetClosesTail(t *testing.T) {
	t.Parallel()

	cfg := scan.TestConfig()
	cfg.Mode = scan.ModeSinglePass
	cfg.MaxAPICalls = 5

	ctr := counter.NewStatic(uniformValues(0, 1000, 200))

	scanner, err := scan.NewDensityScanner(ctr, cfg)
	require.NoError(t, err)

	chunks, stats, err := scanner.Scan(t.Context())
	require.NoError(t, err)

	// The map still covers the full range; the cap is soft by one closing probe.
	require.NoError(t, types.ValidateDensityMap(chunks, cfg.MinValue, cfg.MaxValue))
	require.LessOrEqual(t, stats.APICalls, cfg.MaxAPICalls+1)
	require.Equal(t, int64(200), stats.TotalRecords)
}

func TestDensityScanner_RecordBudgetStopsEarly(t *testing.T) {
	t.Parallel()

	cfg := scan.TestConfig()
	cfg.Mode = scan.ModeSinglePass
	cfg.MaxTotalRecords = 50

	ctr := counter.NewStatic(uniformValues(0, 1000, 400))

	scanner, err := scan.NewDensityScanner(ctr, cfg)
	require.NoError(t, err)

	chunks, stats, err := scanner.Scan(t.Context())
	require.NoError(t, err)
	require.NoError(t, types.ValidateDensityMap(chunks, cfg.MinValue, cfg.MaxValue))

	// All records are still accounted for: the closing probe absorbs the rest.
	require.Equal(t, int64(400), stats.TotalRecords)

	// The early stop shows as one oversized tail chunk.
	tail := chunks[len(chunks)-1]
	require.Equal(t, cfg.MaxValue, tail.MaxValue)
	require.Greater(t, tail.Width(), cfg.InitialStep)
}

func TestDensityScanner_StepBelowFloatSpacing(t *testing.T) {
	t.Parallel()

	// At magnitude 1e18 the float64 spacing is 128, so pos+25 rounds back to
	// pos. The scan must close the range instead of looping on a position
	// that never advances.
	cfg := scan.TestConfig()
	cfg.Mode = scan.ModeSinglePass
	cfg.MinValue = 1e18
	cfg.MaxValue = 1e18 + 512
	cfg.DenseZoneThreshold = 2e18
	cfg.DenseZoneStep = 25
	cfg.InitialStep = 100
	cfg.MaxAPICalls = 0
	cfg.MaxTotalRecords = 0

	ctr := counter.NewStatic([]float64{1e18 + 128, 1e18 + 256})

	scanner, err := scan.NewDensityScanner(ctr, cfg)
	require.NoError(t, err)

	chunks, stats, err := scanner.Scan(t.Context())
	require.NoError(t, err)
	require.NoError(t, types.ValidateDensityMap(chunks, cfg.MinValue, cfg.MaxValue))
	require.Equal(t, int64(2), stats.TotalRecords)
}

func TestDensityScanner_ContextCancellation(t *testing.T) {
	t.Parallel()

	cfg := scan.TestConfig()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	ctr := &flakyCounter{inner: counter.NewStatic(nil), failures: 1_000}

	scanner, err := scan.NewDensityScanner(ctr, cfg)
	require.NoError(t, err)

	_, _, err = scanner.Scan(ctx)
	require.Error(t, err)
}
