package counter

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/shaunnez/diamond-opus-sub001/types"
)

// RateLimited wraps a RangeCounter with a client-side rate limit.
//
// Upstream inventory APIs typically meter search requests per second; a scan
// issues bursts of probes and can trip that quota. RateLimited blocks each
// probe until the limiter grants a token, honoring context cancellation.
type RateLimited struct {
	inner   types.RangeCounter
	limiter *rate.Limiter
}

var _ types.RangeCounter = (*RateLimited)(nil)

// NewRateLimited creates a rate-limited wrapper around the given counter.
//
// Parameters:
//   - inner: The counter to wrap
//   - rps: Maximum sustained probes per second
//   - burst: Maximum probes allowed in a burst
//
// Returns:
//   - *RateLimited: Initialized wrapper
//
// Example:
//
//	ctr := counter.NewRateLimited(apiCounter, 10, 5)
//	scanner, err := scan.NewDensityScanner(cfg, ctr)
//	if err != nil { /* handle */ }
func NewRateLimited(inner types.RangeCounter, rps float64, burst int) *RateLimited {
	return &RateLimited{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// CountRange waits for the rate limiter, then delegates to the wrapped
// counter.
//
// Returns:
//   - int64: Count from the wrapped counter
//   - error: Context cancellation while waiting, or the wrapped counter's error
func (r *RateLimited) CountRange(ctx context.Context, minValue, maxValue float64) (int64, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("rate limit wait aborted: %w", err)
	}

	return r.inner.CountRange(ctx, minValue, maxValue)
}
