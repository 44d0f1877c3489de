// Package counter provides RangeCounter implementations for density scans.
//
// Static serves counts from an in-memory value list and is the primary
// counter for tests and offline planning against an exported snapshot.
// RateLimited wraps any counter with a client-side rate limit for scanning
// against quota-bound upstream APIs.
package counter

import (
	"context"
	"sort"
	"sync"

	"github.com/shaunnez/diamond-opus-sub001/types"
)

// Static implements a range counter over a fixed in-memory list of values.
type Static struct {
	mu     sync.RWMutex
	values []float64 // sorted ascending
}

var _ types.RangeCounter = (*Static)(nil)

// NewStatic creates a static range counter from the given values.
//
// The input slice is copied and sorted; the caller may reuse it. Counts are
// served by binary search, so probes are cheap regardless of dataset size.
//
// Parameters:
//   - values: Record values (e.g. price-per-carat figures), any order
//
// Returns:
//   - *Static: Initialized counter
//
// Example:
//
//	ctr := counter.NewStatic(snapshot.PricesPerCarat())
//	scanner, err := scan.NewDensityScanner(cfg, ctr)
//	if err != nil { /* handle */ }
func NewStatic(values []float64) *Static {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return &Static{values: sorted}
}

// CountRange returns the number of values in the half-open interval
// [minValue, maxValue).
//
// Returns:
//   - int64: Count of values v with minValue <= v < maxValue
//   - error: Always nil (never fails)
func (s *Static) CountRange(_ context.Context, minValue, maxValue float64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lo := sort.SearchFloat64s(s.values, minValue)
	hi := sort.SearchFloat64s(s.values, maxValue)

	return int64(hi - lo), nil
}

// Len returns the total number of values held.
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.values)
}

// Update replaces the value list.
//
// This allows the static counter to simulate inventory churn between scans,
// which is useful for testing rescan scenarios.
//
// Parameters:
//   - values: New record values, any order
func (s *Static) Update(values []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	s.values = sorted
}
