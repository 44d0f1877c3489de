package types

import "context"

// RangeCounter answers bounded record-count queries over the value space.
//
// This is the scanner's only collaborator and its only suspension point.
// Implementations typically translate the query into a feed API call or an
// indexed COUNT against the canonical store. Calls may block on a
// bounded-rate backend; the scanner issues them strictly sequentially.
type RangeCounter interface {
	// CountRange returns the number of records whose value falls in the
	// half-open range [minValue, maxValue).
	//
	// Parameters:
	//   - ctx: Context for timeout/cancellation
	//   - minValue: Inclusive lower bound
	//   - maxValue: Exclusive upper bound
	//
	// Returns:
	//   - int64: Record count in the range
	//   - error: Backend or context error; the scanner retries these with
	//     identical bounds up to its configured limit
	CountRange(ctx context.Context, minValue, maxValue float64) (int64, error)
}
