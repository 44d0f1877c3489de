package types

import (
	"errors"
	"strings"
)

// Sentinel errors for the scheduling core.
//
// These errors provide type-safe error checking using errors.Is() and errors.As().
// All components should use these sentinel errors for known error conditions
// and wrap external errors with context using fmt.Errorf("%s: %w", msg, err).

// Scan errors - returned by the scanner, planner, and scheduler facade.
var (
	// ErrInvalidConfig is returned when a scan configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrRangeCounterRequired is returned when the range counter is nil.
	ErrRangeCounterRequired = errors.New("range counter is required")

	// ErrScanFailed is returned when a scan is abandoned after probe retries
	// are exhausted. No plan is produced; callers must not schedule the run.
	ErrScanFailed = errors.New("scan failed")

	// ErrScanNotFound is returned when no scan of the requested type has been
	// recorded for a feed.
	ErrScanNotFound = errors.New("scan not found")
)

// Progress errors - returned by the progress tracker and its stores.
var (
	// ErrProgressStoreRequired is returned when the progress store is nil.
	ErrProgressStoreRequired = errors.New("progress store is required")

	// ErrProgressNotFound is returned when a (runID, partitionID) pair has
	// never been initialized. Callers are expected to always Initialize
	// before any other operation.
	ErrProgressNotFound = errors.New("partition progress not found")

	// ErrInvalidOffset is returned when a caller supplies a negative offset.
	ErrInvalidOffset = errors.New("offset must be non-negative")
)

// IsKeyNotFoundError checks if an error indicates a missing key in the
// backing store.
//
// This handles NATS KV "key not found" errors, which may come as:
//   - Direct error: "nats: key not found"
//   - Wrapped error: "failed to get progress: nats: key not found"
//
// Parameters:
//   - err: The error to check
//
// Returns:
//   - bool: true if the error indicates a missing key, false otherwise
func IsKeyNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrProgressNotFound) || errors.Is(err, ErrScanNotFound) {
		return true
	}

	return strings.Contains(err.Error(), "key not found")
}
