package scan

import "github.com/shaunnez/diamond-opus-sub001/types"

// Sentinel errors returned by the scan package.
//
// These alias the shared definitions in the types package so that callers
// holding either import path can match them with errors.Is.
var (
	// ErrInvalidConfig is returned when the scan configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrRangeCounterRequired is returned when the range counter is nil.
	ErrRangeCounterRequired = types.ErrRangeCounterRequired

	// ErrScanFailed is returned when probe retries are exhausted and the scan
	// is abandoned. No partial plan is produced.
	ErrScanFailed = types.ErrScanFailed

	// ErrScanNotFound is returned by history retrieval when no scan of the
	// requested type has been recorded for a feed.
	ErrScanNotFound = types.ErrScanNotFound
)
