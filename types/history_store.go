package types

import "context"

// ScanHistoryStore persists the most recent scan result per (feed, scan type)
// for replay and inspection.
//
// Semantics are last-write-wins per key: saving a result for a (feed, type)
// pair replaces whatever was stored before. Implementations need no history
// beyond the latest entry.
type ScanHistoryStore interface {
	// SaveScan records result as the latest scan of the given type for feed.
	SaveScan(ctx context.Context, feed string, scanType ScanType, result ScanResult) error

	// LoadScan returns the latest recorded scan of the given type for feed.
	//
	// Returns:
	//   - ScanResult: The stored result
	//   - error: ErrScanNotFound if nothing has been recorded, or store failure
	LoadScan(ctx context.Context, feed string, scanType ScanType) (ScanResult, error)
}
