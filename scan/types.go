package scan

import "github.com/shaunnez/diamond-opus-sub001/types"

// Re-export types from the shared types package.
//
// This file provides a convenient public API for the package's core types.
// It uses type aliases to re-export definitions from the `types` subpackage,
// which contains the actual implementations.
//
// This pattern solves the "import cycle" problem by allowing the store and
// progress packages to depend on `types` without depending on the `scan`
// package, while still providing `scan.ScanResult`, `scan.Partition`, etc.
// for users.
type (
	DensityChunk = types.DensityChunk
	Partition    = types.Partition
	ScanStats    = types.ScanStats
	ScanResult   = types.ScanResult
	ScanHistory  = types.ScanHistory
	ScanType     = types.ScanType
)

// Re-export interfaces from the shared types package for convenience.
type (
	RangeCounter     = types.RangeCounter
	ScanHistoryStore = types.ScanHistoryStore
	Logger           = types.Logger
	MetricsCollector = types.MetricsCollector
)

// Re-export ScanType constants from the shared types package.
const (
	ScanTypeRun     = types.ScanTypeRun
	ScanTypePreview = types.ScanTypePreview
)
