package types

import "time"

// Partition represents a contiguous sub-range of the value space assigned as
// one unit of work to one worker.
//
// Partitions produced by a plan are contiguous, ordered, non-overlapping, and
// their TotalRecords sum to the scan's grand total.
type Partition struct {
	// ID is the zero-based ordinal of the partition within its plan.
	ID int `json:"partition_id"`

	// MinValue is the inclusive lower bound of the partition's value range.
	MinValue float64 `json:"min_value"`

	// MaxValue is the exclusive upper bound of the partition's value range.
	MaxValue float64 `json:"max_value"`

	// TotalRecords is the estimated number of records in the partition,
	// accumulated from the density chunks it covers. Workers discover the true
	// count as they page through the range.
	TotalRecords int64 `json:"total_records"`
}

// Contains reports whether a value falls inside the partition's half-open
// range [MinValue, MaxValue).
//
// Parameters:
//   - v: Value to test
//
// Returns:
//   - bool: true if MinValue <= v < MaxValue
func (p Partition) Contains(v float64) bool {
	return v >= p.MinValue && v < p.MaxValue
}

// ScanType distinguishes full scheduling scans from cheap preview scans in
// the scan history.
type ScanType string

// Scan history keys. History is last-write-wins per (feed, ScanType).
const (
	// ScanTypeRun identifies a full scan used to schedule a run.
	ScanTypeRun ScanType = "run"

	// ScanTypePreview identifies a reduced-budget preview scan.
	ScanTypePreview ScanType = "preview"
)

// ScanStats summarizes the work performed by a density scan.
type ScanStats struct {
	// APICalls counts every probe attempt issued against the range counter,
	// including retries of failed probes.
	APICalls int `json:"api_calls"`

	// TotalRecords is the sum of all density chunk counts.
	TotalRecords int64 `json:"total_records"`

	// ChunkCount is the number of chunks in the density map.
	ChunkCount int `json:"chunk_count"`

	// UsedTwoPass is true iff any two-pass bisection refinement occurred.
	UsedTwoPass bool `json:"used_two_pass"`

	// Elapsed is the wall-clock duration of the scan.
	Elapsed time.Duration `json:"elapsed_ns"`

	// ConfigDigest is a stable fingerprint of the scan configuration, used to
	// tell whether two history entries were produced by the same settings.
	ConfigDigest string `json:"config_digest"`
}

// ScanResult is the complete output of one scan-and-plan cycle.
type ScanResult struct {
	// RunID uniquely identifies the scheduling run this result belongs to.
	RunID string `json:"run_id"`

	// Feed names the inventory feed that was scanned.
	Feed string `json:"feed"`

	// TotalRecords is the estimated record count over the whole scanned range.
	TotalRecords int64 `json:"total_records"`

	// WorkerCount is the number of partitions produced. Always <= the
	// configured MaxWorkers; may be smaller when total records are few.
	WorkerCount int `json:"worker_count"`

	// Stats summarizes the scan's probe activity.
	Stats ScanStats `json:"stats"`

	// DensityMap is the contiguous per-sub-range record histogram.
	DensityMap []DensityChunk `json:"density_map"`

	// Partitions is the balanced partition plan derived from DensityMap.
	Partitions []Partition `json:"partitions"`

	// CreatedAt is when the scan completed.
	CreatedAt time.Time `json:"created_at"`
}

// ScanHistory holds the most recent run and preview results for a feed.
// Either field may be nil when no scan of that type has been recorded.
type ScanHistory struct {
	Run     *ScanResult `json:"run,omitempty"`
	Preview *ScanResult `json:"preview,omitempty"`
}
