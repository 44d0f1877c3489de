package scan

import (
	"fmt"

	"github.com/shaunnez/diamond-opus-sub001/types"
)

// PlanPartitions transforms a density map into at most maxWorkers contiguous,
// near-balanced partitions.
//
// The algorithm walks the density map left to right, accumulating chunk
// counts into a running partition; when the running total meets or exceeds
// ceil(total/maxWorkers) the partition is closed at the current chunk
// boundary and a new one starts. The last partition absorbs any remainder, so
// it may exceed the target, but no earlier partition overshoots it by more
// than one chunk. Cuts always land on chunk boundaries, never mid-chunk.
//
// Guarantees:
//   - Partitions are contiguous, ordered, and exhaustive over the scanned range.
//   - sum(partition.TotalRecords) equals the density map's total.
//   - len(partitions) <= maxWorkers.
//   - No partition is empty unless the total record count is zero, in which
//     case a single empty partition spanning the whole range is returned
//     (a valid degenerate plan, not an error).
//
// Parameters:
//   - densityMap: Contiguous density chunks from a scan
//   - maxWorkers: Maximum number of partitions to produce
//
// Returns:
//   - []types.Partition: Balanced partition plan
//   - error: ErrInvalidConfig for an empty map or maxWorkers < 1
func PlanPartitions(densityMap []types.DensityChunk, maxWorkers int) ([]types.Partition, error) {
	if maxWorkers < 1 {
		return nil, fmt.Errorf("%w: maxWorkers must be >= 1, got %d", ErrInvalidConfig, maxWorkers)
	}
	if len(densityMap) == 0 {
		return nil, fmt.Errorf("%w: density map is empty", ErrInvalidConfig)
	}

	total := types.TotalCount(densityMap)
	lo := densityMap[0].MinValue
	hi := densityMap[len(densityMap)-1].MaxValue

	// Planning degeneracy: zero records is a valid single empty partition.
	if total == 0 {
		return []types.Partition{{ID: 0, MinValue: lo, MaxValue: hi, TotalRecords: 0}}, nil
	}

	target := (total + int64(maxWorkers) - 1) / int64(maxWorkers) // ceil

	partitions := make([]types.Partition, 0, maxWorkers)
	cur := types.Partition{ID: 0, MinValue: lo}

	for i, c := range densityMap {
		cur.TotalRecords += c.Count
		cur.MaxValue = c.MaxValue

		last := i == len(densityMap)-1
		if !last && cur.TotalRecords >= target && len(partitions) < maxWorkers-1 {
			partitions = append(partitions, cur)
			cur = types.Partition{ID: len(partitions), MinValue: c.MaxValue}
		}
	}

	// Trailing zero-count chunks would otherwise form an empty partition;
	// fold their range into the previous one instead.
	if cur.TotalRecords == 0 && len(partitions) > 0 {
		partitions[len(partitions)-1].MaxValue = cur.MaxValue
	} else {
		partitions = append(partitions, cur)
	}

	return partitions, nil
}

// planImbalance returns the ratio of the largest partition's record count to
// the ideal even split. 1.0 means a perfectly balanced plan.
func planImbalance(partitions []types.Partition, total int64) float64 {
	if total == 0 || len(partitions) == 0 {
		return 1.0
	}

	var largest int64
	for _, p := range partitions {
		if p.TotalRecords > largest {
			largest = p.TotalRecords
		}
	}

	ideal := float64(total) / float64(len(partitions))

	return float64(largest) / ideal
}
