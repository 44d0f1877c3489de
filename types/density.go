package types

import "fmt"

// DensityChunk is a sub-range of the scanned value space annotated with the
// record count observed in the half-open range [MinValue, MaxValue).
//
// Chunks returned by a scan are sorted, contiguous, and together span the
// configured [MinValue, MaxValue) with no gaps or overlaps.
type DensityChunk struct {
	// MinValue is the inclusive lower bound of the chunk.
	MinValue float64 `json:"min_value"`

	// MaxValue is the exclusive upper bound of the chunk.
	MaxValue float64 `json:"max_value"`

	// Count is the number of records observed in [MinValue, MaxValue).
	Count int64 `json:"count"`
}

// Width returns the size of the chunk's value range.
//
// Returns:
//   - float64: MaxValue - MinValue
func (c DensityChunk) Width() float64 {
	return c.MaxValue - c.MinValue
}

// ValidateDensityMap checks that chunks form a sorted, contiguous, gapless
// cover of [minValue, maxValue).
//
// The scanner always advances its position to the exact end of the previous
// chunk, so boundary comparison is exact float equality, not epsilon-based.
//
// Parameters:
//   - chunks: Density map to validate
//   - minValue: Expected inclusive lower bound of the first chunk
//   - maxValue: Expected exclusive upper bound of the last chunk
//
// Returns:
//   - error: Description of the first violation found, nil if valid
func ValidateDensityMap(chunks []DensityChunk, minValue, maxValue float64) error {
	if len(chunks) == 0 {
		return fmt.Errorf("density map is empty, expected cover of [%v, %v)", minValue, maxValue)
	}
	if chunks[0].MinValue != minValue {
		return fmt.Errorf("density map starts at %v, expected %v", chunks[0].MinValue, minValue)
	}
	for i, c := range chunks {
		if c.MaxValue <= c.MinValue {
			return fmt.Errorf("chunk %d has non-positive width [%v, %v)", i, c.MinValue, c.MaxValue)
		}
		if c.Count < 0 {
			return fmt.Errorf("chunk %d has negative count %d", i, c.Count)
		}
		if i > 0 && chunks[i-1].MaxValue != c.MinValue {
			return fmt.Errorf("gap or overlap between chunk %d (ends %v) and chunk %d (starts %v)",
				i-1, chunks[i-1].MaxValue, i, c.MinValue)
		}
	}
	if last := chunks[len(chunks)-1]; last.MaxValue != maxValue {
		return fmt.Errorf("density map ends at %v, expected %v", last.MaxValue, maxValue)
	}

	return nil
}

// TotalCount sums the record counts of all chunks in a density map.
//
// Parameters:
//   - chunks: Density map to sum
//
// Returns:
//   - int64: Sum of chunk counts
func TotalCount(chunks []DensityChunk) int64 {
	var total int64
	for _, c := range chunks {
		total += c.Count
	}

	return total
}
