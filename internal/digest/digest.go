// Package digest computes stable fingerprints of scan configurations.
//
// The fingerprint lets history consumers tell at a glance whether two stored
// scan results were produced by the same settings, without diffing configs.
package digest

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/zeebo/xxh3"
)

// Hasher accumulates configuration fields into a fingerprint.
//
// Fields must be written in a fixed order; the digest is sensitive to both
// values and ordering. The zero value is ready to use.
type Hasher struct {
	buf []byte
}

// WriteString appends a length-prefixed string to the fingerprint input.
func (h *Hasher) WriteString(s string) {
	h.buf = binary.LittleEndian.AppendUint64(h.buf, uint64(len(s)))
	h.buf = append(h.buf, s...)
}

// WriteFloat64 appends a float64 to the fingerprint input.
//
// The IEEE 754 bit pattern is used, so -0 and +0 hash differently and NaN
// payloads are preserved.
func (h *Hasher) WriteFloat64(f float64) {
	h.buf = binary.LittleEndian.AppendUint64(h.buf, math.Float64bits(f))
}

// WriteInt64 appends an int64 to the fingerprint input.
func (h *Hasher) WriteInt64(v int64) {
	h.buf = binary.LittleEndian.AppendUint64(h.buf, uint64(v)) //nolint:gosec // two's complement round-trip is intended
}

// WriteBool appends a bool to the fingerprint input.
func (h *Hasher) WriteBool(b bool) {
	if b {
		h.buf = append(h.buf, 1)
	} else {
		h.buf = append(h.buf, 0)
	}
}

// Sum returns the fingerprint as a fixed-width hex string.
//
// Returns:
//   - string: 16-character lowercase hex digest
func (h *Hasher) Sum() string {
	return fmt.Sprintf("%016x", xxh3.Hash(h.buf))
}
