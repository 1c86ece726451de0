// Package nullside implements the optional null-value side file: the
// tree body itself has no room for a null Val, since every entry must
// participate in the total order the body assumes, so a null value at
// build time is recorded out-of-band instead. The side file is a
// bitset with one bit per original input row (null rows included),
// indexed by input row order rather than tree position.
package nullside

import "github.com/bits-and-blooms/bitset"

// Builder accumulates which original input rows had a null Val, by
// row index, for later encoding once the row count is known.
type Builder struct {
	bits *bitset.BitSet
	n    uint
}

// NewBuilder creates a Builder for an input of n rows.
func NewBuilder(n int64) *Builder {
	return &Builder{bits: bitset.New(uint(n)), n: uint(n)}
}

// MarkNull records that original input row i had a null Val.
func (b *Builder) MarkNull(i int64) { b.bits.Set(uint(i)) }

// Any reports whether at least one index was marked null; callers use
// this to decide whether a side file is worth writing at all.
func (b *Builder) Any() bool { return b.bits.Any() }

// Encode serializes the bitmap for Build's WithNullSide option.
func (b *Builder) Encode() ([]byte, error) { return b.bits.MarshalBinary() }

// Set is the read-side view of a decoded null-value bitmap.
type Set struct {
	bits *bitset.BitSet
}

// Decode parses a previously-encoded bitmap (as read from a
// "<path>.nulls.bin" side file).
func Decode(data []byte) (*Set, error) {
	bs := &bitset.BitSet{}
	if err := bs.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return &Set{bits: bs}, nil
}

// IsNull reports whether original input row i had a null Val.
func (s *Set) IsNull(i int64) bool {
	if s == nil || s.bits == nil {
		return false
	}
	return s.bits.Test(uint(i))
}

// Count returns the total number of null entries recorded.
func (s *Set) Count() int64 {
	if s == nil || s.bits == nil {
		return 0
	}
	return int64(s.bits.Count())
}
