// Package exist implements the optional existence Bloom filter: an
// embedded section consulted by find before its descent, so a point
// lookup for a value that was never in the input
// stream answers "definitely absent" without touching a single tree
// page.
package exist

import (
	"bytes"
	"fmt"

	"github.com/bits-and-blooms/bloom/v3"
)

const falsePositiveRate = 0.01

// Builder wraps a bloom.BloomFilter sized for n expected entries.
type Builder struct {
	filter *bloom.BloomFilter
}

// NewBuilder creates a Builder sized for n entries at a fixed target
// false-positive rate.
func NewBuilder(n int64) *Builder {
	if n < 1 {
		n = 1
	}
	return &Builder{filter: bloom.NewWithEstimates(uint(n), falsePositiveRate)}
}

// Add records that valBytes (the encoded Val field) is present.
func (b *Builder) Add(valBytes []byte) { b.filter.Add(valBytes) }

// Encode serializes the filter for Build's WithBloom option.
func (b *Builder) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := b.filter.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("exist: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Filter is the read-side view of a decoded existence filter.
type Filter struct {
	filter *bloom.BloomFilter
}

// Decode parses a previously-encoded filter (as read from a bstree
// file's embedded Bloom section).
func Decode(data []byte) (*Filter, error) {
	f := &bloom.BloomFilter{}
	if _, err := f.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("exist: decode: %w", err)
	}
	return &Filter{filter: f}, nil
}

// MaybePresent reports whether valBytes might be present (true) or is
// definitely absent (false). A false reply lets find short-circuit
// without a descent; a true reply still requires the
// real descent to confirm, since Bloom filters admit false positives
// but never false negatives.
func (f *Filter) MaybePresent(valBytes []byte) bool {
	if f == nil || f.filter == nil {
		return true
	}
	return f.filter.Test(valBytes)
}
