// Package walk implements the descent, range, and KNN walkers. All
// three are expressed as ordinary binary search or linear scans over
// the logical index space [0, N) — internal/layout.Plan already
// carries the full cost of translating a logical index into the byte
// offset a direct tree descent would have found, so the walker itself
// stays a flat loop over candidate positions (each probe reads the
// entry into a fresh buffer) rather than a hand-written recursive
// tree descent.
package walk

import (
	"fmt"

	"github.com/xDarkicex/bstreego/internal/entry"
	"github.com/xDarkicex/bstreego/internal/storemmap"
)

// reader is the subset of *storemmap.Store the walkers need; kept
// narrow so tests can exercise the algorithms against an in-memory
// fake without building a real file.
type reader interface {
	Locate(i int64) int64
	N() int64
	Schema() entry.Schema
	Entry(dst []byte, bodyOffset int64) error
}

// storeReader adapts *storemmap.Store to reader.
type storeReader struct{ s *storemmap.Store }

// Wrap adapts an opened Store for use by the walkers in this package.
func Wrap(s *storemmap.Store) reader { return storeReader{s: s} }

func (r storeReader) Locate(i int64) int64    { return r.s.Plan.Locate(i) }
func (r storeReader) N() int64                { return r.s.Header.N }
func (r storeReader) Schema() entry.Schema    { return r.s.Schema }
func (r storeReader) Entry(dst []byte, off int64) error { return r.s.Entry(dst, off) }

// entryAt fetches and decodes the entry at logical index i.
func entryAt(r reader, i int64) ([]byte, error) {
	buf := make([]byte, r.Schema().EntrySize())
	if err := r.Entry(buf, r.Locate(i)); err != nil {
		return nil, fmt.Errorf("walk: read logical index %d: %w", i, err)
	}
	return buf, nil
}

// lowerBound returns the smallest logical index i such that
// Val(A[i]) >= v, or N if none exists.
func lowerBound(r reader, valBytes []byte) (int64, error) {
	lo, hi := int64(0), r.N()
	s := r.Schema()
	for lo < hi {
		mid := lo + (hi-lo)/2
		e, err := entryAt(r, mid)
		if err != nil {
			return 0, err
		}
		if s.CompareEntryToVal(e, valBytes) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// upperBound returns the smallest logical index i such that
// Val(A[i]) > v, or N if none exists.
func upperBound(r reader, valBytes []byte) (int64, error) {
	lo, hi := int64(0), r.N()
	s := r.Schema()
	for lo < hi {
		mid := lo + (hi-lo)/2
		e, err := entryAt(r, mid)
		if err != nil {
			return 0, err
		}
		if s.CompareEntryToVal(e, valBytes) <= 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}
