// Package bstreego is the public entry point: Open a built file for
// querying, or Build one from a sorted entry stream. Everything below
// this layer (layout arithmetic, the entry codec, the on-disk header,
// the block writer, the mmap reader, and the walkers) is in
// internal/, kept out of the public API surface.
package bstreego

import (
	"errors"

	"github.com/xDarkicex/bstreego/internal/build"
	"github.com/xDarkicex/bstreego/internal/entry"
	"github.com/xDarkicex/bstreego/internal/exist"
	"github.com/xDarkicex/bstreego/internal/nullside"
	"github.com/xDarkicex/bstreego/internal/obs"
	"github.com/xDarkicex/bstreego/internal/storemmap"
	"github.com/xDarkicex/bstreego/internal/walk"
)

// Source supplies entries in ascending (Val, Id) order. See
// internal/build.Source; re-exported so callers never need to import
// the internal package to implement it.
type Source = build.Source

// Schema describes one file's (Id, Val) field layout. See
// internal/entry.Schema.
type Schema = entry.Schema

// FieldType is the on-disk type tag + width of one field. See
// internal/entry.FieldType.
type FieldType = entry.FieldType

// Kind constants for FieldType, re-exported from internal/entry.
const (
	KindUnsigned = entry.KindUnsigned
	KindSigned   = entry.KindSigned
	KindFloat    = entry.KindFloat
	KindString   = entry.KindString
)

// ParseFieldType parses a compact type token such as "u4" or "f8".
func ParseFieldType(s string) (FieldType, error) { return entry.ParseFieldType(s) }

// Build consumes exactly n sorted entries from src and writes a
// complete bstree file at path, atomically.
func Build(path string, schema Schema, n int64, src Source, opts ...BuildOption) error {
	if err := schema.Val.Validate(); err != nil {
		return newError(InvalidInput, "build", "invalid Val field type", err)
	}
	if err := schema.Id.Validate(); err != nil {
		return newError(InvalidInput, "build", "invalid Id field type", err)
	}
	if n < 0 {
		return newError(InvalidInput, "build", "n must be non-negative", nil)
	}
	if err := build.Build(path, schema, n, src, opts...); err != nil {
		return wrapBuildError(err)
	}
	return nil
}

func wrapBuildError(err error) error {
	var unsorted *build.UnsortedError
	var mismatch *build.CountMismatchError
	switch {
	case errors.As(err, &unsorted):
		return newError(InvalidInput, "build", "input stream not sorted", err)
	case errors.As(err, &mismatch):
		return newError(InvalidInput, "build", "entry count did not match declared N", err)
	default:
		return newError(IoError, "build", "build failed", err)
	}
}

// Tree is an opened, read-only bstree file.
type Tree struct {
	store *storemmap.Store
	nulls *nullside.Set
	bloom *exist.Filter
}

// Open opens path read-only, validating its header and (if present)
// loading its null-value side file and existence Bloom filter up front.
func Open(path string) (*Tree, error) {
	store, err := storemmap.Open(path)
	if err != nil {
		return nil, newError(FormatError, "open", "failed to open file", err)
	}
	t := &Tree{store: store}

	if store.Header.HasNullSide() {
		data, err := store.NullSide()
		if err != nil {
			store.Close()
			return nil, newError(IoError, "open", "failed to read null-side file", err)
		}
		nulls, err := nullside.Decode(data)
		if err != nil {
			store.Close()
			return nil, newError(FormatError, "open", "corrupt null-side file", err)
		}
		t.nulls = nulls
	}
	if store.Header.HasBloom() {
		data, err := store.Bloom()
		if err != nil {
			store.Close()
			return nil, newError(IoError, "open", "failed to read bloom section", err)
		}
		bloom, err := exist.Decode(data)
		if err != nil {
			store.Close()
			return nil, newError(FormatError, "open", "corrupt bloom section", err)
		}
		t.bloom = bloom
	}
	return t, nil
}

// Close releases the underlying file and memory map.
func (t *Tree) Close() error {
	if err := t.store.Close(); err != nil {
		return newError(IoError, "close", "failed to close file", err)
	}
	return nil
}

// N returns the total number of entries in the file.
func (t *Tree) N() int64 { return t.store.Header.N }

// Schema returns the file's (Id, Val) field layout.
func (t *Tree) Schema() Schema { return t.store.Schema }

func track(op string, err error) {
	obs.M.QueryTotal.WithLabelValues(op).Inc()
	if err != nil {
		obs.M.QueryErrors.Inc()
	}
}

func (t *Tree) encodeVal(val any) ([]byte, error) {
	buf := make([]byte, t.store.Schema.Val.Width)
	if err := t.store.Schema.Val.Encode(buf, val); err != nil {
		return nil, newError(InvalidInput, "query", "could not encode query value", err)
	}
	return buf, nil
}

// Find returns any entry with Val == v.
func (t *Tree) Find(v any) (id, val any, found bool, err error) {
	defer func() { track("find", err) }()
	vb, err := t.encodeVal(v)
	if err != nil {
		return nil, nil, false, err
	}
	if t.bloom != nil && !t.bloom.MaybePresent(vb) {
		return nil, nil, false, nil
	}
	e, _, found, err := walk.Find(walk.Wrap(t.store), vb)
	if err != nil {
		return nil, nil, false, newError(IoError, "find", "descent failed", err)
	}
	if !found {
		return nil, nil, false, nil
	}
	id, val = t.store.Schema.DecodeEntry(e)
	return id, val, true, nil
}

// LowerBound returns the logical index of the first entry with
// Val >= v. If an existence Bloom filter is present and definitively
// rules v out, LowerBound still performs the real descent — the
// Bloom fast path only short-circuits equality checks (Find), since
// lower_bound's answer is meaningful even for values never present.
func (t *Tree) LowerBound(v any) (idx int64, err error) {
	defer func() { track("lower_bound", err) }()
	vb, err := t.encodeVal(v)
	if err != nil {
		return 0, err
	}
	idx, err = walk.LowerBound(walk.Wrap(t.store), vb)
	if err != nil {
		return 0, newError(IoError, "lower_bound", "descent failed", err)
	}
	return idx, nil
}

// UpperBound returns the logical index of the first entry with
// Val > v.
func (t *Tree) UpperBound(v any) (idx int64, err error) {
	defer func() { track("upper_bound", err) }()
	vb, err := t.encodeVal(v)
	if err != nil {
		return 0, err
	}
	idx, err = walk.UpperBound(walk.Wrap(t.store), vb)
	if err != nil {
		return 0, newError(IoError, "upper_bound", "descent failed", err)
	}
	return idx, nil
}

// Nearest returns the entry minimizing |Val - v|.
func (t *Tree) Nearest(v any) (id, val any, found bool, err error) {
	defer func() { track("nearest", err) }()
	vb, err := t.encodeVal(v)
	if err != nil {
		return nil, nil, false, err
	}
	e, _, found, err := walk.Nearest(walk.Wrap(t.store), vb)
	if err != nil {
		return nil, nil, false, newError(IoError, "nearest", "descent failed", err)
	}
	if !found {
		return nil, nil, false, nil
	}
	id, val = t.store.Schema.DecodeEntry(e)
	return id, val, true, nil
}

// Range enumerates entries with Val between from and to (ascending if
// from <= to, descending otherwise), visiting v for each match.
func (t *Tree) Range(from, to any, limit int64, v walk.Visitor) (n int64, err error) {
	defer func() { track("range", err) }()
	fb, err := t.encodeVal(from)
	if err != nil {
		return 0, err
	}
	tb, err := t.encodeVal(to)
	if err != nil {
		return 0, err
	}
	n, err = walk.Range(walk.Wrap(t.store), fb, tb, limit, v)
	if err != nil {
		return n, newError(IoError, "range", "range walk failed", err)
	}
	return n, nil
}

// RangeCount returns the number of entries with Val in [min(from,to),
// max(from,to)] without materializing them.
func (t *Tree) RangeCount(from, to any) (n int64, err error) {
	defer func() { track("range_count", err) }()
	fb, err := t.encodeVal(from)
	if err != nil {
		return 0, err
	}
	tb, err := t.encodeVal(to)
	if err != nil {
		return 0, err
	}
	n, err = walk.RangeCount(walk.Wrap(t.store), fb, tb)
	if err != nil {
		return 0, newError(IoError, "range_count", "range walk failed", err)
	}
	return n, nil
}

// KNN enumerates the k entries nearest to v, in increasing distance
// order.
func (t *Tree) KNN(v any, k int64, visitor walk.Visitor) (n int64, err error) {
	defer func() { track("knn", err) }()
	vb, err := t.encodeVal(v)
	if err != nil {
		return 0, err
	}
	n, err = walk.KNN(walk.Wrap(t.store), vb, k, visitor)
	if err != nil {
		return n, newError(IoError, "knn", "knn walk failed", err)
	}
	return n, nil
}

// IsNull reports whether the original input row at index i (row order
// at build time, not a tree logical index — the tree body never holds
// null rows at all, so there is no tree-logical index for one; see
// RowCount for the valid range of i) had a null Val. Always false if
// the file carries no null-side file.
func (t *Tree) IsNull(i int64) bool { return t.nulls.IsNull(i) }

// NullCount returns how many original input rows had a null Val, or 0
// if the file carries no null-side file.
func (t *Tree) NullCount() int64 {
	if t.nulls == nil {
		return 0
	}
	return t.nulls.Count()
}

// RowCount returns the total number of rows in the original build
// input, including any that were null and excluded from the tree
// body — the valid index range for IsNull is [0, RowCount()). Equal
// to N() when the file carries no null-side file.
func (t *Tree) RowCount() int64 { return t.N() + t.NullCount() }

// MaybeContains reports whether v might be present, using the
// embedded existence Bloom filter if one is present; always true when
// no filter was built (the caller must still confirm with Find).
func (t *Tree) MaybeContains(v any) (bool, error) {
	if t.bloom == nil {
		return true, nil
	}
	vb, err := t.encodeVal(v)
	if err != nil {
		return false, err
	}
	return t.bloom.MaybePresent(vb), nil
}
