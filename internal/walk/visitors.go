package walk

import (
	"container/heap"
	"encoding/csv"
	"math/rand"
	"strconv"

	"github.com/xDarkicex/bstreego/internal/entry"
)

// CounterVisitor just counts matching entries; used by range's
// count-only path when a caller still wants to drive it through the
// Visitor protocol instead of calling RangeCount directly.
type CounterVisitor struct{ N int64 }

func (c *CounterVisitor) Visit(idx int64, entryBytes []byte) bool { c.N++; return true }
func (c *CounterVisitor) CapacityHint(n int64, ok bool)           {}
func (c *CounterVisitor) Finish()                                 {}

// CollectorVisitor copies every visited entry's bytes into a slice.
// CapacityHint, when present, preallocates.
type CollectorVisitor struct {
	Indices []int64
	Entries [][]byte
}

func (c *CollectorVisitor) Visit(idx int64, entryBytes []byte) bool {
	cp := append([]byte(nil), entryBytes...)
	c.Indices = append(c.Indices, idx)
	c.Entries = append(c.Entries, cp)
	return true
}

func (c *CollectorVisitor) CapacityHint(n int64, ok bool) {
	if ok && n > 0 {
		c.Indices = make([]int64, 0, n)
		c.Entries = make([][]byte, 0, n)
	}
}

func (c *CollectorVisitor) Finish() {}

// LimitVisitor wraps another Visitor and stops after max visits,
// independent of any limit already enforced by the walker itself
// (useful for a visitor-side cap applied after RangeCount-style
// planning has already happened).
type LimitVisitor struct {
	Inner Visitor
	Max   int64
	seen  int64
}

func (l *LimitVisitor) Visit(idx int64, entryBytes []byte) bool {
	if l.seen >= l.Max {
		return false
	}
	l.seen++
	return l.Inner.Visit(idx, entryBytes)
}

func (l *LimitVisitor) CapacityHint(n int64, ok bool) {
	if ok && n > l.Max {
		n = l.Max
	}
	l.Inner.CapacityHint(n, ok)
}

func (l *LimitVisitor) Finish() { l.Inner.Finish() }

// candidate is one KNN result pending eviction from a bounded heap.
type candidate struct {
	idx      int64
	val      []byte
	distance float64
}

// topKHeap keeps the k entries seen so far with the largest distance
// at the top, so a new closer candidate can evict the current worst
// in O(log k) — used when a caller wants top-k by some criterion
// without pre-sorting the whole match set.
type topKHeap struct {
	items []candidate
	k     int
}

func (h *topKHeap) Len() int            { return len(h.items) }
func (h *topKHeap) Less(i, j int) bool  { return h.items[i].distance > h.items[j].distance }
func (h *topKHeap) Swap(i, j int)       { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *topKHeap) Push(x interface{})  { h.items = append(h.items, x.(candidate)) }
func (h *topKHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// TopKVisitor retains the k closest-to-query entries it has seen,
// regardless of visit order, using a bounded max-heap keyed by
// distance from a fixed query value.
type TopKVisitor struct {
	Schema entry.Schema
	Query  []byte
	K      int

	h *topKHeap
}

func (t *TopKVisitor) Visit(idx int64, entryBytes []byte) bool {
	if t.h == nil {
		t.h = &topKHeap{k: t.K}
		heap.Init(t.h)
	}
	d := absDistance(t.Schema.Val, t.Schema.ValBytes(entryBytes), t.Query)
	c := candidate{idx: idx, val: append([]byte(nil), entryBytes...), distance: d}
	if t.h.Len() < t.K {
		heap.Push(t.h, c)
	} else if t.h.Len() > 0 && d < t.h.items[0].distance {
		heap.Pop(t.h)
		heap.Push(t.h, c)
	}
	return true
}

func (t *TopKVisitor) CapacityHint(n int64, ok bool) {}

func (t *TopKVisitor) Finish() {}

// Results returns the retained candidates in increasing-distance
// order. Call only after the walk finishes.
func (t *TopKVisitor) Results() []candidate {
	if t.h == nil {
		return nil
	}
	items := append([]candidate(nil), t.h.items...)
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && items[j].distance < items[j-1].distance; j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
	return items
}

// ReservoirVisitor implements reservoir sampling (Algorithm R) over an
// a priori unknown-length walk, retaining a uniform random sample of
// size K.
type ReservoirVisitor struct {
	K    int
	Rand *rand.Rand

	seen    int64
	indices []int64
	entries [][]byte
}

func (r *ReservoirVisitor) Visit(idx int64, entryBytes []byte) bool {
	r.seen++
	if len(r.indices) < r.K {
		r.indices = append(r.indices, idx)
		r.entries = append(r.entries, append([]byte(nil), entryBytes...))
		return true
	}
	j := r.randIntn(r.seen)
	if j < int64(r.K) {
		r.indices[j] = idx
		r.entries[j] = append([]byte(nil), entryBytes...)
	}
	return true
}

func (r *ReservoirVisitor) randIntn(n int64) int64 {
	if r.Rand != nil {
		return r.Rand.Int63n(n)
	}
	return rand.Int63n(n)
}

func (r *ReservoirVisitor) CapacityHint(n int64, ok bool) {}

func (r *ReservoirVisitor) Finish() {}

// Sample returns the current reservoir contents; order is arbitrary.
func (r *ReservoirVisitor) Sample() ([]int64, [][]byte) { return r.indices, r.entries }

// CSVVisitor writes each visited entry as a decoded (id, val) row.
// A write error aborts the walk: that Visit call returns false and the
// error is retained in Err.
type CSVVisitor struct {
	Schema entry.Schema
	W      *csv.Writer
	Err    error
}

func (c *CSVVisitor) Visit(idx int64, entryBytes []byte) bool {
	id, val := c.Schema.DecodeEntry(entryBytes)
	row := []string{formatField(id), formatField(val)}
	if err := c.W.Write(row); err != nil {
		c.Err = err
		return false
	}
	return true
}

func (c *CSVVisitor) CapacityHint(n int64, ok bool) {}

func (c *CSVVisitor) Finish() { c.W.Flush() }

// FormatField exports formatField for callers outside this package
// (qbst formats decoded id/val fields the same way CSVVisitor does).
func FormatField(v any) string { return formatField(v) }

func formatField(v any) string {
	switch x := v.(type) {
	case uint64:
		return strconv.FormatUint(x, 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case []byte:
		return string(x)
	default:
		return ""
	}
}
