// Package sortmerge is a pluggable external k-way merge sort: it takes
// entries in arbitrary order and produces a build.Source that replays
// them ascending, without requiring the whole input to fit in memory.
// It splits the input into sorted runs small enough to fit in memory,
// spills each to a temp file, then merges the runs with a bounded
// min-heap — the same container/heap idiom internal/walk's topKHeap
// uses, applied to run-merging instead of k-nearest-neighbour
// retrieval.
package sortmerge

import (
	"bufio"
	"container/heap"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/xDarkicex/bstreego/internal/build"
	"github.com/xDarkicex/bstreego/internal/entry"
)

// UnsortedSource supplies entries in arbitrary order, already encoded
// per schema. It is the input side of the collaborator; build.Source
// (ascending order) is the output side.
type UnsortedSource interface {
	Next() (entryBytes []byte, ok bool, err error)
}

// Sort reads every entry from src, sorts it by schema's (Val, Id)
// order using an external k-way merge, and returns a build.Source
// that replays the result ascending. runSize caps how many entries
// are held in memory at once, the same bounded-buffer resource policy
// the builder itself uses.
func Sort(src UnsortedSource, schema entry.Schema, runSize int, tmpDir string) (build.Source, func() error, error) {
	if runSize <= 0 {
		runSize = 1 << 16
	}
	entrySize := schema.EntrySize()

	var runPaths []string
	cleanup := func() error {
		var firstErr error
		for _, p := range runPaths {
			if err := os.Remove(p); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return firstErr
	}

	buf := make([][]byte, 0, runSize)
	flush := func() error {
		if len(buf) == 0 {
			return nil
		}
		sort.Slice(buf, func(i, j int) bool { return schema.Compare(buf[i], buf[j]) < 0 })
		path, err := writeRun(tmpDir, buf)
		if err != nil {
			return err
		}
		runPaths = append(runPaths, path)
		buf = buf[:0]
		return nil
	}

	for {
		e, ok, err := src.Next()
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("sortmerge: read: %w", err)
		}
		if !ok {
			break
		}
		buf = append(buf, append([]byte(nil), e...))
		if len(buf) >= runSize {
			if err := flush(); err != nil {
				cleanup()
				return nil, nil, err
			}
		}
	}
	if err := flush(); err != nil {
		cleanup()
		return nil, nil, err
	}

	merged, err := newMergeSource(runPaths, schema, entrySize)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return merged, cleanup, nil
}

func writeRun(tmpDir string, entries [][]byte) (string, error) {
	f, err := os.CreateTemp(tmpDir, "bstreego-run-*.bin")
	if err != nil {
		return "", fmt.Errorf("sortmerge: create run file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, e := range entries {
		if _, err := w.Write(e); err != nil {
			return "", fmt.Errorf("sortmerge: write run file: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("sortmerge: flush run file: %w", err)
	}
	return f.Name(), nil
}

// runReader replays one sorted run file entry by entry.
type runReader struct {
	f         *os.File
	r         *bufio.Reader
	entrySize int
}

func openRun(path string, entrySize int) (*runReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sortmerge: open run file: %w", err)
	}
	return &runReader{f: f, r: bufio.NewReader(f), entrySize: entrySize}, nil
}

func (r *runReader) next() ([]byte, bool, error) {
	buf := make([]byte, r.entrySize)
	if _, err := io.ReadFull(r.r, buf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, false, nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, false, fmt.Errorf("sortmerge: truncated run file")
		}
		return nil, false, err
	}
	return buf, true, nil
}

func (r *runReader) close() error { return r.f.Close() }

// mergeItem is one run's current head entry, ordered for the
// k-way-merge min-heap.
type mergeItem struct {
	entry []byte
	run   int
}

type mergeHeap struct {
	items  []mergeItem
	schema entry.Schema
}

func (h *mergeHeap) Len() int { return len(h.items) }
func (h *mergeHeap) Less(i, j int) bool {
	return h.schema.Compare(h.items[i].entry, h.items[j].entry) < 0
}
func (h *mergeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *mergeHeap) Push(x interface{}) {
	h.items = append(h.items, x.(mergeItem))
}
func (h *mergeHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	h.items = old[:n-1]
	return item
}

// mergeSource implements build.Source over a set of already-sorted
// run files, merged lazily via a min-heap so memory use stays
// O(numRuns) regardless of total entry count.
type mergeSource struct {
	runs   []*runReader
	h      *mergeHeap
	closed bool
}

func newMergeSource(paths []string, schema entry.Schema, entrySize int) (*mergeSource, error) {
	ms := &mergeSource{h: &mergeHeap{schema: schema}}
	for _, p := range paths {
		rr, err := openRun(p, entrySize)
		if err != nil {
			ms.closeAll()
			return nil, err
		}
		ms.runs = append(ms.runs, rr)
		e, ok, err := rr.next()
		if err != nil {
			ms.closeAll()
			return nil, err
		}
		if ok {
			heap.Push(ms.h, mergeItem{entry: e, run: len(ms.runs) - 1})
		}
	}
	return ms, nil
}

func (ms *mergeSource) Next() ([]byte, bool, error) {
	if ms.h.Len() == 0 {
		if !ms.closed {
			ms.closeAll()
		}
		return nil, false, nil
	}
	top := heap.Pop(ms.h).(mergeItem)
	e, ok, err := ms.runs[top.run].next()
	if err != nil {
		return nil, false, err
	}
	if ok {
		heap.Push(ms.h, mergeItem{entry: e, run: top.run})
	}
	return top.entry, true, nil
}

func (ms *mergeSource) closeAll() {
	ms.closed = true
	for _, r := range ms.runs {
		r.close()
	}
}
