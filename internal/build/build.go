// Package build implements the bulk-load block writer: it consumes a
// sorted stream of entries and emits a bstree file whose block
// placement matches exactly what internal/layout's Plan computes on
// read, one disk-group buffer at a time. Writing is atomic — a temp
// file is written and fsynced, then renamed into place.
package build

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xDarkicex/bstreego/internal/entry"
	"github.com/xDarkicex/bstreego/internal/header"
	"github.com/xDarkicex/bstreego/internal/layout"
	"github.com/xDarkicex/bstreego/internal/obs"
)

// Source supplies entries in ascending (Val, Id) order, already
// encoded per schema. Next returns ok=false once exhausted. The
// external sorter (internal/sortmerge, or any collaborator) is
// responsible for producing this order; Source is a plain pull
// iterator so Builder never buffers more than one disk group.
type Source interface {
	Next() (entryBytes []byte, ok bool, err error)
}

// UnsortedError reports the 0-based logical index of the first entry
// that violated ascending order.
type UnsortedError struct {
	Index int64
}

func (e *UnsortedError) Error() string {
	return fmt.Sprintf("build: input not sorted at entry index %d", e.Index)
}

// CountMismatchError reports that the stream yielded a different
// number of entries than the declared N.
type CountMismatchError struct {
	Want, Got int64
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("build: expected %d entries, stream produced %d", e.Want, e.Got)
}

// Build consumes exactly n sorted entries from src and writes a
// complete bstree file to path, atomically.
func Build(path string, schema entry.Schema, n int64, src Source, opts ...Option) error {
	timer := prometheus.NewTimer(obs.M.BuildDuration)
	defer timer.ObserveDuration()

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return err
		}
	}

	entrySize := int64(schema.EntrySize())
	plan, err := layout.Plan(layout.Params{
		N:          n,
		EntrySize:  entrySize,
		L1Bytes:    cfg.l1Bytes,
		DiskBytes:  cfg.diskBytes,
		FillFactor: cfg.fillFactor,
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("build: create directory: %w", err)
	}

	w := &writer{schema: schema, entrySize: entrySize, plan: plan, src: src, cfg: cfg}

	if err := atomicWrite(path, func(f *os.File) error {
		bw := bufio.NewWriter(f)
		if err := w.writeHeader(bw); err != nil {
			return err
		}
		if err := w.writeBody(bw); err != nil {
			return err
		}
		if err := w.writeSections(bw); err != nil {
			return err
		}
		return bw.Flush()
	}); err != nil {
		return err
	}

	if len(cfg.nullSide) > 0 {
		if err := atomicWrite(NullSidePath(path), func(f *os.File) error {
			_, err := f.Write(cfg.nullSide)
			return err
		}); err != nil {
			return fmt.Errorf("build: write null-side file: %w", err)
		}
	}
	return nil
}

// NullSidePath returns the companion null-value side file path for a
// given bstree file path: "<name>.bstree.nulls.bin".
func NullSidePath(path string) string { return path + ".nulls.bin" }

type writer struct {
	schema    entry.Schema
	entrySize int64
	plan      *layout.Plan
	src       Source
	cfg       config

	consumed int64
	prev     []byte
	havePrev bool
}

func (w *writer) writeHeader(out io.Writer) error {
	h := header.New(w.schema, w.plan)
	if len(w.cfg.nullSide) > 0 {
		h.Flags |= header.FlagHasNullSide
		h.NullSideSize = uint32(len(w.cfg.nullSide))
	}
	if len(w.cfg.bloom) > 0 {
		h.Flags |= header.FlagHasBloom
		h.BloomSize = uint32(len(w.cfg.bloom))
	}
	h.FileLen = int64(header.PrefixSize) + h.BodyLen() + w.plan.BodySize + int64(len(w.cfg.bloom))
	_, err := h.WriteTo(out)
	return err
}

func (w *writer) writeBody(out io.Writer) error {
	for _, lvl := range w.plan.Levels {
		if lvl.Grouped {
			groupEntries := lvl.GroupSize
			for g := int64(0); g < lvl.NumUnits; g++ {
				buf, err := w.fillGroupedBuffer(groupEntries)
				if err != nil {
					return err
				}
				if _, err := out.Write(buf); err != nil {
					return fmt.Errorf("build: write disk group: %w", err)
				}
			}
		} else {
			for b := int64(0); b < lvl.NumUnits; b++ {
				buf, err := w.fillBareBlock(w.plan.N1)
				if err != nil {
					return err
				}
				if _, err := out.Write(buf); err != nil {
					return fmt.Errorf("build: write block: %w", err)
				}
			}
		}
	}
	if w.plan.Tail > 0 {
		buf, err := w.fillPreorderedSubtree(w.plan.Tail)
		if err != nil {
			return err
		}
		if _, err := out.Write(buf); err != nil {
			return fmt.Errorf("build: write tail: %w", err)
		}
	}
	if w.consumed != w.plan.N {
		return &CountMismatchError{Want: w.plan.N, Got: w.consumed}
	}
	if _, ok, err := w.src.Next(); err != nil {
		return err
	} else if ok {
		return &CountMismatchError{Want: w.plan.N, Got: w.consumed + 1}
	}
	return nil
}

func (w *writer) writeSections(out io.Writer) error {
	if len(w.cfg.bloom) > 0 {
		if _, err := out.Write(w.cfg.bloom); err != nil {
			return fmt.Errorf("build: write bloom section: %w", err)
		}
	}
	return nil
}

// fillGroupedBuffer consumes one whole disk group's worth of entries
// (groupEntries = (1+k)*n1), lays out each of the 1+k chunks as its
// own entry-tier preorder sub-tree, then places those chunks at the
// block-tier preorder positions within the group — so a value-order
// scan of chunk 0, 1, 2, ... lands at the byte positions a block-tier
// Subtree descent expects. Buffer size is O(D*(1+k)): one disk group
// at a time, never the whole file.
func (w *writer) fillGroupedBuffer(groupEntries int64) ([]byte, error) {
	n1 := w.plan.N1
	numBlocks := groupEntries / n1
	buf := make([]byte, groupEntries*w.entrySize)
	blockTree := layout.Subtree{Base: 0, N: numBlocks, UnitSize: n1 * w.entrySize}
	for chunk := int64(0); chunk < numBlocks; chunk++ {
		raw, err := w.readChunk(n1)
		if err != nil {
			return nil, err
		}
		blockBuf := make([]byte, n1*w.entrySize)
		layout.PreorderFromSorted(blockBuf, raw, n1, w.entrySize)
		dest := blockTree.OffsetOfInOrder(chunk)
		copy(buf[dest:dest+n1*w.entrySize], blockBuf)
	}
	return buf, nil
}

// fillBareBlock consumes one L1 block's worth of entries (n1) and
// lays them out in entry-tier preorder, with no surrounding block-tier
// reordering — this level is a run of whole but ungrouped L1 blocks,
// for when what remains is too small for even one whole disk group.
func (w *writer) fillBareBlock(n1 int64) ([]byte, error) {
	return w.fillPreorderedSubtree(n1)
}

func (w *writer) fillPreorderedSubtree(n int64) ([]byte, error) {
	raw, err := w.readChunk(n)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n*w.entrySize)
	layout.PreorderFromSorted(buf, raw, n, w.entrySize)
	return buf, nil
}

// readChunk pulls n consecutive entries from src, in arrival (sorted)
// order, validating monotonicity against the running previous entry.
func (w *writer) readChunk(n int64) ([]byte, error) {
	raw := make([]byte, n*w.entrySize)
	for i := int64(0); i < n; i++ {
		e, ok, err := w.src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &CountMismatchError{Want: w.plan.N, Got: w.consumed}
		}
		if w.havePrev && w.schema.Compare(w.prev, e) > 0 {
			return nil, &UnsortedError{Index: w.consumed}
		}
		copy(raw[i*w.entrySize:(i+1)*w.entrySize], e)
		w.prev = append(w.prev[:0], e...)
		w.havePrev = true
		w.consumed++
		obs.M.BuildEntriesTotal.Inc()
	}
	return raw, nil
}
