// Package storemmap opens a built bstree file for reading: it
// memory-maps the file where the platform supports it, falling back
// to positioned reads through a small LRU page cache otherwise.
// Either way the walker addresses entries purely by byte offset, so
// internal/walk never needs to know which backing is in use.
package storemmap

import (
	"fmt"
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/xDarkicex/bstreego/internal/entry"
	"github.com/xDarkicex/bstreego/internal/header"
	"github.com/xDarkicex/bstreego/internal/layout"
)

// Store is an opened, read-only bstree file: parsed header, the
// reconstructed layout.Plan, and a byte source for the body.
type Store struct {
	file   *os.File
	path   string
	back   backing
	Header header.Header
	Schema entry.Schema
	Plan   *layout.Plan
}

// backing abstracts the mmap-vs-positioned-read choice behind a plain
// byte-range read, matching the shape of a []byte slice so descent
// code can treat both the same way.
type backing interface {
	ReadAt(p []byte, off int64) (int, error)
	Close() error
}

// Open validates and opens path read-only, parsing its header and
// attempting to mmap the body. If mmap is unavailable (e.g. a WASM
// target, or an mmap syscall failure), it transparently falls back to
// a positioned-read Reader backed by an LRU page cache.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("storemmap: open: %w", err)
	}

	h, err := header.ReadFrom(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storemmap: %w", err)
	}
	schema := h.Schema()
	plan := h.Plan()

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storemmap: stat: %w", err)
	}
	wantMin := h.Len() + plan.BodySize
	if info.Size() < wantMin {
		f.Close()
		return nil, fmt.Errorf("storemmap: file truncated: have %d bytes, need at least %d", info.Size(), wantMin)
	}
	if h.FileLen > 0 && info.Size() != h.FileLen {
		f.Close()
		return nil, fmt.Errorf("storemmap: file size %d does not match header-declared length %d", info.Size(), h.FileLen)
	}

	back, err := newMmapBacking(f, info.Size())
	if err != nil {
		back = newCachedBacking(f, defaultPageSize, defaultCachePages)
	}

	return &Store{file: f, path: path, back: back, Header: h, Schema: schema, Plan: plan}, nil
}

// Entry returns a view of the entrySize bytes starting at a body
// offset (relative to the start of the tree body, i.e. as returned by
// Plan.Locate — the header's on-disk length varies per file, so
// callers never add it themselves). Entry always copies into dst to
// keep the mmap-vs-positioned-read paths identical; dst must be at
// least Schema.EntrySize() bytes.
func (s *Store) Entry(dst []byte, bodyOffset int64) error {
	_, err := s.back.ReadAt(dst[:s.Schema.EntrySize()], s.Header.Len()+bodyOffset)
	return err
}

// NullSide reads the companion null-value side file
// ("<path>.nulls.bin"), or returns nil if the header declares none
// present. Unlike the Bloom section, the null-value bitmap lives in
// its own sidecar file rather than being embedded in the body, so it
// never has to move when the body is rebuilt.
func (s *Store) NullSide() ([]byte, error) {
	if !s.Header.HasNullSide() {
		return nil, nil
	}
	data, err := os.ReadFile(nullSidePath(s.path))
	if err != nil {
		return nil, fmt.Errorf("storemmap: read null-side file: %w", err)
	}
	return data, nil
}

// nullSidePath mirrors build.NullSidePath; storemmap does not import
// the build package, so the naming convention is repeated here.
func nullSidePath(path string) string { return path + ".nulls.bin" }

// Bloom returns the raw bytes of the optional existence Bloom filter
// section, embedded in the main file immediately after the tree body,
// or nil if the header declares none present.
func (s *Store) Bloom() ([]byte, error) {
	if !s.Header.HasBloom() {
		return nil, nil
	}
	off := s.Header.Len() + s.Plan.BodySize
	buf := make([]byte, s.Header.BloomSize)
	if _, err := s.back.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("storemmap: read bloom section: %w", err)
	}
	return buf, nil
}

// Close unmaps/releases the backing and closes the underlying file.
func (s *Store) Close() error {
	backErr := s.back.Close()
	fileErr := s.file.Close()
	if backErr != nil {
		return backErr
	}
	return fileErr
}

// mmapBacking serves ReadAt directly from a memory-mapped byte slice.
type mmapBacking struct {
	m mmap.MMap
}

func newMmapBacking(f *os.File, size int64) (backing, error) {
	if size == 0 {
		return nil, fmt.Errorf("storemmap: cannot mmap empty file")
	}
	m, err := mmap.MapRegion(f, int(size), mmap.RDONLY, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("storemmap: mmap: %w", err)
	}
	return &mmapBacking{m: m}, nil
}

func (b *mmapBacking) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(b.m)) {
		return 0, fmt.Errorf("storemmap: read out of range: offset=%d len=%d size=%d", off, len(p), len(b.m))
	}
	return copy(p, b.m[off:off+int64(len(p))]), nil
}

func (b *mmapBacking) Close() error { return b.m.Unmap() }
