package storemmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/xDarkicex/bstreego/internal/build"
	"github.com/xDarkicex/bstreego/internal/entry"
)

type sliceSource struct {
	entries [][]byte
	i       int
}

func (s *sliceSource) Next() ([]byte, bool, error) {
	if s.i >= len(s.entries) {
		return nil, false, nil
	}
	e := s.entries[s.i]
	s.i++
	return e, true, nil
}

func buildTestFile(t *testing.T, schema entry.Schema, vals []uint64, opts ...build.Option) string {
	t.Helper()
	entries := make([][]byte, len(vals))
	for i, v := range vals {
		buf := make([]byte, schema.EntrySize())
		if err := schema.EncodeEntry(buf, uint64(i), v); err != nil {
			t.Fatal(err)
		}
		entries[i] = buf
	}
	path := filepath.Join(t.TempDir(), "test.bstree")
	if err := build.Build(path, schema, int64(len(vals)), &sliceSource{entries: entries}, opts...); err != nil {
		t.Fatalf("build.Build: %v", err)
	}
	return path
}

func TestOpenAndReadEveryEntry(t *testing.T) {
	schema := entry.Schema{
		Val: entry.FieldType{Kind: entry.KindUnsigned, Width: 4},
		Id:  entry.FieldType{Kind: entry.KindUnsigned, Width: 4},
	}
	const n = 4000
	vals := make([]uint64, n)
	for i := range vals {
		vals[i] = uint64(i * 7)
	}
	path := buildTestFile(t, schema, vals, build.WithL1Bytes(512), build.WithDiskBytes(8192))

	store, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()

	if store.Header.N != n {
		t.Fatalf("Header.N = %d, want %d", store.Header.N, n)
	}

	buf := make([]byte, schema.EntrySize())
	for i := int64(0); i < n; i++ {
		off := store.Plan.Locate(i)
		if err := store.Entry(buf, off); err != nil {
			t.Fatalf("Entry(%d): %v", i, err)
		}
		_, val := schema.DecodeEntry(buf)
		if val.(uint64) != vals[i] {
			t.Fatalf("logical index %d: val = %d, want %d", i, val, vals[i])
		}
	}
}

func TestCachedBackingMatchesDirectRead(t *testing.T) {
	schema := entry.Schema{
		Val: entry.FieldType{Kind: entry.KindUnsigned, Width: 4},
		Id:  entry.FieldType{Kind: entry.KindUnsigned, Width: 4},
	}
	const n = 300
	vals := make([]uint64, n)
	for i := range vals {
		vals[i] = uint64(i)
	}
	path := buildTestFile(t, schema, vals, build.WithL1Bytes(128), build.WithDiskBytes(2048))

	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	mmapBuf := make([]byte, schema.EntrySize())
	if err := store.Entry(mmapBuf, store.Plan.Locate(42)); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cb := newCachedBacking(f, 37, 4) // deliberately tiny/misaligned page size
	cachedBuf := make([]byte, schema.EntrySize())
	off := store.Header.Len() + store.Plan.Locate(42)
	if _, err := cb.ReadAt(cachedBuf, off); err != nil {
		t.Fatal(err)
	}
	if string(cachedBuf) != string(mmapBuf) {
		t.Fatalf("cached backing read %x, want %x", cachedBuf, mmapBuf)
	}
}
