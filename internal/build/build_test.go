package build

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/xDarkicex/bstreego/internal/entry"
	"github.com/xDarkicex/bstreego/internal/header"
)

// sliceSource yields pre-encoded, pre-sorted entries from a slice.
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

func encodeSorted(t *testing.T, schema entry.Schema, vals []uint64) [][]byte {
	t.Helper()
	out := make([][]byte, len(vals))
	for i, v := range vals {
		buf := make([]byte, schema.EntrySize())
		if err := schema.EncodeEntry(buf, uint64(i), v); err != nil {
			t.Fatal(err)
		}
		out[i] = buf
	}
	return out
}

func TestBuildRoundTripsEveryEntry(t *testing.T) {
	schema := entry.Schema{
		Val: entry.FieldType{Kind: entry.KindUnsigned, Width: 4},
		Id:  entry.FieldType{Kind: entry.KindUnsigned, Width: 4},
	}
	const n = 5000
	vals := make([]uint64, n)
	for i := range vals {
		vals[i] = uint64(i * 3)
	}
	entries := encodeSorted(t, schema, vals)

	dir := t.TempDir()
	path := filepath.Join(dir, "out.bstree")
	src := &sliceSource{entries: entries}
	if err := Build(path, schema, n, src, WithL1Bytes(256), WithDiskBytes(4096)); err != nil {
		t.Fatalf("Build: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	h, err := header.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("header.ReadFrom: %v", err)
	}
	if h.N != n {
		t.Fatalf("header N = %d, want %d", h.N, n)
	}
	body := data[h.Len():]
	entrySize := int64(schema.EntrySize())
	plan := h.Plan()
	if int64(len(body)) < plan.BodySize {
		t.Fatalf("body too short: %d < %d", len(body), plan.BodySize)
	}
	for i := int64(0); i < n; i++ {
		off := plan.Locate(i)
		got := body[off : off+entrySize]
		if string(got) != string(entries[i]) {
			id, val := schema.DecodeEntry(got)
			t.Fatalf("logical index %d: entry at offset %d decodes to (id=%v,val=%v), want val=%v", i, off, id, val, vals[i])
		}
	}
}

func TestBuildRejectsUnsortedInput(t *testing.T) {
	schema := entry.Schema{
		Val: entry.FieldType{Kind: entry.KindUnsigned, Width: 4},
		Id:  entry.FieldType{Kind: entry.KindUnsigned, Width: 4},
	}
	entries := encodeSorted(t, schema, []uint64{1, 2, 5, 3, 10})
	path := filepath.Join(t.TempDir(), "out.bstree")
	err := Build(path, schema, int64(len(entries)), &sliceSource{entries: entries})
	if err == nil {
		t.Fatal("expected unsorted-input error")
	}
	var unsorted *UnsortedError
	if !errors.As(err, &unsorted) {
		t.Fatalf("expected *UnsortedError in chain, got %v", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Fatal("partial file should not exist after failed build")
	}
	if _, statErr := os.Stat(path + ".tmp"); statErr == nil {
		t.Fatal("temp file should be cleaned up after failed build")
	}
}

func TestBuildRejectsCountMismatch(t *testing.T) {
	schema := entry.Schema{
		Val: entry.FieldType{Kind: entry.KindUnsigned, Width: 4},
		Id:  entry.FieldType{Kind: entry.KindUnsigned, Width: 4},
	}
	entries := encodeSorted(t, schema, []uint64{1, 2, 3})
	path := filepath.Join(t.TempDir(), "out.bstree")
	if err := Build(path, schema, 5, &sliceSource{entries: entries}); err == nil {
		t.Fatal("expected count-mismatch error for short stream")
	}
	moreEntries := encodeSorted(t, schema, []uint64{1, 2, 3, 4, 5})
	if err := Build(path, schema, 3, &sliceSource{entries: moreEntries}); err == nil {
		t.Fatal("expected count-mismatch error for long stream")
	}
}

func TestBuildEmptyInput(t *testing.T) {
	schema := entry.Schema{
		Val: entry.FieldType{Kind: entry.KindUnsigned, Width: 4},
		Id:  entry.FieldType{Kind: entry.KindUnsigned, Width: 4},
	}
	path := filepath.Join(t.TempDir(), "out.bstree")
	if err := Build(path, schema, 0, &sliceSource{}); err != nil {
		t.Fatalf("Build empty input: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	h, err := header.ReadFrom(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if h.N != 0 {
		t.Fatalf("header N = %d, want 0", h.N)
	}
	if int64(len(data)) != h.Len() {
		t.Fatalf("file size = %d, want exactly header length %d for empty body", len(data), h.Len())
	}
}
