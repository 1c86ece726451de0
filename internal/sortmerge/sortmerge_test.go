package sortmerge

import (
	"math/rand"
	"testing"

	"github.com/xDarkicex/bstreego/internal/entry"
)

type sliceUnsorted struct {
	entries [][]byte
	i       int
}

func (s *sliceUnsorted) Next() ([]byte, bool, error) {
	if s.i >= len(s.entries) {
		return nil, false, nil
	}
	e := s.entries[s.i]
	s.i++
	return e, true, nil
}

func TestSortProducesAscendingOrder(t *testing.T) {
	schema := entry.Schema{
		Val: entry.FieldType{Kind: entry.KindUnsigned, Width: 8},
		Id:  entry.FieldType{Kind: entry.KindUnsigned, Width: 8},
	}
	rng := rand.New(rand.NewSource(1))
	n := 2000
	entries := make([][]byte, n)
	for i := 0; i < n; i++ {
		buf := make([]byte, schema.EntrySize())
		v := uint64(rng.Intn(n * 4))
		schema.EncodeEntry(buf, uint64(i), v)
		entries[i] = buf
	}

	src := &sliceUnsorted{entries: entries}
	out, cleanup, err := Sort(src, schema, 97, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()

	var prev []byte
	count := 0
	for {
		e, ok, err := out.Next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			break
		}
		if prev != nil && schema.Compare(prev, e) > 0 {
			t.Fatalf("out of order at position %d", count)
		}
		prev = append([]byte(nil), e...)
		count++
	}
	if count != n {
		t.Fatalf("expected %d entries, got %d", n, count)
	}
}

func TestSortEmptyInput(t *testing.T) {
	schema := entry.Schema{
		Val: entry.FieldType{Kind: entry.KindUnsigned, Width: 8},
		Id:  entry.FieldType{Kind: entry.KindUnsigned, Width: 8},
	}
	src := &sliceUnsorted{}
	out, cleanup, err := Sort(src, schema, 16, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer cleanup()
	_, ok, err := out.Next()
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("expected no entries")
	}
}
