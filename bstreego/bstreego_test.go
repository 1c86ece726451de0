package bstreego

import (
	"path/filepath"
	"testing"

	"github.com/xDarkicex/bstreego/internal/exist"
	"github.com/xDarkicex/bstreego/internal/nullside"
	"github.com/xDarkicex/bstreego/internal/walk"
)

// sliceSource replays pre-sorted entries from a slice, the same test
// double internal/build's own tests use for Source.
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

func buildTestTree(t *testing.T, vals []uint64, opts ...BuildOption) (*Tree, Schema) {
	t.Helper()
	schema := Schema{
		Val: FieldType{Kind: KindUnsigned, Width: 8},
		Id:  FieldType{Kind: KindUnsigned, Width: 8},
	}
	entries := make([][]byte, len(vals))
	for i, v := range vals {
		buf := make([]byte, schema.EntrySize())
		if err := schema.EncodeEntry(buf, uint64(i), v); err != nil {
			t.Fatal(err)
		}
		entries[i] = buf
	}
	path := filepath.Join(t.TempDir(), "out.bstree")
	if err := Build(path, schema, int64(len(vals)), &sliceSource{entries: entries}, opts...); err != nil {
		t.Fatalf("Build: %v", err)
	}
	tr, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { tr.Close() })
	return tr, schema
}

func TestOpenFindRoundTrip(t *testing.T) {
	tr, _ := buildTestTree(t, []uint64{10, 20, 20, 30, 40})

	if tr.N() != 5 {
		t.Fatalf("N() = %d, want 5", tr.N())
	}

	id, val, found, err := tr.Find(uint64(20))
	if err != nil || !found {
		t.Fatalf("Find(20): found=%v err=%v", found, err)
	}
	if val.(uint64) != 20 {
		t.Fatalf("Find(20) val = %v, want 20", val)
	}
	if id.(uint64) != 1 {
		t.Fatalf("Find(20) id = %v, want leftmost index 1", id)
	}

	_, _, found, err = tr.Find(uint64(99))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("Find(99): expected not found")
	}
}

func TestLowerUpperBound(t *testing.T) {
	tr, _ := buildTestTree(t, []uint64{10, 20, 20, 30})

	lo, err := tr.LowerBound(uint64(20))
	if err != nil {
		t.Fatal(err)
	}
	if lo != 1 {
		t.Fatalf("LowerBound(20) = %d, want 1", lo)
	}
	hi, err := tr.UpperBound(uint64(20))
	if err != nil {
		t.Fatal(err)
	}
	if hi != 3 {
		t.Fatalf("UpperBound(20) = %d, want 3", hi)
	}
}

func TestNearest(t *testing.T) {
	tr, _ := buildTestTree(t, []uint64{10, 20, 30})

	_, val, found, err := tr.Nearest(uint64(14))
	if err != nil || !found {
		t.Fatalf("Nearest(14): found=%v err=%v", found, err)
	}
	if val.(uint64) != 10 {
		t.Fatalf("Nearest(14) = %v, want 10", val)
	}
}

func TestRangeAndRangeCountAgree(t *testing.T) {
	tr, _ := buildTestTree(t, []uint64{10, 20, 30, 40, 50})

	cv := &walk.CollectorVisitor{}
	n, err := tr.Range(uint64(20), uint64(40), 0, cv)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("Range(20,40) visited %d, want 3", n)
	}

	count, err := tr.RangeCount(uint64(20), uint64(40))
	if err != nil {
		t.Fatal(err)
	}
	if count != n {
		t.Fatalf("RangeCount(20,40) = %d, disagrees with Range's %d", count, n)
	}
}

func TestKNN(t *testing.T) {
	tr, _ := buildTestTree(t, []uint64{0, 10, 20, 25, 30, 40})

	cv := &walk.CollectorVisitor{}
	n, err := tr.KNN(uint64(22), 3, cv)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Fatalf("KNN emitted %d, want 3", n)
	}
	wantVals := []uint64{20, 25, 30}
	for i, e := range cv.Entries {
		_, val := tr.Schema().DecodeEntry(e)
		if val.(uint64) != wantVals[i] {
			t.Fatalf("KNN result[%d] = %v, want %d", i, val, wantVals[i])
		}
	}
}

func TestBloomFastPathMatchesFind(t *testing.T) {
	vals := []uint64{10, 20, 30, 40, 50}
	schema := Schema{
		Val: FieldType{Kind: KindUnsigned, Width: 8},
		Id:  FieldType{Kind: KindUnsigned, Width: 8},
	}
	bl := exist.NewBuilder(int64(len(vals)))
	for _, v := range vals {
		buf := make([]byte, schema.Val.Width)
		if err := schema.Val.Encode(buf, v); err != nil {
			t.Fatal(err)
		}
		bl.Add(buf)
	}
	blEncoded, err := bl.Encode()
	if err != nil {
		t.Fatal(err)
	}

	tr, _ := buildTestTree(t, vals, WithBloom(blEncoded))

	present, err := tr.MaybeContains(uint64(30))
	if err != nil {
		t.Fatal(err)
	}
	if !present {
		t.Fatal("MaybeContains(30): bloom filter must never false-negative a present value")
	}

	_, _, found, err := tr.Find(uint64(30))
	if err != nil || !found {
		t.Fatalf("Find(30) with bloom filter present: found=%v err=%v", found, err)
	}

	_, _, found, err = tr.Find(uint64(999))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("Find(999): expected not found")
	}
}

func TestIsNullWithoutNullSide(t *testing.T) {
	tr, _ := buildTestTree(t, []uint64{10, 20, 30})
	if tr.IsNull(0) {
		t.Fatal("IsNull on a file with no null-side section must always report false")
	}
	if tr.RowCount() != tr.N() {
		t.Fatalf("RowCount() = %d, want N()=%d when no null-side file is present", tr.RowCount(), tr.N())
	}
}

// TestIsNullWithInterleavedNulls builds a tree from a simulated
// original input of 7 rows where rows 1, 3, and 6 were null (and so
// never made it into the tree body), mirroring mkbst's readRows: the
// null-side bitmap is sized and indexed by original row order while
// the tree body only ever sees the surviving non-null values.
func TestIsNullWithInterleavedNulls(t *testing.T) {
	schema := Schema{
		Val: FieldType{Kind: KindUnsigned, Width: 8},
		Id:  FieldType{Kind: KindUnsigned, Width: 8},
	}
	type row struct {
		val    uint64
		isNull bool
	}
	rows := []row{
		{val: 10}, {isNull: true}, {val: 20}, {isNull: true}, {val: 30}, {val: 40}, {isNull: true},
	}

	nb := nullside.NewBuilder(int64(len(rows)))
	var entries [][]byte
	for i, r := range rows {
		if r.isNull {
			nb.MarkNull(int64(i))
			continue
		}
		buf := make([]byte, schema.EntrySize())
		if err := schema.EncodeEntry(buf, uint64(i), r.val); err != nil {
			t.Fatal(err)
		}
		entries = append(entries, buf)
	}
	nullEncoded, err := nb.Encode()
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "nulls.bstree")
	if err := Build(path, schema, int64(len(entries)), &sliceSource{entries: entries}, WithNullSide(nullEncoded)); err != nil {
		t.Fatalf("Build: %v", err)
	}
	tr, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer tr.Close()

	if tr.N() != int64(len(entries)) {
		t.Fatalf("N() = %d, want %d non-null entries", tr.N(), len(entries))
	}
	if tr.NullCount() != 3 {
		t.Fatalf("NullCount() = %d, want 3", tr.NullCount())
	}
	if tr.RowCount() != int64(len(rows)) {
		t.Fatalf("RowCount() = %d, want %d", tr.RowCount(), len(rows))
	}
	for i, r := range rows {
		if got := tr.IsNull(int64(i)); got != r.isNull {
			t.Fatalf("IsNull(%d) = %v, want %v (original row value %+v)", i, got, r.isNull, r)
		}
	}

	_, val, found, err := tr.Find(uint64(30))
	if err != nil || !found || val.(uint64) != 30 {
		t.Fatalf("Find(30): val=%v found=%v err=%v", val, found, err)
	}
}

func TestEmptyTree(t *testing.T) {
	tr, _ := buildTestTree(t, nil)
	if tr.N() != 0 {
		t.Fatalf("N() = %d, want 0", tr.N())
	}
	_, _, found, err := tr.Find(uint64(1))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("Find on empty tree: expected not found")
	}
}
