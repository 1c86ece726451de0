package nullside

import "testing"

func TestBuilderRoundTrip(t *testing.T) {
	b := NewBuilder(100)
	nulls := []int64{0, 3, 17, 99}
	for _, i := range nulls {
		b.MarkNull(i)
	}
	if !b.Any() {
		t.Fatal("Any() = false, want true")
	}
	data, err := b.Encode()
	if err != nil {
		t.Fatal(err)
	}
	s, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	want := make(map[int64]bool)
	for _, i := range nulls {
		want[i] = true
	}
	for i := int64(0); i < 100; i++ {
		if s.IsNull(i) != want[i] {
			t.Fatalf("IsNull(%d) = %v, want %v", i, s.IsNull(i), want[i])
		}
	}
	if s.Count() != int64(len(nulls)) {
		t.Fatalf("Count() = %d, want %d", s.Count(), len(nulls))
	}
}

func TestBuilderAnyFalseWhenEmpty(t *testing.T) {
	b := NewBuilder(10)
	if b.Any() {
		t.Fatal("Any() = true on a builder with no marked nulls")
	}
}
