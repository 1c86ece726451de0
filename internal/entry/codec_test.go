package entry

import (
	"math/rand"
	"testing"
)

func TestParseFieldTypeRoundTrip(t *testing.T) {
	cases := []string{"u4", "u8", "i3", "i8", "f4", "f8", "t1", "t16", "t255"}
	for _, c := range cases {
		ft, err := ParseFieldType(c)
		if err != nil {
			t.Fatalf("ParseFieldType(%q): %v", c, err)
		}
		if ft.String() != c {
			t.Fatalf("ParseFieldType(%q).String() = %q", c, ft.String())
		}
	}
	bad := []string{"x4", "u2", "u9", "f3", "t0", "t256", "u"}
	for _, c := range bad {
		if _, err := ParseFieldType(c); err == nil {
			t.Fatalf("ParseFieldType(%q): expected error", c)
		}
	}
}

func TestUnsignedCodecRoundTrip(t *testing.T) {
	ft := FieldType{Kind: KindUnsigned, Width: 5}
	buf := make([]byte, ft.Width)
	vals := []uint64{0, 1, 255, 1 << 20, (uint64(1) << 40) - 1}
	for _, v := range vals {
		if err := ft.Encode(buf, v); err != nil {
			t.Fatal(err)
		}
		got := ft.Decode(buf).(uint64)
		if got != v {
			t.Fatalf("width=5: encode/decode(%d) = %d", v, got)
		}
	}
}

func TestSignedCodecRoundTrip(t *testing.T) {
	ft := FieldType{Kind: KindSigned, Width: 4}
	buf := make([]byte, ft.Width)
	vals := []int64{0, -1, 1, -2147483648 >> 1, 2000000000 >> 1, -1000000}
	for _, v := range vals {
		if err := ft.Encode(buf, v); err != nil {
			t.Fatal(err)
		}
		got := ft.Decode(buf).(int64)
		if got != v {
			t.Fatalf("width=4: encode/decode(%d) = %d", v, got)
		}
	}
}

func TestFloatCodecRoundTrip(t *testing.T) {
	for _, width := range []int{4, 8} {
		ft := FieldType{Kind: KindFloat, Width: width}
		buf := make([]byte, width)
		for _, v := range []float64{0, -0.5, 3.25, -12345.678, 1e10} {
			if err := ft.Encode(buf, v); err != nil {
				t.Fatal(err)
			}
			got := ft.Decode(buf).(float64)
			if width == 4 {
				if float64(float32(v)) != got {
					t.Fatalf("width=4: encode/decode(%v) = %v", v, got)
				}
			} else if got != v {
				t.Fatalf("width=8: encode/decode(%v) = %v", v, got)
			}
		}
	}
}

func TestUnsignedCompareMatchesNumericOrder(t *testing.T) {
	ft := FieldType{Kind: KindUnsigned, Width: 6}
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		a := rng.Uint64() % (1 << 48)
		b := rng.Uint64() % (1 << 48)
		ba, bb := make([]byte, 6), make([]byte, 6)
		ft.Encode(ba, a)
		ft.Encode(bb, b)
		want := 0
		if a < b {
			want = -1
		} else if a > b {
			want = 1
		}
		if got := ft.Compare(ba, bb); got != want {
			t.Fatalf("Compare(%d,%d) = %d, want %d", a, b, got, want)
		}
	}
}

func TestSchemaOrderingIsValThenId(t *testing.T) {
	s := Schema{Val: FieldType{Kind: KindSigned, Width: 4}, Id: FieldType{Kind: KindUnsigned, Width: 4}}
	e1 := make([]byte, s.EntrySize())
	e2 := make([]byte, s.EntrySize())
	s.EncodeEntry(e1, uint64(1), int64(10))
	s.EncodeEntry(e2, uint64(2), int64(10))
	if s.Compare(e1, e2) >= 0 {
		t.Fatal("equal Val should tie-break on Id ascending")
	}
	s.EncodeEntry(e1, uint64(99), int64(-5))
	s.EncodeEntry(e2, uint64(1), int64(5))
	if s.Compare(e1, e2) >= 0 {
		t.Fatal("Val should dominate Id in ordering")
	}
}
