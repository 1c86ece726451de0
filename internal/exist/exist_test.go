package exist

import "testing"

func TestNoFalseNegatives(t *testing.T) {
	b := NewBuilder(1000)
	present := make([][]byte, 0, 1000)
	for i := 0; i < 1000; i++ {
		v := []byte{byte(i), byte(i >> 8), byte(i >> 16), byte(i >> 24)}
		b.Add(v)
		present = append(present, v)
	}
	data, err := b.Encode()
	if err != nil {
		t.Fatal(err)
	}
	f, err := Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range present {
		if !f.MaybePresent(v) {
			t.Fatalf("false negative for %v", v)
		}
	}
}

func TestNilFilterAlwaysMaybePresent(t *testing.T) {
	var f *Filter
	if !f.MaybePresent([]byte{1, 2, 3}) {
		t.Fatal("nil filter should conservatively report maybe-present")
	}
}
