package entry

import (
	"bytes"
	"fmt"
	"math"
)

// Encode writes v into dst[:ft.Width] in the field's on-disk
// representation. v must be uint64 (KindUnsigned), int64 (KindSigned),
// float64 (KindFloat), or []byte (KindString).
func (ft FieldType) Encode(dst []byte, v any) error {
	switch ft.Kind {
	case KindUnsigned:
		u, ok := v.(uint64)
		if !ok {
			return fmt.Errorf("entry: expected uint64 for %s, got %T", ft, v)
		}
		putUintLE(dst[:ft.Width], u)
	case KindSigned:
		i, ok := v.(int64)
		if !ok {
			return fmt.Errorf("entry: expected int64 for %s, got %T", ft, v)
		}
		putUintLE(dst[:ft.Width], uint64(i))
	case KindFloat:
		f, ok := v.(float64)
		if !ok {
			return fmt.Errorf("entry: expected float64 for %s, got %T", ft, v)
		}
		if ft.Width == 4 {
			putUintLE(dst[:4], uint64(math.Float32bits(float32(f))))
		} else {
			putUintLE(dst[:8], math.Float64bits(f))
		}
	case KindString:
		b, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("entry: expected []byte for %s, got %T", ft, v)
		}
		n := copy(dst[:ft.Width], b)
		for i := n; i < ft.Width; i++ {
			dst[i] = 0
		}
	default:
		return fmt.Errorf("entry: unknown kind %v", ft.Kind)
	}
	return nil
}

// Decode reads src[:ft.Width] back into its canonical Go representation.
func (ft FieldType) Decode(src []byte) any {
	switch ft.Kind {
	case KindUnsigned:
		return getUintLE(src[:ft.Width])
	case KindSigned:
		return signExtend(getUintLE(src[:ft.Width]), ft.Width)
	case KindFloat:
		if ft.Width == 4 {
			return float64(math.Float32frombits(uint32(getUintLE(src[:4]))))
		}
		return math.Float64frombits(getUintLE(src[:8]))
	case KindString:
		out := make([]byte, ft.Width)
		copy(out, src[:ft.Width])
		return out
	default:
		return nil
	}
}

// Compare returns -1, 0, or 1 comparing the values encoded at a and b
// under ft's total order (IEEE-754 total order for floats, restricted
// to non-NaN).
func (ft FieldType) Compare(a, b []byte) int {
	switch ft.Kind {
	case KindUnsigned:
		ua, ub := getUintLE(a[:ft.Width]), getUintLE(b[:ft.Width])
		switch {
		case ua < ub:
			return -1
		case ua > ub:
			return 1
		default:
			return 0
		}
	case KindSigned:
		ia, ib := signExtend(getUintLE(a[:ft.Width]), ft.Width), signExtend(getUintLE(b[:ft.Width]), ft.Width)
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		default:
			return 0
		}
	case KindFloat:
		var fa, fb float64
		if ft.Width == 4 {
			fa = float64(math.Float32frombits(uint32(getUintLE(a[:4]))))
			fb = float64(math.Float32frombits(uint32(getUintLE(b[:4]))))
		} else {
			fa = math.Float64frombits(getUintLE(a[:8]))
			fb = math.Float64frombits(getUintLE(b[:8]))
		}
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case KindString:
		return bytes.Compare(a[:ft.Width], b[:ft.Width])
	default:
		return 0
	}
}

func putUintLE(dst []byte, v uint64) {
	for i := range dst {
		dst[i] = byte(v >> (8 * uint(i)))
	}
}

func getUintLE(src []byte) uint64 {
	var v uint64
	for i, b := range src {
		v |= uint64(b) << (8 * uint(i))
	}
	return v
}

// signExtend sign-extends a width-byte two's complement value held in
// the low bits of u into a full int64.
func signExtend(u uint64, width int) int64 {
	shift := uint(64 - 8*width)
	return int64(u<<shift) >> shift
}

// Schema describes one bstree file's (Id, Val) field layout: entry size
// E = Id.Width + Val.Width, stored as id_bytes || val_bytes.
type Schema struct {
	Val FieldType
	Id  FieldType
}

// EntrySize returns E, the fixed byte width of one entry.
func (s Schema) EntrySize() int { return s.Val.Width + s.Id.Width }

// EncodeEntry writes (id, val) into dst[:s.EntrySize()].
func (s Schema) EncodeEntry(dst []byte, id, val any) error {
	if err := s.Id.Encode(dst[:s.Id.Width], id); err != nil {
		return err
	}
	return s.Val.Encode(dst[s.Id.Width:s.EntrySize()], val)
}

// DecodeEntry reads an entry back into (id, val).
func (s Schema) DecodeEntry(src []byte) (id, val any) {
	id = s.Id.Decode(src[:s.Id.Width])
	val = s.Val.Decode(src[s.Id.Width:s.EntrySize()])
	return id, val
}

// ValBytes returns the Val sub-slice of an encoded entry.
func (s Schema) ValBytes(entry []byte) []byte { return entry[s.Id.Width:s.EntrySize()] }

// IdBytes returns the Id sub-slice of an encoded entry.
func (s Schema) IdBytes(entry []byte) []byte { return entry[:s.Id.Width] }

// Compare orders two whole entries by (Val, Id) — the file's total
// order.
func (s Schema) Compare(a, b []byte) int {
	if c := s.Val.Compare(s.ValBytes(a), s.ValBytes(b)); c != 0 {
		return c
	}
	return s.Id.Compare(s.IdBytes(a), s.IdBytes(b))
}

// CompareEntryToVal compares an encoded entry's Val field only against a
// query value encoded the same way (used by descent/range walkers that
// search purely by Val, ignoring Id).
func (s Schema) CompareEntryToVal(entry []byte, valBytes []byte) int {
	return s.Val.Compare(s.ValBytes(entry), valBytes)
}
