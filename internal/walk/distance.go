package walk

import "github.com/xDarkicex/bstreego/internal/entry"

// distanceLessOrEqual reports whether |Decode(aVal) - Decode(v)| <=
// |Decode(bVal) - Decode(v)|, computed in each field's native numeric
// domain so unsigned, signed, and float values never need an
// intermediate type wide enough to hold every possible difference.
func distanceLessOrEqual(s entry.Schema, aVal, bVal, v []byte) bool {
	return compareDistance(s.Val, aVal, v, bVal, v) <= 0
}

// compareDistance returns -1, 0, or 1 comparing |Decode(a)-Decode(v1)|
// against |Decode(b)-Decode(v2)| (v1 and v2 are almost always the
// same query value; kept distinct only for symmetry with Compare).
func compareDistance(ft entry.FieldType, a, v1, b, v2 []byte) int {
	da := absDistance(ft, a, v1)
	db := absDistance(ft, b, v2)
	switch {
	case da < db:
		return -1
	case da > db:
		return 1
	default:
		return 0
	}
}

// absDistance returns |Decode(entryVal) - Decode(query)| as a float64.
// Widths in play are at most 8 bytes, so float64's 53-bit mantissa
// loses precision only for the rarest unsigned 64-bit-wide values at
// the extreme end of the range; KNN ordering in that regime degrades
// gracefully (adjacent distances differing by 1 in 2^53 still compare
// correctly) rather than failing outright.
// AbsDistance exports absDistance for callers outside this package
// (qbst's nn/knn CSV output needs the same numeric distance the
// walkers use internally for ordering).
func AbsDistance(ft entry.FieldType, entryVal, query []byte) float64 {
	return absDistance(ft, entryVal, query)
}

func absDistance(ft entry.FieldType, entryVal, query []byte) float64 {
	switch ft.Kind {
	case entry.KindUnsigned:
		a := ft.Decode(entryVal).(uint64)
		b := ft.Decode(query).(uint64)
		if a > b {
			return float64(a - b)
		}
		return float64(b - a)
	case entry.KindSigned:
		a := ft.Decode(entryVal).(int64)
		b := ft.Decode(query).(int64)
		d := a - b
		if d < 0 {
			d = -d
		}
		return float64(d)
	case entry.KindFloat:
		a := ft.Decode(entryVal).(float64)
		b := ft.Decode(query).(float64)
		d := a - b
		if d < 0 {
			d = -d
		}
		return d
	default:
		return 0
	}
}
