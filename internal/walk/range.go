package walk

// Range enumerates entries with Val between from and to, inclusive,
// in ascending order if from <= to, descending if from > to. limit
// caps the number of visits; 0 means unlimited. Returns the number of
// entries actually visited.
func Range(r reader, from, to []byte, limit int64, v Visitor) (int64, error) {
	s := r.Schema()
	ascending := s.Val.Compare(from, to) <= 0
	lo, hi := from, to
	if !ascending {
		lo, hi = to, from
	}

	loIdx, err := lowerBound(r, lo)
	if err != nil {
		return 0, err
	}
	hiIdx, err := upperBound(r, hi)
	if err != nil {
		return 0, err
	}
	if loIdx >= hiIdx {
		v.CapacityHint(0, true)
		v.Finish()
		return 0, nil
	}

	total := hiIdx - loIdx
	if limit > 0 && limit < total {
		total = limit
	}
	v.CapacityHint(total, true)

	visited := int64(0)
	if ascending {
		for i := loIdx; i < hiIdx; i++ {
			if limit > 0 && visited >= limit {
				break
			}
			e, err := entryAt(r, i)
			if err != nil {
				v.Finish()
				return visited, err
			}
			visited++
			if !v.Visit(i, e) {
				break
			}
		}
	} else {
		for i := hiIdx - 1; i >= loIdx; i-- {
			if limit > 0 && visited >= limit {
				break
			}
			e, err := entryAt(r, i)
			if err != nil {
				v.Finish()
				return visited, err
			}
			visited++
			if !v.Visit(i, e) {
				break
			}
		}
	}
	v.Finish()
	return visited, nil
}

// RangeCount is the count-only fast path: two descents, no entry
// reads.
func RangeCount(r reader, from, to []byte) (int64, error) {
	s := r.Schema()
	lo, hi := from, to
	if s.Val.Compare(from, to) > 0 {
		lo, hi = to, from
	}
	loIdx, err := lowerBound(r, lo)
	if err != nil {
		return 0, err
	}
	hiIdx, err := upperBound(r, hi)
	if err != nil {
		return 0, err
	}
	if hiIdx < loIdx {
		return 0, nil
	}
	return hiIdx - loIdx, nil
}
