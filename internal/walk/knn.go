package walk

// KNN enumerates the k entries with smallest |Val - v|, in increasing
// distance order; at equal distance an entry with Val >= v comes
// before one with Val < v. Equal-Val entries at or above v come out in
// ascending Id order; the left cursor walks downward, so an equal-Val
// run below v comes out in descending Id order. It
// merges two monotone cursors — one walking left from just before
// lower_bound(v), one walking right from lower_bound(v) — so it
// touches O(k / n1) L1 blocks rather than descending from the root
// for every one of the k results.
func KNN(r reader, v []byte, k int64, visitor Visitor) (int64, error) {
	if k <= 0 {
		visitor.CapacityHint(0, true)
		visitor.Finish()
		return 0, nil
	}
	n := r.N()
	right, err := lowerBound(r, v)
	if err != nil {
		return 0, err
	}
	left := right - 1

	hint := k
	if n < hint {
		hint = n
	}
	visitor.CapacityHint(hint, true)

	s := r.Schema()
	emitted := int64(0)
	var leftEntry, rightEntry []byte

	for emitted < k && (left >= 0 || right < n) {
		if rightEntry == nil && right < n {
			rightEntry, err = entryAt(r, right)
			if err != nil {
				visitor.Finish()
				return emitted, err
			}
		}
		if leftEntry == nil && left >= 0 {
			leftEntry, err = entryAt(r, left)
			if err != nil {
				visitor.Finish()
				return emitted, err
			}
		}

		takeRight := right < n
		if takeRight && left >= 0 {
			takeRight = distanceLessOrEqual(s, s.ValBytes(rightEntry), s.ValBytes(leftEntry), v)
		}

		var idx int64
		var e []byte
		if takeRight {
			idx, e = right, rightEntry
			right++
			rightEntry = nil
		} else {
			idx, e = left, leftEntry
			left--
			leftEntry = nil
		}

		emitted++
		if !visitor.Visit(idx, e) {
			break
		}
	}
	visitor.Finish()
	return emitted, nil
}
