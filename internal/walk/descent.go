package walk

// LowerBound returns the logical index of the first entry with
// Val >= v, or N if every entry's Val is smaller.
func LowerBound(r reader, valBytes []byte) (int64, error) { return lowerBound(r, valBytes) }

// UpperBound returns the logical index of the first entry with
// Val > v, or N if none.
func UpperBound(r reader, valBytes []byte) (int64, error) { return upperBound(r, valBytes) }

// Find returns any entry with Val == v (the leftmost such logical
// index, by construction of LowerBound), or found=false.
func Find(r reader, valBytes []byte) (entryBytes []byte, idx int64, found bool, err error) {
	idx, err = lowerBound(r, valBytes)
	if err != nil {
		return nil, 0, false, err
	}
	if idx >= r.N() {
		return nil, 0, false, nil
	}
	e, err := entryAt(r, idx)
	if err != nil {
		return nil, 0, false, err
	}
	if r.Schema().CompareEntryToVal(e, valBytes) != 0 {
		return nil, 0, false, nil
	}
	return e, idx, true, nil
}

// Nearest returns the entry minimizing |Val - v|, ties broken toward
// Val >= v. v below A[0] returns A[0]; above A[N-1] returns A[N-1].
// Returns found=false only when the file is empty.
func Nearest(r reader, valBytes []byte) (entryBytes []byte, idx int64, found bool, err error) {
	n := r.N()
	if n == 0 {
		return nil, 0, false, nil
	}
	right, err := lowerBound(r, valBytes)
	if err != nil {
		return nil, 0, false, err
	}
	if right <= 0 {
		e, err := entryAt(r, 0)
		return e, 0, true, err
	}
	if right >= n {
		e, err := entryAt(r, n-1)
		return e, n - 1, true, err
	}
	rightEntry, err := entryAt(r, right)
	if err != nil {
		return nil, 0, false, err
	}
	leftEntry, err := entryAt(r, right-1)
	if err != nil {
		return nil, 0, false, err
	}
	s := r.Schema()
	if distanceLessOrEqual(s, s.ValBytes(rightEntry), s.ValBytes(leftEntry), valBytes) {
		return rightEntry, right, true, nil
	}
	return leftEntry, right - 1, true, nil
}
