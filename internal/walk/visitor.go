package walk

// Visitor is the sole output path for every walker: no walker
// allocates a result container itself, so building a CSV stream, a
// running count, a capped top-k heap, or a reservoir sample all cost
// the same to the walker — just a different Visitor.
type Visitor interface {
	// Visit is called once per matching entry, in the walk's defined
	// order. Returning false stops the walk early.
	Visit(idx int64, entryBytes []byte) (cont bool)
	// CapacityHint advises the visitor of an upper bound on how many
	// entries it will see, if known (e.g. a range's upper_bound -
	// lower_bound, or knn's k). ok is false when no bound is known.
	CapacityHint(n int64, ok bool)
	// Finish is called exactly once, whether the walk completed,
	// stopped early, or the visitor itself returned false from Visit.
	Finish()
}
