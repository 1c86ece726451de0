package layout

// Locate returns the byte offset of the entry at global logical index
// idx (0 <= idx < p.N). It composes the three addressing tiers
// documented in DESIGN.md: level (plain sequential), block-within-group
// (preorder Subtree over n1*EntrySize units), entry-within-block
// (preorder Subtree over EntrySize units).
func (p *Plan) Locate(idx int64) int64 {
	lvl, local, ok := p.LevelForIndex(idx)
	if !ok {
		tail := Subtree{Base: p.TailOffset, N: p.Tail, UnitSize: p.EntrySize}
		return tail.OffsetOfInOrder(local)
	}
	blockTree, localInGroup := lvl.GroupSubtree(p.N1, p.EntrySize, local)
	chunkIdx := localInGroup / p.N1
	localInBlock := localInGroup % p.N1
	blockOffset := blockTree.OffsetOfInOrder(chunkIdx)
	entryTree := Subtree{Base: blockOffset, N: p.N1, UnitSize: p.EntrySize}
	return entryTree.OffsetOfInOrder(localInBlock)
}

// Rank is the inverse of Locate: given a byte offset known to be the
// start of some entry, returns its global logical index.
func (p *Plan) Rank(offset int64) int64 {
	base := int64(0)
	for _, lvl := range p.Levels {
		end := lvl.FileOffset + lvl.NMain*p.EntrySize
		if offset >= lvl.FileOffset && offset < end {
			return base + p.rankWithinLevel(lvl, offset)
		}
		base += lvl.NMain
	}
	tail := Subtree{Base: p.TailOffset, N: p.Tail, UnitSize: p.EntrySize}
	return base + tail.InOrderOfOffset(offset)
}

func (p *Plan) rankWithinLevel(lvl Level, offset int64) int64 {
	relGroupBytes := (offset - lvl.FileOffset) / (lvl.GroupSize * p.EntrySize)
	groupBase := lvl.FileOffset + relGroupBytes*lvl.GroupSize*p.EntrySize
	numBlocks := lvl.GroupSize / p.N1
	blockTree := Subtree{Base: groupBase, N: numBlocks, UnitSize: p.N1 * p.EntrySize}
	// find which block contains offset by descending the block subtree.
	chunkIdx, blockBase := blockTree.locateContaining(offset)
	entryTree := Subtree{Base: blockBase, N: p.N1, UnitSize: p.EntrySize}
	localInBlock := entryTree.InOrderOfOffset(offset)
	return relGroupBytes*lvl.GroupSize + chunkIdx*p.N1 + localInBlock
}

// locateContaining walks s to find the unit whose byte range contains
// offset, returning its in-order index and its base offset.
func (s Subtree) locateContaining(offset int64) (int64, int64) {
	rank := int64(0)
	for {
		if offset >= s.Base && offset < s.Base+s.UnitSize {
			return rank + Split(s.N), s.Base
		}
		root := Split(s.N)
		leftBase := s.Base + s.UnitSize
		leftEnd := leftBase + root*s.UnitSize
		if offset < leftEnd {
			s = Subtree{Base: leftBase, N: root, UnitSize: s.UnitSize}
			continue
		}
		rank += root + 1
		s = Subtree{Base: leftEnd, N: s.N - root - 1, UnitSize: s.UnitSize}
	}
}
