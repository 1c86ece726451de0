package layout

import "fmt"

// Level describes one "main tree" slice of the recursive main+rightmost
// construction: a contiguous, value-ascending run of NMain entries,
// itself organized as whole disk groups (or, if too small for even one
// disk group, whole bare L1 blocks).
type Level struct {
	Depth      int   // recursion depth, 0 = outermost (smallest values)
	NMain      int64 // entries covered by this level
	Grouped    bool  // true: NMain is whole disk groups; false: whole bare L1 blocks
	FileOffset int64 // byte offset where this level's body begins
	GroupSize  int64 // entries per disk group at this level (== N1*(1+K) when Grouped)
	NumUnits   int64 // number of disk groups (Grouped) or bare blocks (!Grouped) in this level
}

// Plan is the complete, derived description of a bstree file's
// physical layout. internal/header persists N, N1, K, every level
// record and the tail, and replays them into a Plan on read.
type Plan struct {
	N          int64 // total entry count
	EntrySize  int64 // bytes per entry (E)
	N1         int64 // entries per L1 block
	K          int64 // child L1 blocks per disk group (disk group holds 1+K blocks)
	Levels     []Level
	Tail       int64 // size of the final partial block, 0 <= Tail < N1
	TailOffset int64
	BodySize   int64 // total bytes occupied by levels + tail
}

// Params are the inputs used to derive a Plan. FillFactor and the byte
// budgets are not persisted: they only determine N1 and K, which the
// header stores, and BuildLevels rebuilds the identical Plan from N,
// EntrySize, N1, and K alone (internal/header additionally stores the
// level records themselves).
type Params struct {
	N          int64
	EntrySize  int64
	L1Bytes    int64 // target L1 cache budget for one block
	DiskBytes  int64 // target disk-page budget for one disk group
	FillFactor float64
}

// naturalN1 returns the largest entry count whose per-entry cost fits
// l1Bytes, i.e. floor(l1Bytes / entrySize).
func naturalN1(l1Bytes, entrySize int64) int64 {
	if entrySize <= 0 {
		return 1
	}
	n := l1Bytes / entrySize
	if n < 1 {
		n = 1
	}
	return n
}

// Plan computes the complete layout for Params. See DESIGN.md for the
// reasoning behind this specific recursive main+rightmost construction.
func Plan(p Params) (*Plan, error) {
	if p.N < 0 {
		return nil, fmt.Errorf("layout: negative N")
	}
	if p.EntrySize <= 0 {
		return nil, fmt.Errorf("layout: entry size must be positive")
	}
	fill := p.FillFactor
	if fill <= 0 || fill > 1 {
		fill = 1
	}
	n1 := int64(float64(naturalN1(p.L1Bytes, p.EntrySize)) * fill)
	if n1 < 1 {
		n1 = 1
	}
	k := naturalN1(p.DiskBytes, n1*p.EntrySize) - 1
	if k < 0 {
		k = 0
	}
	return BuildLevels(p.N, p.EntrySize, n1, k)
}

// BuildLevels constructs a Plan directly from the counts that are
// actually persisted in the file header (N, EntrySize, N1, K), without
// re-deriving N1/K from byte budgets. A reader reconstructs the exact
// same Plan a builder used via this entry point alone.
func BuildLevels(n, entrySize, n1, k int64) (*Plan, error) {
	if n < 0 {
		return nil, fmt.Errorf("layout: negative N")
	}
	if entrySize <= 0 {
		return nil, fmt.Errorf("layout: entry size must be positive")
	}
	if n1 < 1 {
		return nil, fmt.Errorf("layout: N1 must be positive")
	}
	if k < 0 {
		return nil, fmt.Errorf("layout: K must be non-negative")
	}

	plan := &Plan{N: n, EntrySize: entrySize, N1: n1, K: k}

	remaining := n
	offset := int64(0)
	depth := 0
	groupSize := (1 + k) * n1
	for remaining > 0 {
		if groupSize > 0 {
			nMainGroups := (remaining / groupSize) * groupSize
			if nMainGroups > 0 {
				plan.Levels = append(plan.Levels, Level{
					Depth:      depth,
					NMain:      nMainGroups,
					Grouped:    true,
					FileOffset: offset,
					GroupSize:  groupSize,
					NumUnits:   nMainGroups / groupSize,
				})
				offset += nMainGroups * entrySize
				remaining -= nMainGroups
				depth++
				if remaining < n1 {
					break
				}
				continue
			}
		}
		nMainBlocks := (remaining / n1) * n1
		if nMainBlocks > 0 {
			plan.Levels = append(plan.Levels, Level{
				Depth:      depth,
				NMain:      nMainBlocks,
				Grouped:    false,
				FileOffset: offset,
				GroupSize:  n1,
				NumUnits:   nMainBlocks / n1,
			})
			offset += nMainBlocks * entrySize
			remaining -= nMainBlocks
			depth++
		}
		break
	}
	plan.Tail = remaining
	plan.TailOffset = offset
	plan.BodySize = offset + remaining*entrySize
	return plan, nil
}

// LevelForIndex returns the level containing global logical index idx,
// the index local to that level, and true — or a zero Level and false
// if idx falls in the tail block instead.
func (p *Plan) LevelForIndex(idx int64) (Level, int64, bool) {
	base := int64(0)
	for _, lvl := range p.Levels {
		if idx < base+lvl.NMain {
			return lvl, idx - base, true
		}
		base += lvl.NMain
	}
	return Level{}, idx - base, false
}

// GroupSubtree returns the Subtree describing the disk group (or bare
// block run, if !lvl.Grouped) containing level-local index localIdx,
// plus the index local to that group/block-run.
func (lvl Level) GroupSubtree(n1, entrySize, localIdx int64) (Subtree, int64) {
	groupIdx := localIdx / lvl.GroupSize
	localInGroup := localIdx % lvl.GroupSize
	groupBase := lvl.FileOffset + groupIdx*lvl.GroupSize*entrySize
	if !lvl.Grouped {
		// bare block: the "group" is exactly one L1 block.
		return Subtree{Base: groupBase, N: 1, UnitSize: n1 * entrySize}, localInGroup
	}
	numBlocks := lvl.GroupSize / n1
	return Subtree{Base: groupBase, N: numBlocks, UnitSize: n1 * entrySize}, localInGroup
}
