package model

// Move is a single planned relocation of one file.
type Move struct {
	OldPath Path
	NewPath Path
}

// RelocationPlan is the full output of the reorganization planner: an ordered
// list of moves plus the set of files considered unused. Plans are computed
// fresh each run and never persisted.
type RelocationPlan struct {
	Moves  []Move
	Unused []Path
}

// NewPathOf returns the planned destination for a file, if it moves.
func (p RelocationPlan) NewPathOf(old Path) (Path, bool) {
	for _, mv := range p.Moves {
		if mv.OldPath == old {
			return mv.NewPath, true
		}
	}

	return "", false
}

// IsUnused reports whether the plan marks the file for pruning.
func (p RelocationPlan) IsUnused(path Path) bool {
	for _, u := range p.Unused {
		if u == path {
			return true
		}
	}

	return false
}

// ChangedMoves returns only the moves whose destination differs from the
// current location. preserveLocation files plan to their own path and are
// filtered out here.
func (p RelocationPlan) ChangedMoves() []Move {
	var moves []Move

	for _, mv := range p.Moves {
		if mv.OldPath != mv.NewPath {
			moves = append(moves, mv)
		}
	}

	return moves
}
