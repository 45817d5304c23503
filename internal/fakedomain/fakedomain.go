// Package fakedomain provides a hand-rolled Domain stand-in for tests,
// backing the change stack and bound table with plain slices/maps instead
// of a real propagation engine.
package fakedomain

import (
	"github.com/mipcore/treesearch/contracts"
)

// Fake is a scriptable contracts.Domain. It tracks a real change stack and
// a real per-column bound table so ChangeBound/Backtrack/Bounds behave
// consistently across a test; propagation and infeasibility are controlled
// explicitly by the test via NextPropagateErr/NextInfeasible.
type Fake struct {
	changeStack   []contracts.DomainChange
	undoStack     []undoEntry
	branchPos     []int
	lower, upper  map[int]float64
	binary        map[int]bool

	NextPropagateErr error
	NextInfeasible   bool
	NextConflict     contracts.Conflict

	PropagateCalls int
}

// undoEntry remembers the bound a ChangeBound call overwrote, so Backtrack
// can restore it instead of merely truncating the change log.
type undoEntry struct {
	column    int
	boundType contracts.BoundType
	prevVal   float64
	prevSet   bool
}

func New() *Fake {
	return &Fake{
		lower:  make(map[int]float64),
		upper:  make(map[int]float64),
		binary: make(map[int]bool),
	}
}

// SetBounds seeds col's initial bound range, used by tests before driving
// any ChangeBound calls.
func (f *Fake) SetBounds(col int, lo, hi float64) {
	f.lower[col] = lo
	f.upper[col] = hi
}

// MarkBinary flags col as a symmetry-relevant 0/1 column.
func (f *Fake) MarkBinary(col int) {
	f.binary[col] = true
}

func (f *Fake) Propagate() error {
	f.PropagateCalls++
	return f.NextPropagateErr
}

func (f *Fake) ChangeBound(change contracts.DomainChange) {
	f.changeStack = append(f.changeStack, change)
	if change.BoundType == contracts.Lower {
		prev, ok := f.lower[change.Column]
		f.undoStack = append(f.undoStack, undoEntry{change.Column, contracts.Lower, prev, ok})
		f.lower[change.Column] = change.BoundVal
	} else {
		prev, ok := f.upper[change.Column]
		f.undoStack = append(f.undoStack, undoEntry{change.Column, contracts.Upper, prev, ok})
		f.upper[change.Column] = change.BoundVal
	}
}

func (f *Fake) Backtrack(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos >= len(f.changeStack) {
		return
	}
	for i := len(f.changeStack) - 1; i >= pos; i-- {
		u := f.undoStack[i]
		switch u.boundType {
		case contracts.Lower:
			if u.prevSet {
				f.lower[u.column] = u.prevVal
			} else {
				delete(f.lower, u.column)
			}
		default:
			if u.prevSet {
				f.upper[u.column] = u.prevVal
			} else {
				delete(f.upper, u.column)
			}
		}
	}
	f.changeStack = f.changeStack[:pos]
	f.undoStack = f.undoStack[:pos]
	f.branchPos = truncatePositions(f.branchPos, pos)
}

func truncatePositions(positions []int, pos int) []int {
	var kept []int
	for _, p := range positions {
		if p < pos {
			kept = append(kept, p)
		}
	}
	return kept
}

func (f *Fake) Infeasible() bool { return f.NextInfeasible }

func (f *Fake) GetDomainChangeStack() []contracts.DomainChange { return f.changeStack }
func (f *Fake) GetReducedDomainChangeStack() []contracts.DomainChange { return f.changeStack }
func (f *Fake) GetBranchingPositions() []int { return f.branchPos }
func (f *Fake) ClearChangedCols()            {}

func (f *Fake) ConflictAnalysis(pool contracts.ConflictPool) contracts.Conflict {
	pool.Add(f.NextConflict)
	return f.NextConflict
}

func (f *Fake) IsGlobalBinary(col int) bool { return f.binary[col] }

func (f *Fake) Bounds(col int) (lo, hi float64) {
	return f.lower[col], f.upper[col]
}
