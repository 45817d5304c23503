package branch

import (
	"fmt"
	"math"

	"github.com/mipcore/treesearch/contracts"
	"github.com/mipcore/treesearch/pseudocost"
)

// ChildSelRule selects which side of a branching decision becomes the
// immediate child.
type ChildSelRule int

const (
	Up ChildSelRule = iota
	Down
	RootSol
	Obj
	Random
	BestCost
	WorstCost
	Disjunction
	HybridInferenceCost
)

func (r ChildSelRule) String() string {
	switch r {
	case Up:
		return "Up"
	case Down:
		return "Down"
	case RootSol:
		return "RootSol"
	case Obj:
		return "Obj"
	case Random:
		return "Random"
	case BestCost:
		return "BestCost"
	case WorstCost:
		return "WorstCost"
	case Disjunction:
		return "Disjunction"
	case HybridInferenceCost:
		return "HybridInferenceCost"
	default:
		return fmt.Sprintf("ChildSelRule(%d)", int(r))
	}
}

// Valid reports whether r is one of the closed set of known rules.
func (r ChildSelRule) Valid() bool {
	return r >= Up && r <= HybridInferenceCost
}

// ChildSelectionInput bundles the per-decision inputs a rule maps to a
// direction: (col, fracval, pseudocosts, rootSolution, avgInferences,
// randomBit, ancestralCounts) to a branching direction.
type ChildSelectionInput struct {
	Column       int
	FracVal      float64
	Cost         float64
	RootSolution []float64 // may be nil if no cached root solution
	RandomBit    bool
	Queue        contracts.NodeQueue
}

// ChooseUpward applies rule to in, returning true if the up branch should
// become the immediate child.
func ChooseUpward(rule ChildSelRule, in ChildSelectionInput, pc *pseudocost.Store, tol float64) bool {
	switch rule {
	case Up:
		return true
	case Down:
		return false
	case Obj:
		return in.Cost < 0
	case Random:
		return in.RandomBit
	case BestCost:
		up, down := sidedCosts(pc, in, tol)
		return up < down
	case WorstCost:
		up, down := sidedCosts(pc, in, tol)
		return up > down
	case Disjunction:
		if in.Queue == nil {
			return in.Cost < 0
		}
		nUp, nDown := in.Queue.NumNodesUp(in.Column), in.Queue.NumNodesDown(in.Column)
		if nUp != nDown {
			return nUp > nDown
		}
		return in.Cost < 0
	case RootSol:
		return chooseRootSol(in, pc)
	case HybridInferenceCost:
		return chooseHybridInferenceCost(in, pc, tol)
	default:
		return true
	}
}

func sidedCosts(pc *pseudocost.Store, in ChildSelectionInput, tol float64) (up, down float64) {
	return pc.GetPseudocostUp(in.Column, in.FracVal, tol), pc.GetPseudocostDown(in.Column, in.FracVal, tol)
}

func chooseRootSol(in ChildSelectionInput, pc *pseudocost.Store) bool {
	if in.RootSolution == nil || in.Column >= len(in.RootSolution) {
		return in.FracVal-math.Floor(in.FracVal) > 0.5
	}
	rootVal := in.RootSolution[in.Column]
	avgUp, avgDown := pc.AvgInferences(in.Column)
	distUp := math.Abs(rootVal-math.Ceil(in.FracVal)) * (1 + avgUp)
	distDown := math.Abs(rootVal-math.Floor(in.FracVal)) * (1 + avgDown)
	return distUp < distDown
}

func chooseHybridInferenceCost(in ChildSelectionInput, pc *pseudocost.Store, tol float64) bool {
	const eps = 1e-6
	up, down := sidedCosts(pc, in, tol)
	avgUp, avgDown := pc.AvgInferences(in.Column)
	scoreUp := (1 + avgUp) / math.Max(up, eps)
	scoreDown := (1 + avgDown) / math.Max(down, eps)
	return scoreUp > scoreDown
}
