package evaluator

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mipcore/treesearch/contracts"
	"github.com/mipcore/treesearch/internal/fakedomain"
	"github.com/mipcore/treesearch/internal/fakelp"
	"github.com/mipcore/treesearch/internal/fakemip"
	"github.com/mipcore/treesearch/node"
	"github.com/mipcore/treesearch/pseudocost"
	"github.com/mipcore/treesearch/stats"
)

func newTestEvaluator() (*Evaluator, *fakelp.Fake, *fakedomain.Fake, *fakemip.Mip, *fakemip.Pool) {
	lp := fakelp.New()
	dom := fakedomain.New()
	mip := fakemip.New()
	mip.NextUpperLimit = math.Inf(1)
	pool := fakemip.NewPool()
	cuts := fakemip.NewCutGen()
	sym := fakemip.NewSym()
	pc := pseudocost.New(2)
	ev := &Evaluator{
		LP: lp, Dom: dom, Cuts: cuts, Pool: pool, Mip: mip, Sym: sym, PC: pc,
		Stats: stats.New(),
	}
	return ev, lp, dom, mip, pool
}

// S1 (integer-feasible root): the LP relaxation is already integral and
// primal-feasible, so EvaluateNode must record exactly one incumbent and
// close the node as BoundExceeding without ever looking for a branching
// candidate.
func TestEvaluateNode_IntegerFeasibleRootRecordsIncumbentAndCloses(t *testing.T) {
	ev, lp, _, mip, _ := newTestEvaluator()
	lp.NextScaledOptimal = true
	lp.NextUnscaledPrimalFeasible = true
	lp.NextObjective = -2
	lp.NextSolution = []float64{1, 1}
	lp.NextFractional = nil

	stack := node.NewStack()
	root := node.NewRoot(math.Inf(-1))
	stack.Push(root)

	result := ev.EvaluateNode(stack)

	if result != node.BoundExceeding {
		t.Fatalf("EvaluateNode() = %v, want BoundExceeding", result)
	}
	if len(mip.Incumbents) != 1 {
		t.Fatalf("len(mip.Incumbents) = %d, want exactly 1", len(mip.Incumbents))
	}
	if got := mip.Incumbents[0].Objective; got != -2 {
		t.Errorf("incumbent objective = %v, want -2", got)
	}
	if root.OpenSubtrees != 0 {
		t.Errorf("root.OpenSubtrees = %d after closing, want 0", root.OpenSubtrees)
	}
}

// S3 (propagation infeasibility): a domain that reports infeasible on entry
// must close as DomainInfeasible and append exactly one conflict.
func TestEvaluateNode_DomainInfeasibleRecordsConflictAndCloses(t *testing.T) {
	ev, _, dom, mip, pool := newTestEvaluator()
	dom.NextInfeasible = true
	dom.NextConflict = contracts.Conflict{Inds: []int{0}, Vals: []float64{1}, Rhs: 0}

	stack := node.NewStack()
	root := node.NewRoot(math.Inf(-1))
	root.Depth = 2
	stack.Push(root)

	result := ev.EvaluateNode(stack)

	if result != node.DomainInfeasible {
		t.Fatalf("EvaluateNode() = %v, want DomainInfeasible", result)
	}
	wantConflict := []contracts.Conflict{{Inds: []int{0}, Vals: []float64{1}, Rhs: 0}}
	if diff := cmp.Diff(wantConflict, pool.Added); diff != "" {
		t.Fatalf("pool.Added mismatch (-want +got):\n%s", diff)
	}
	if len(mip.NodePrunedDepths) != 1 || mip.NodePrunedDepths[0] != 2 {
		t.Errorf("mip.NodePrunedDepths = %v, want [2]", mip.NodePrunedDepths)
	}
}

// A dual-feasible LP whose objective still sits under the cutoff, with a
// fractional integer left and no reduced-cost fixings available, must
// remain Open for the driver to branch on.
func TestEvaluateNode_DualFeasibleUnderCutoffStaysOpen(t *testing.T) {
	ev, lp, _, mip, _ := newTestEvaluator()
	mip.NextUpperLimit = 100
	lp.NextScaledOptimal = true
	lp.NextUnscaledDualFeasible = true
	lp.NextUnscaledPrimalFeasible = false
	lp.NextObjective = 5
	lp.NextFractional = []contracts.FractionalVar{{Column: 0, Value: 0.5}}
	lp.NextDualProof = contracts.Proof{} // no reduced-cost fixings available

	stack := node.NewStack()
	stack.Push(node.NewRoot(math.Inf(-1)))

	result := ev.EvaluateNode(stack)

	if result != node.Open {
		t.Fatalf("EvaluateNode() = %v, want Open", result)
	}
}

// When the tightened lower bound exceeds the current cutoff, the node must
// close as BoundExceeding even though the LP itself was dual-feasible.
func TestEvaluateNode_DualFeasibleOverCutoffCloses(t *testing.T) {
	ev, lp, _, mip, _ := newTestEvaluator()
	mip.NextUpperLimit = 1
	lp.NextScaledOptimal = true
	lp.NextUnscaledDualFeasible = true
	lp.NextObjective = 5

	stack := node.NewStack()
	stack.Push(node.NewRoot(math.Inf(-1)))

	result := ev.EvaluateNode(stack)

	if result != node.BoundExceeding {
		t.Fatalf("EvaluateNode() = %v, want BoundExceeding", result)
	}
}

// Reduced-cost fixing producing new domain changes must loop EvaluateNode
// back through propagation rather than returning immediately.
func TestEvaluateNode_ReducedCostFixingLoopsBackThroughPropagate(t *testing.T) {
	ev, lp, dom, mip, _ := newTestEvaluator()
	mip.NextUpperLimit = 100
	lp.NextScaledOptimal = true
	lp.NextUnscaledDualFeasible = true
	lp.NextObjective = 5
	lp.NextDualProof = contracts.Proof{Inds: []int{0}, Vals: []float64{3}}

	stack := node.NewStack()
	stack.Push(node.NewRoot(math.Inf(-1)))

	ev.EvaluateNode(stack)

	if dom.PropagateCalls < 2 {
		t.Errorf("Dom.PropagateCalls = %d, want >= 2 (one for the initial pass, one after reduced-cost fixing)", dom.PropagateCalls)
	}
}
