package driver

import (
	"math"
	"testing"

	"github.com/mipcore/treesearch/branch"
	"github.com/mipcore/treesearch/contracts"
	"github.com/mipcore/treesearch/internal/fakedomain"
	"github.com/mipcore/treesearch/internal/fakelp"
	"github.com/mipcore/treesearch/internal/fakemip"
	"github.com/mipcore/treesearch/node"
	"github.com/mipcore/treesearch/pseudocost"
)

func newTestDriver(t *testing.T) (*Driver, *fakelp.Fake, *fakedomain.Fake, *fakemip.Mip) {
	t.Helper()
	lp := fakelp.New()
	dom := fakedomain.New()
	mip := fakemip.New()
	mip.NextUpperLimit = math.Inf(1)
	pool := fakemip.NewPool()
	cuts := fakemip.NewCutGen()
	sym := fakemip.NewSym()
	queue := fakemip.NewQueue()
	pc := pseudocost.New(2)

	cfg := Config{ChildSelRule: branch.Up, MaxSbIters: 2, MinReliable: 2, BasisStartThreshold: 0, Tol: 0}
	d, err := New(cfg, lp, dom, cuts, pool, mip, sym, queue, pc)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return d, lp, dom, mip
}

func TestNew_InvalidConfigReturnsError(t *testing.T) {
	lp := fakelp.New()
	dom := fakedomain.New()
	mip := fakemip.New()
	pc := pseudocost.New(2)
	cfg := Config{ChildSelRule: branch.ChildSelRule(99)}

	if _, err := New(cfg, lp, dom, fakemip.NewCutGen(), fakemip.NewPool(), mip, fakemip.NewSym(), fakemip.NewQueue(), pc); err == nil {
		t.Fatalf("New() with an invalid ChildSelRule should return an error")
	}
}

func TestInstallNode_ReplaysDomainChangesAndSetsStackPos(t *testing.T) {
	d, _, dom, _ := newTestDriver(t)
	open := contracts.OpenNode{
		LowerBound: 3,
		Estimate:   4,
		Depth:      2,
		DomChgStack: []contracts.DomainChange{
			{Column: 0, BoundType: contracts.Lower, BoundVal: 1},
			{Column: 1, BoundType: contracts.Upper, BoundVal: 5},
		},
	}

	if err := d.InstallNode(open); err != nil {
		t.Fatalf("InstallNode() error = %v", err)
	}

	top := d.Stack.Top()
	if top == nil {
		t.Fatalf("Stack.Top() = nil after InstallNode")
	}
	if top.LowerBound != 3 || top.Estimate != 4 || top.Depth != 2 {
		t.Errorf("installed root = %+v, want LowerBound=3 Estimate=4 Depth=2", top)
	}
	if top.DomchgStackPos != 2 {
		t.Errorf("top.DomchgStackPos = %d, want 2 (length of the replayed change stack)", top.DomchgStackPos)
	}
	if len(dom.GetDomainChangeStack()) != 2 {
		t.Errorf("domain change stack len = %d, want 2 (both changes replayed)", len(dom.GetDomainChangeStack()))
	}
}

func TestInstallNode_OnNonEmptyStackErrors(t *testing.T) {
	d, _, _, _ := newTestDriver(t)
	if err := d.InstallNode(contracts.OpenNode{}); err != nil {
		t.Fatalf("first InstallNode() error = %v", err)
	}
	if err := d.InstallNode(contracts.OpenNode{}); err == nil {
		t.Errorf("second InstallNode() on a non-empty stack should return an error")
	}
}

func TestFallbackColumn_SkipsColumnsWithNoRemainingRange(t *testing.T) {
	d, _, dom, mip := newTestDriver(t)
	mip.NextIntegralCols = []int{0, 1}
	dom.SetBounds(0, 2, 2) // fixed, no range
	dom.SetBounds(1, 0, 4)

	col, frac, ok := d.fallbackColumn()
	if !ok {
		t.Fatalf("fallbackColumn() ok = false, want true (column 1 has a range)")
	}
	if col != 1 {
		t.Errorf("fallbackColumn() col = %d, want 1 (column 0 is fixed)", col)
	}
	if frac != 2.5 { // floor(0.5*(0+4+0.5))+0.5 over [0,4]
		t.Errorf("fallbackColumn() frac = %v, want 2.5", frac)
	}
}

func TestFallbackColumn_NoCandidateReturnsNotOK(t *testing.T) {
	d, _, dom, mip := newTestDriver(t)
	mip.NextIntegralCols = []int{0}
	dom.SetBounds(0, 1, 1)

	if _, _, ok := d.fallbackColumn(); ok {
		t.Errorf("fallbackColumn() ok = true, want false when every integral column is fixed")
	}
}

func TestFallbackFracVal_CascadeOrder(t *testing.T) {
	cases := []struct {
		name     string
		lo, hi   float64
		want     float64
	}{
		{"both finite: floor(0.5*(lo+hi+0.5))+0.5 wins", 2, 6, 4.5},
		{"only lo finite: lo+0.5", 2, math.Inf(1), 2.5},
		{"only hi finite: hi-0.5", math.Inf(-1), 6, 5.5},
		{"neither finite: 0.5", math.Inf(-1), math.Inf(1), 0.5},
	}
	for _, c := range cases {
		if got := fallbackFracVal(c.lo, c.hi); got != c.want {
			t.Errorf("%s: fallbackFracVal(%v, %v) = %v, want %v", c.name, c.lo, c.hi, got, c.want)
		}
	}
}

// Branching when fractional candidates exist must push a child and set the
// parent's OpenSubtrees to 1 (one sibling still pending).
func TestBranch_PushesChildAndMarksParentOneSiblingPending(t *testing.T) {
	d, lp, _, _ := newTestDriver(t)
	lp.NextFractional = []contracts.FractionalVar{{Column: 0, Value: 0.5}}
	d.PC.MarkReliable(0) // skip strong-branch probing so Branch just pushes

	root := pushRoot(d, 0)
	result := d.Branch()

	if result != node.Branched {
		t.Fatalf("Branch() = %v, want Branched", result)
	}
	if root.OpenSubtrees != 1 {
		t.Errorf("root.OpenSubtrees = %d after first child push, want 1", root.OpenSubtrees)
	}
	if d.Stack.Depth() != 2 {
		t.Errorf("Stack.Depth() = %d after Branch, want 2", d.Stack.Depth())
	}
	child := d.Stack.Top()
	if child.Depth != root.Depth+1 {
		t.Errorf("child.Depth = %d, want %d", child.Depth, root.Depth+1)
	}
	if !child.HasBranching || child.BranchingDecision.Column != 0 {
		t.Errorf("child.BranchingDecision = %+v, want a decision on column 0", child.BranchingDecision)
	}
}

// When no fractional candidates and no fallback column exist, Branch must
// fall through to rebuildFallbackChain, which reports Open if some simplex
// strategy recovers optimality.
func TestBranch_NoFracsNoFallbackColumn_RebuildRecoversOptimality(t *testing.T) {
	d, lp, _, mip := newTestDriver(t)
	lp.NextFractional = nil
	mip.NextIntegralCols = nil
	lp.NextScaledOptimal = true // every rebuild attempt reports optimal

	pushRoot(d, 0)
	result := d.Branch()

	if result != node.Open {
		t.Fatalf("Branch() = %v, want Open (rebuild recovered optimality)", result)
	}
}

// When every rebuild strategy fails, Branch must close the node as
// LpInfeasible and record the pruned weight.
func TestBranch_NoFracsNoFallbackColumn_RebuildExhaustedClosesInfeasible(t *testing.T) {
	d, lp, _, mip := newTestDriver(t)
	lp.NextFractional = nil
	mip.NextIntegralCols = nil
	lp.NextScaledOptimal = false

	root := pushRoot(d, 0)
	result := d.Branch()

	if result != node.LpInfeasible {
		t.Fatalf("Branch() = %v, want LpInfeasible", result)
	}
	if root.OpenSubtrees != 0 {
		t.Errorf("root.OpenSubtrees = %d after exhausted rebuild, want 0", root.OpenSubtrees)
	}
	if len(mip.NodePrunedDepths) != 1 {
		t.Errorf("len(mip.NodePrunedDepths) = %d, want 1", len(mip.NodePrunedDepths))
	}
}

func pushRoot(d *Driver, lowerBound float64) *node.Frame {
	root := node.NewRoot(lowerBound)
	d.Stack.Push(root)
	return root
}
