package driver

import (
	"math"
	"math/rand"

	log "github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/mipcore/treesearch/branch"
	"github.com/mipcore/treesearch/contracts"
	"github.com/mipcore/treesearch/evaluator"
	"github.com/mipcore/treesearch/node"
	"github.com/mipcore/treesearch/pseudocost"
	"github.com/mipcore/treesearch/stats"
)

// Driver orchestrates dive, branch, backtrack, plunge, and suspend-to-queue
// over a single search stack. It owns the stack and the domain engine; it
// borrows the LP relaxation, cut generator, conflict pool, node queue,
// symmetry engine, and the shared MIP data object.
type Driver struct {
	Stack *node.Stack

	LP    contracts.LPRelaxation
	Dom   contracts.Domain
	Cuts  contracts.CutGenerator
	Pool  contracts.ConflictPool
	Mip   contracts.MipData
	Sym   contracts.SymmetryEngine
	Queue contracts.NodeQueue

	PC    *pseudocost.Store
	Stats *stats.Counters

	Eval *evaluator.Evaluator
	Sel  *branch.Selector

	Config Config

	rng *rand.Rand
}

// New constructs a Driver over an empty stack, validating cfg up front.
func New(cfg Config, lp contracts.LPRelaxation, dom contracts.Domain, cuts contracts.CutGenerator,
	pool contracts.ConflictPool, mip contracts.MipData, sym contracts.SymmetryEngine,
	queue contracts.NodeQueue, pc *pseudocost.Store) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "driver: invalid config")
	}
	counters := stats.New()
	d := &Driver{
		Stack: node.NewStack(),
		LP:    lp,
		Dom:   dom,
		Cuts:  cuts,
		Pool:  pool,
		Mip:   mip,
		Sym:   sym,
		Queue: queue,
		PC:    pc,
		Stats: counters,
		Eval: &evaluator.Evaluator{
			LP: lp, Dom: dom, Cuts: cuts, Pool: pool, Mip: mip, Sym: sym, PC: pc, Stats: counters,
		},
		Sel: &branch.Selector{
			PC: pc, LP: lp, Dom: dom, Cuts: cuts, Pool: pool, Mip: mip, Sym: sym, Queue: queue,
			Stats: counters, MaxSbIters: cfg.MaxSbIters, BasisStartThreshold: cfg.BasisStartThreshold,
			Tol: cfg.Tol,
		},
		Config: cfg,
		rng:    rand.New(rand.NewSource(1)),
	}
	return d, nil
}

// InstallNode resumes an OpenNode that the caller took from the external
// queue: replays its domain-change stack against the domain engine, pushes a fresh
// frame, and recomputes whether the global symmetry orbits remain valid
// along the replayed path.
func (d *Driver) InstallNode(open contracts.OpenNode) error {
	if !d.Stack.Empty() {
		return errors.New("driver: InstallNode called on a non-empty stack")
	}
	root := node.NewRoot(open.LowerBound)
	root.Estimate = open.Estimate
	root.Depth = open.Depth
	for _, change := range open.DomChgStack {
		d.Dom.ChangeBound(change)
	}
	root.DomchgStackPos = len(open.DomChgStack)
	if d.Mip.SymmetriesActive() && orbitValidAlongPath(d.Dom, open.DomChgStack, open.BranchingPosition) {
		root.StabilizerOrbits = d.Mip.GlobalOrbits()
	}
	d.Stack.Push(root)
	return nil
}

// orbitValidAlongPath reports whether every branching position along
// domChgStack either leaves a binary column's upper at 1 (a down branch) or
// is itself a fixing to 1 on a symmetry-active binary column.
func orbitValidAlongPath(dom contracts.Domain, domChgStack []contracts.DomainChange, branchingPositions []int) bool {
	for _, pos := range branchingPositions {
		if pos < 0 || pos >= len(domChgStack) {
			continue
		}
		change := domChgStack[pos]
		if !orbitPreserving(dom, change) {
			return false
		}
	}
	return true
}

// orbitPreserving reports whether a single branching decision preserves
// orbit validity for the resulting child: the branched column lies outside
// any orbit, the branch is a down branch on a binary, or the branched
// column is a fixing to 1 on a binary.
func orbitPreserving(dom contracts.Domain, change contracts.DomainChange) bool {
	if !dom.IsGlobalBinary(change.Column) {
		return true
	}
	if change.BoundType == contracts.Upper && change.BoundVal >= 1 {
		return true
	}
	if change.BoundType == contracts.Lower && change.BoundVal >= 1 {
		return true
	}
	return false
}

// Dive repeatedly evaluates the top frame and branches on it, terminating
// when a frame closes or the global limits fire. Branch reports Open both
// when it pushed nothing because the selector already reduced the frame to
// a single-sided split (the tightened bound still needs propagation and an
// LP resolve) and when a rebuild fallback recovered optimality for another
// pass at evaluation; either way Dive loops back into EvaluateNode rather
// than surfacing Open to the caller.
func (d *Driver) Dive() node.Result {
	for {
		if d.Mip.CheckLimits().Hit() {
			return node.Open
		}
		result := d.Eval.EvaluateNode(d.Stack)
		if result != node.Open {
			return result
		}
		branched := d.Branch()
		if branched.Closed() {
			return branched
		}
	}
}

// Branch selects a branching candidate on the current top frame and pushes
// a child for it. When the selector has already reduced the node to a
// single-sided split, Branch reports Open so the caller re-evaluates.
func (d *Driver) Branch() node.Result {
	top := d.Stack.Top()
	fracs := d.LP.GetFractionalIntegers()

	if len(fracs) > 0 {
		result := d.Sel.SelectBranchingCandidate(d.Stack, fracs)
		if result.Reduced {
			return node.Open
		}
		if frac, ok := fracValueFor(fracs, result.Column); ok {
			return d.pushChild(top, result.Column, frac)
		}
	}

	if col, frac, ok := d.fallbackColumn(); ok {
		return d.pushChild(top, col, frac)
	}

	return d.rebuildFallbackChain(top)
}

func fracValueFor(fracs []contracts.FractionalVar, col int) (float64, bool) {
	for _, f := range fracs {
		if f.Column == col {
			return f.Value, true
		}
	}
	return 0, false
}

// fallbackColumn scans the MIP's integral columns for one whose local
// range is not a single point, used when the LP is degenerate enough that
// no fractional candidate survives selection.
func (d *Driver) fallbackColumn() (col int, frac float64, ok bool) {
	for _, c := range d.Mip.IntegralCols() {
		lo, hi := d.Dom.Bounds(c)
		if hi-lo <= 0 {
			continue
		}
		return c, fallbackFracVal(lo, hi), true
	}
	return 0, 0, false
}

// fallbackFracVal computes the fractional split point for a fallback
// branching column. This replicates an unguarded cascade of overwriting
// assignments rather than an if/else chain: the last matching condition
// wins, giving the order (bounded-both) > lo+0.5 > hi-0.5 > 0.5. The
// bounded-both case is not a plain midpoint: it floors toward the lower
// side first so the split point always lands exactly half an integer away
// from some reachable value.
func fallbackFracVal(lo, hi float64) float64 {
	fracval := 0.5
	if !math.IsInf(hi, 1) {
		fracval = hi - 0.5
	}
	if !math.IsInf(lo, -1) {
		fracval = lo + 0.5
	}
	if !math.IsInf(lo, -1) && !math.IsInf(hi, 1) {
		fracval = math.Floor(0.5*(lo+hi+0.5)) + 0.5
	}
	return fracval
}

// pushChild applies rule-chosen direction of (col, frac) as a branching
// decision on top, pushes the resulting child frame, and returns Branched.
func (d *Driver) pushChild(top *node.Frame, col int, frac float64) node.Result {
	rule := d.Config.ChildSelRule
	in := branch.ChildSelectionInput{
		Column:       col,
		FracVal:      frac,
		Cost:         d.Mip.ColCost(col),
		RootSolution: d.Mip.RootLPSolution(),
		RandomBit:    d.rng.Intn(2) == 1,
		Queue:        d.Queue,
	}
	upward := branch.ChooseUpward(rule, in, d.PC, d.Config.Tol)

	var change contracts.DomainChange
	if upward {
		change = contracts.DomainChange{Column: col, BoundType: contracts.Lower, BoundVal: math.Ceil(frac)}
	} else {
		change = contracts.DomainChange{Column: col, BoundType: contracts.Upper, BoundVal: math.Floor(frac)}
	}

	top.BranchingDecision = change
	top.HasBranching = true
	top.BranchingPoint = frac
	top.OpenSubtrees = 1

	d.Dom.ChangeBound(change)
	stackPos := len(d.Dom.GetDomainChangeStack())

	var orbits contracts.OrbitSet
	if d.Mip.SymmetriesActive() && top.StabilizerOrbits != nil {
		orbits = d.Sym.ComputeStabilizer(top.StabilizerOrbits, change)
	}

	child := node.NewChild(top, change, frac, stackPos)
	child.StabilizerOrbits = orbits
	d.Stack.Push(child)
	d.Stats.AddNode()
	return node.Branched
}

// rebuildFallbackChain is the last-resort path when no branching column
// could be found at all: rebuild the LP from scratch under each simplex
// strategy in turn (dual, primal, interior-point); if every attempt fails,
// declare the node infeasible with a visible warning.
func (d *Driver) rebuildFallbackChain(top *node.Frame) node.Result {
	strategies := []contracts.SimplexStrategy{
		contracts.StrategyDual, contracts.StrategyPrimal, contracts.StrategyInteriorPoint,
	}
	var lastErr error
	for _, strat := range strategies {
		d.LP.SetSimplexStrategy(strat)
		if err := d.LP.Run(d.Dom); err != nil {
			lastErr = errors.Wrapf(err, "driver: rebuild fallback failed under strategy %v", strat)
			continue
		}
		if d.LP.ScaledOptimal() {
			return node.Open
		}
		lastErr = errors.Errorf("driver: rebuild fallback under strategy %v did not reach optimality", strat)
	}
	log.Warningf("driver: exhausted rebuild fallback chain, closing node as infeasible: %v", lastErr)
	top.OpenSubtrees = 0
	d.Stats.AddPrunedWeight(math.Pow(2, -float64(top.Depth)))
	d.Mip.DebugNodePruned(top.Depth)
	return node.LpInfeasible
}
