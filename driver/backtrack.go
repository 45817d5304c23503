package driver

import (
	"math"

	"github.com/mipcore/treesearch/contracts"
	"github.com/mipcore/treesearch/node"
)

// Backtrack pops closed frames off the stack. When it reaches a frame with
// one unexplored sibling, it flips the branching decision, re-propagates,
// and either prunes immediately (infeasible or bound-exceeding) or pushes a
// fresh child frame for the flipped side. recoverBasis, if true, restores
// each popped frame's stored basis before moving past it.
func (d *Driver) Backtrack(recoverBasis bool) node.Result {
	for {
		top := d.Stack.Top()
		if top == nil {
			return node.Open
		}

		if top.OpenSubtrees == 0 {
			d.popClosed(top, recoverBasis)
			if d.Stack.Empty() {
				return node.Open
			}
			continue
		}

		return d.flipSibling(top)
	}
}

// popClosed pops a frame that has no unexplored children left, reverting
// the domain to the position immediately before this frame's own branching
// change (DomchgStackPos marks the position right after that single change
// was pushed, before any propagation it triggered).
//
// The parent's own OpenSubtrees is left untouched here: it was set to 1 by
// pushChild when this was the first child explored (so the next Backtrack
// call flips to the pending sibling), or already set to 0 by flipSibling
// when this was the flipped sibling itself (so the next call pops the
// parent in turn).
func (d *Driver) popClosed(top *node.Frame, recoverBasis bool) {
	d.Stack.Pop()
	if recoverBasis && top.NodeBasis != nil {
		d.LP.RecoverBasis(top.NodeBasis)
	}
	if top.HasBranching {
		d.Dom.Backtrack(top.DomchgStackPos - 1)
	} else {
		d.Dom.Backtrack(top.DomchgStackPos)
	}
}

// flipSibling converts top's pending sibling into the live child: applies
// the opposite DomainChange, propagates, and either prunes or descends.
func (d *Driver) flipSibling(top *node.Frame) node.Result {
	flipped := top.BranchingDecision.Opposite()
	d.Dom.Backtrack(top.DomchgStackPos - 1)
	d.Dom.ChangeBound(flipped)
	stackPos := len(d.Dom.GetDomainChangeStack())
	top.BranchingDecision = flipped
	top.OpenSubtrees = 0

	if err := d.Dom.Propagate(); err != nil || d.Dom.Infeasible() {
		d.Stats.AddPrunedWeight(math.Pow(2, -float64(top.Depth+1)))
		d.Mip.DebugNodePruned(top.Depth + 1)
		return d.Backtrack(false)
	}

	var orbits contracts.OrbitSet
	if d.Mip.SymmetriesActive() && top.StabilizerOrbits != nil {
		orbits = d.Sym.ComputeStabilizer(top.StabilizerOrbits, flipped)
	}
	child := node.NewChild(top, flipped, top.BranchingPoint, stackPos)
	child.StabilizerOrbits = orbits
	d.Stack.Push(child)
	d.Stats.AddNode()
	return node.Branched
}

// BacktrackPlunge behaves like Backtrack, but before descending into a
// flipped sibling it asks whether an ancestor's unexplored sibling would
// score higher; if so, the flipped sibling is suspended to queue instead of
// being explored immediately, and popping continues.
func (d *Driver) BacktrackPlunge(queue contracts.NodeQueue) node.Result {
	for {
		top := d.Stack.Top()
		if top == nil {
			return node.Open
		}
		if top.OpenSubtrees == 0 {
			d.popClosed(top, false)
			if d.Stack.Empty() {
				return node.Open
			}
			continue
		}

		if d.ancestorSiblingScoresHigher(top) {
			d.suspendFlippedSibling(top, queue)
			d.popClosed(top, false)
			if d.Stack.Empty() {
				return node.Open
			}
			continue
		}
		return d.flipSibling(top)
	}
}

// ancestorSiblingScoresHigher reports whether some ancestor of top still
// holds an unexplored sibling with a better (lower) estimate than top's own
// flipped-sibling estimate, in which case plunging favors continuing toward
// that ancestor instead of exploring top's sibling now.
func (d *Driver) ancestorSiblingScoresHigher(top *node.Frame) bool {
	frames := d.Stack.Frames()
	for i := len(frames) - 2; i >= 0; i-- {
		anc := frames[i]
		if anc.OpenSubtrees == 1 && anc.Estimate < top.Estimate {
			return true
		}
	}
	return false
}

// suspendFlippedSibling emplaces top's unexplored sibling directly onto the
// external queue without ever building a frame for it.
func (d *Driver) suspendFlippedSibling(top *node.Frame, queue contracts.NodeQueue) {
	flipped := top.BranchingDecision.Opposite()
	domStack := append(append([]contracts.DomainChange{}, d.Dom.GetDomainChangeStack()[:top.DomchgStackPos-1]...), flipped)
	queue.EmplaceNode(contracts.SuspendedNode{
		DomChgStack:       domStack,
		BranchingPosition: d.Dom.GetBranchingPositions(),
		LowerBound:        top.LowerBound,
		Estimate:          top.Estimate,
		Depth:             top.Depth,
	})
}

// BacktrackUntilDepth forcibly closes frames until the top sits at or above
// depth d, then performs the usual sibling flip.
func (d *Driver) BacktrackUntilDepth(depth int) node.Result {
	popped := d.Stack.TruncateToDepth(depth)
	for _, f := range popped {
		f.OpenSubtrees = 0
	}
	if len(popped) > 0 {
		last := popped[len(popped)-1]
		if last.HasBranching {
			d.Dom.Backtrack(last.DomchgStackPos - 1)
		} else {
			d.Dom.Backtrack(last.DomchgStackPos)
		}
	}
	if d.Stack.Empty() {
		return node.Open
	}
	top := d.Stack.Top()
	if top.OpenSubtrees == 0 {
		return d.Backtrack(false)
	}
	return d.flipSibling(top)
}
