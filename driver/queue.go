package driver

import (
	"github.com/mipcore/treesearch/contracts"
	"github.com/mipcore/treesearch/stats"
)

// CurrentNodeToQueue suspends the current top frame to the external
// priority queue, replacing it on the stack with nothing: the frame is
// popped and a reduced SuspendedNode record is emplaced in its place.
func (d *Driver) CurrentNodeToQueue(queue contracts.NodeQueue) {
	top := d.Stack.Top()
	if top == nil {
		return
	}
	queue.EmplaceNode(contracts.SuspendedNode{
		DomChgStack:       append([]contracts.DomainChange{}, d.Dom.GetDomainChangeStack()...),
		BranchingPosition: append([]int{}, d.Dom.GetBranchingPositions()...),
		LowerBound:        top.LowerBound,
		Estimate:          top.Estimate,
		Depth:             top.Depth,
	})
	top.OpenSubtrees = 0
	d.Stack.Pop()
	d.Dom.Backtrack(top.DomchgStackPos)
}

// OpenNodesToQueue suspends the entire active stack to the external queue,
// one SuspendedNode per frame still carrying an unexplored sibling,
// emptying the stack and resetting the domain to the global root.
func (d *Driver) OpenNodesToQueue(queue contracts.NodeQueue) {
	frames := d.Stack.Frames()
	for _, f := range frames {
		if f.OpenSubtrees == 0 {
			continue
		}
		queue.EmplaceNode(contracts.SuspendedNode{
			DomChgStack:       append([]contracts.DomainChange{}, d.Dom.GetDomainChangeStack()[:f.DomchgStackPos]...),
			BranchingPosition: append([]int{}, d.Dom.GetBranchingPositions()...),
			LowerBound:        f.LowerBound,
			Estimate:          f.Estimate,
			Depth:             f.Depth,
		})
	}
	for !d.Stack.Empty() {
		d.Stack.Pop()
	}
	d.Dom.Backtrack(0)
}

// ResetLocalDomain discards the search's local domain divergence, returning
// it to the global snapshot the enclosing solver currently holds. Used
// between independent installs so stale local bounds never leak across
// unrelated subtrees.
func (d *Driver) ResetLocalDomain() {
	d.Dom.Backtrack(0)
	d.LP.FlushDomain()
	d.Dom.ClearChangedCols()
	d.LP.ResetAges()
}

// SetMinReliable lowers (or raises) the pseudocost reliability threshold,
// typically dropped toward 0 under time pressure so strong branching stops
// probing and relies on whatever pseudocost estimates already exist.
func (d *Driver) SetMinReliable(n int) {
	d.PC.MinReliable = n
}

// FlushStatistics atomically reads and resets the driver's local counters,
// returning the pre-reset snapshot for the caller to merge into whatever
// shared accounting the enclosing solver keeps.
func (d *Driver) FlushStatistics() stats.Counters {
	snap := d.Stats.Snapshot()
	d.Stats.Reset()
	return snap
}

// TreeWeight reports the fraction of the search tree closed so far:
// Σ 2^(−depth) over closed subtrees. A completed search converges this to
// 1.0 exactly, modulo floating-point accumulation error.
func (d *Driver) TreeWeight() float64 {
	return d.Stats.Snapshot().TreeWeight
}
