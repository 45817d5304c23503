// Package stats holds the search's local statistics counters and an
// optional read-only Prometheus view over them.
package stats

// Counters accumulates the per-search statistics readable at any time:
// local LP iterations, strong-branching LP iterations, heuristic LP
// iterations, nodes visited, and pruned tree weight. It is shared by
// pointer between the driver, the evaluator, and the branch selector so
// each can record its own activity directly.
type Counters struct {
	Nodes                 int
	TreeWeight            float64
	LPIterations          int
	StrongBranchLPIterations int
	HeuristicLPIterations int
}

// New returns a zeroed Counters.
func New() *Counters {
	return &Counters{}
}

// AddNode increments the visited-node count.
func (c *Counters) AddNode() {
	c.Nodes++
}

// AddPrunedWeight adds 2^(-depth) to the pruned-tree-weight accumulator,
// maintaining the conservation-of-tree-weight invariant across closed
// subtrees.
func (c *Counters) AddPrunedWeight(w float64) {
	c.TreeWeight += w
}

// AddLPIterations records iterations spent on an ordinary node resolve.
func (c *Counters) AddLPIterations(n int) {
	if n > 0 {
		c.LPIterations += n
	}
}

// AddStrongBranchLPIterations records iterations spent probing inside
// strong branching.
func (c *Counters) AddStrongBranchLPIterations(n int) {
	if n > 0 {
		c.StrongBranchLPIterations += n
	}
}

// AddHeuristicLPIterations records iterations spent resolving in heuristic
// mode.
func (c *Counters) AddHeuristicLPIterations(n int) {
	if n > 0 {
		c.HeuristicLPIterations += n
	}
}

// Snapshot returns a copy of the current counter values, safe to transfer
// into a shared sink without aliasing the live counters.
func (c *Counters) Snapshot() Counters {
	return *c
}

// Reset zeroes all counters, used by FlushStatistics after it takes the
// snapshot it returns to its caller.
func (c *Counters) Reset() {
	*c = Counters{}
}
