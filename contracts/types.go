// Package contracts defines the small capability interfaces the search core
// consumes from its enclosing solver: the LP relaxation, the domain and
// propagation engine, the cut generator, the conflict pool, the node queue,
// the symmetry engine, and the shared MIP data object. The search core never
// depends on a concrete implementation of any of these — only on the
// operations enumerated here.
package contracts

import "fmt"

// VarType tags the kind of a column in the MIP.
type VarType int

const (
	Continuous VarType = iota
	Integer
	SemiContinuous
	SemiInteger
)

func (t VarType) String() string {
	switch t {
	case Continuous:
		return "continuous"
	case Integer:
		return "integer"
	case SemiContinuous:
		return "semi-continuous"
	case SemiInteger:
		return "semi-integer"
	default:
		return fmt.Sprintf("VarType(%d)", int(t))
	}
}

// Variable is a single column of the MIP: its type, global and local bounds,
// and objective coefficient.
type Variable struct {
	Type        VarType
	GlobalLower float64
	GlobalUpper float64
	LocalLower  float64
	LocalUpper  float64
	Cost        float64
}

// BoundType distinguishes which side of a column's range a DomainChange
// tightens.
type BoundType int

const (
	Lower BoundType = iota
	Upper
)

func (b BoundType) String() string {
	if b == Lower {
		return "lower"
	}
	return "upper"
}

// DomainChange is a single tightening of one column's bound: either a
// branching decision or a propagated implication. The domain engine's change
// stack is an ordered sequence of these; BranchingPositions marks which
// entries are branching decisions.
type DomainChange struct {
	Column    int
	BoundType BoundType
	BoundVal  float64
}

// Opposite returns the DomainChange that would flip this one to its sibling
// branch, rounding the bound to the adjacent integer — used by
// driver.Backtrack when flipping an unexplored sibling.
func (d DomainChange) Opposite() DomainChange {
	switch d.BoundType {
	case Lower:
		return DomainChange{Column: d.Column, BoundType: Upper, BoundVal: d.BoundVal - 1}
	default:
		return DomainChange{Column: d.Column, BoundType: Lower, BoundVal: d.BoundVal + 1}
	}
}

// FractionalVar is one entry of the LP's current fractional-integer list:
// the column index and its fractional LP value.
type FractionalVar struct {
	Column int
	Value  float64
}

// Proof is an infeasibility or bound-exceeding proof expressed as a linear
// inequality over columns, suitable for handing to a cut generator as a
// conflict constraint.
type Proof struct {
	Inds []int
	Vals []float64
	Rhs  float64
}

// Conflict is a constraint derived by conflict analysis or by the cut
// generator, to be appended to the shared conflict pool.
type Conflict struct {
	Inds []int
	Vals []float64
	Rhs  float64
}

// BasisHandle is an opaque, shared-ownership reference to an LP basis. A
// NodeFrame holding one keeps it alive at least as long as any LP call that
// might warm-start from it; the zero value means "no stored basis".
type BasisHandle interface{}

// OrbitSet is an opaque, shared-ownership reference to a symmetry
// stabilizer valid at a given node. The zero value (nil) means "no active
// stabilizer".
type OrbitSet interface{}

// SimplexStrategy selects which LP algorithm the relaxation engine should
// use for its next resolve, consumed by the rebuild fallback cascade in
// driver.Branch.
type SimplexStrategy int

const (
	StrategyDual SimplexStrategy = iota
	StrategyPrimal
	StrategyInteriorPoint
)

// LimitStatus reports which of the solver's global stopping conditions have
// fired. The driver polls this between dive iterations, and the branch
// selector polls it between strong-branch probes (returning its current
// best candidate once a limit has fired); an LP resolve or a propagation
// already under way is never cut short.
type LimitStatus struct {
	TimeLimit bool
	NodeLimit bool
	GapLimit  bool
	Interrupt bool
}

// Hit reports whether any limit has fired.
func (l LimitStatus) Hit() bool {
	return l.TimeLimit || l.NodeLimit || l.GapLimit || l.Interrupt
}

// SuspendedNode is the reduced record written to the external node queue by
// CurrentNodeToQueue / OpenNodesToQueue: a frame stripped down to what is
// needed to later replay it via InstallNode.
type SuspendedNode struct {
	DomChgStack       []DomainChange
	BranchingPosition []int
	LowerBound        float64
	Estimate          float64
	Depth             int
}

// OpenNode is a node popped from the external queue and handed to
// InstallNode to resume exploring it.
type OpenNode struct {
	DomChgStack       []DomainChange
	BranchingPosition []int
	LowerBound        float64
	Estimate          float64
	Depth             int
}
