package contracts

// LPRelaxation is the continuous relaxation solver borrowed by the search.
// It is not owned by the search: the search may temporarily swap its
// simplex strategy when rebuilding a stalled LP, but it is never safe to
// share the same LPRelaxation across two concurrent searches.
type LPRelaxation interface {
	// Run resolves the LP from scratch against the given domain.
	Run(dom Domain) error
	// ResolveLP re-resolves the LP after the given domain changes, warm
	// starting from whatever basis is currently loaded.
	ResolveLP(dom Domain) error

	ScaledOptimal() bool
	UnscaledPrimalFeasible() bool
	UnscaledDualFeasible() bool

	GetObjective() float64
	GetSolution() []float64
	GetFractionalIntegers() []FractionalVar

	SetObjectiveLimit(limit float64)

	StoreBasis() BasisHandle
	RecoverBasis(h BasisHandle)

	ComputeBestEstimate() float64
	ComputeDualProof() Proof
	ComputeDualInfProof() Proof
	ComputeLPDegeneracy() float64

	FlushDomain()
	ResetAges()

	IterationCount() int
	SetSimplexStrategy(s SimplexStrategy)
}

// Domain is the bound/propagation engine owned by the search. It mirrors,
// then diverges from, the global domain snapshot captured when the local
// domain is last reset.
type Domain interface {
	Propagate() error
	ChangeBound(change DomainChange)
	Backtrack(pos int)
	Infeasible() bool

	GetDomainChangeStack() []DomainChange
	GetReducedDomainChangeStack() []DomainChange
	GetBranchingPositions() []int
	ClearChangedCols()

	ConflictAnalysis(pool ConflictPool) Conflict
	IsGlobalBinary(col int) bool

	// Bounds returns col's current local lower and upper bound. This is an
	// addition beyond the originally enumerated collaborator surface: the
	// driver's fallback branching-column search needs to read a column's
	// live range to compute a fallback fractional value, and no other
	// method exposes it.
	Bounds(col int) (lo, hi float64)
}

// CutGenerator produces a conflict constraint from a linear proof over a
// domain.
type CutGenerator interface {
	GenerateConflict(dom Domain, inds []int, vals []float64, rhs float64) Conflict
}

// ConflictPool accumulates conflict constraints in generation order.
type ConflictPool interface {
	Add(c Conflict)
}

// NodeQueue is the global priority queue of open subtrees.
type NodeQueue interface {
	EmplaceNode(n SuspendedNode)
	NumNodesUp(col int) int
	NumNodesDown(col int) int
}

// SymmetryEngine supplies orbital fixing and stabilizer computation for
// frames carrying a non-trivial OrbitSet.
type SymmetryEngine interface {
	// OrbitalFixing returns domain changes forced by symmetry, given the
	// domain and the currently active orbit set.
	OrbitalFixing(dom Domain, orbits OrbitSet) ([]DomainChange, error)
	// ComputeStabilizer derives the child's stabilizer from the parent's,
	// given the branching decision applied. Returns nil if the branching
	// broke orbit validity.
	ComputeStabilizer(parent OrbitSet, change DomainChange) OrbitSet
}

// MipData is the shared global solver state: limits, tolerances, the
// incumbent slot, symmetry registration, and the root LP solution.
type MipData interface {
	UpperLimit() float64
	Feastol() float64
	Epsilon() float64

	AddIncumbent(sol []float64, obj float64, tag byte)

	DebugNodePruned(depth int)
	DebugCheckCut(c Conflict) error

	SymmetriesActive() bool
	GlobalOrbits() OrbitSet
	RootLPSolution() []float64
	IntegralCols() []int

	CheckLimits() LimitStatus

	// ColCost returns col's objective coefficient. This is an addition
	// beyond the originally enumerated collaborator surface, following the
	// same precedent as Domain.Bounds: the Obj child-selection rule needs a
	// column's real cost sign, and no other method exposes it.
	ColCost(col int) float64
}
