// Package fakemip provides hand-rolled stand-ins for the small collaborator
// interfaces around MipData: the conflict pool, cut generator, node queue,
// symmetry engine, and the shared solver data object itself.
package fakemip

import (
	"github.com/mipcore/treesearch/contracts"
)

// Mip is a scriptable contracts.MipData.
type Mip struct {
	Incumbents []Incumbent

	NextUpperLimit  float64
	NextFeastol     float64
	NextEpsilon     float64
	NextSymmetries  bool
	NextGlobalOrbits contracts.OrbitSet
	NextRootLPSol   []float64
	NextIntegralCols []int
	NextLimitStatus contracts.LimitStatus
	NextColCost     map[int]float64

	NodePrunedDepths []int
	CheckCutErr      error
}

// Incumbent records one AddIncumbent call.
type Incumbent struct {
	Solution  []float64
	Objective float64
	Tag       byte
}

func New() *Mip {
	return &Mip{}
}

func (m *Mip) UpperLimit() float64 { return m.NextUpperLimit }
func (m *Mip) Feastol() float64    { return m.NextFeastol }
func (m *Mip) Epsilon() float64    { return m.NextEpsilon }

func (m *Mip) AddIncumbent(sol []float64, obj float64, tag byte) {
	m.Incumbents = append(m.Incumbents, Incumbent{Solution: sol, Objective: obj, Tag: tag})
	if obj < m.NextUpperLimit {
		m.NextUpperLimit = obj
	}
}

func (m *Mip) DebugNodePruned(depth int) {
	m.NodePrunedDepths = append(m.NodePrunedDepths, depth)
}

func (m *Mip) DebugCheckCut(c contracts.Conflict) error { return m.CheckCutErr }

func (m *Mip) SymmetriesActive() bool           { return m.NextSymmetries }
func (m *Mip) GlobalOrbits() contracts.OrbitSet { return m.NextGlobalOrbits }
func (m *Mip) RootLPSolution() []float64        { return m.NextRootLPSol }
func (m *Mip) IntegralCols() []int              { return m.NextIntegralCols }
func (m *Mip) CheckLimits() contracts.LimitStatus { return m.NextLimitStatus }
func (m *Mip) ColCost(col int) float64          { return m.NextColCost[col] }

// Pool is a scriptable contracts.ConflictPool.
type Pool struct {
	Added []contracts.Conflict
}

func NewPool() *Pool { return &Pool{} }

func (p *Pool) Add(c contracts.Conflict) { p.Added = append(p.Added, c) }

// CutGen is a scriptable contracts.CutGenerator.
type CutGen struct {
	NextConflict contracts.Conflict
}

func NewCutGen() *CutGen { return &CutGen{} }

func (g *CutGen) GenerateConflict(dom contracts.Domain, inds []int, vals []float64, rhs float64) contracts.Conflict {
	return g.NextConflict
}

// Queue is a scriptable contracts.NodeQueue.
type Queue struct {
	Emplaced []contracts.SuspendedNode
	Up, Down map[int]int
}

func NewQueue() *Queue {
	return &Queue{Up: make(map[int]int), Down: make(map[int]int)}
}

func (q *Queue) EmplaceNode(n contracts.SuspendedNode) { q.Emplaced = append(q.Emplaced, n) }
func (q *Queue) NumNodesUp(col int) int                { return q.Up[col] }
func (q *Queue) NumNodesDown(col int) int              { return q.Down[col] }

// Sym is a scriptable contracts.SymmetryEngine.
type Sym struct {
	NextChanges []contracts.DomainChange
	NextErr     error
	NextStabilizer contracts.OrbitSet
}

func NewSym() *Sym { return &Sym{} }

func (s *Sym) OrbitalFixing(dom contracts.Domain, orbits contracts.OrbitSet) ([]contracts.DomainChange, error) {
	return s.NextChanges, s.NextErr
}

func (s *Sym) ComputeStabilizer(parent contracts.OrbitSet, change contracts.DomainChange) contracts.OrbitSet {
	return s.NextStabilizer
}
