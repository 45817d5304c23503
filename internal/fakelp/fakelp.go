// Package fakelp provides a hand-rolled LPRelaxation stand-in for tests, in
// the style of gomock's manually written fakes: a small struct whose fields
// are directly poked by the test and whose methods report back exactly what
// was configured, with no hidden LP solving.
package fakelp

import (
	"github.com/mipcore/treesearch/contracts"
)

// Fake is a scriptable contracts.LPRelaxation. Tests set the Next* fields
// to control what the next ResolveLP/Run call reports; Fake then records
// what was asked of it in the Calls slice for assertions.
type Fake struct {
	Calls []string

	NextScaledOptimal         bool
	NextUnscaledPrimalFeasible bool
	NextUnscaledDualFeasible  bool
	NextObjective             float64
	NextSolution              []float64
	NextFractional            []contracts.FractionalVar
	NextDualProof             contracts.Proof
	NextDualInfProof          contracts.Proof
	NextEstimate              float64
	NextDegeneracy            float64

	IterCount   int
	LastBasis   contracts.BasisHandle
	LastLimit   float64
	LastStrategy contracts.SimplexStrategy

	RunErr      error
	ResolveErr  error

	dualProofCalls int
}

func New() *Fake {
	return &Fake{}
}

func (f *Fake) Run(dom contracts.Domain) error {
	f.Calls = append(f.Calls, "Run")
	return f.RunErr
}

func (f *Fake) ResolveLP(dom contracts.Domain) error {
	f.Calls = append(f.Calls, "ResolveLP")
	f.IterCount++
	return f.ResolveErr
}

func (f *Fake) ScaledOptimal() bool          { return f.NextScaledOptimal }
func (f *Fake) UnscaledPrimalFeasible() bool { return f.NextUnscaledPrimalFeasible }
func (f *Fake) UnscaledDualFeasible() bool   { return f.NextUnscaledDualFeasible }

func (f *Fake) GetObjective() float64                     { return f.NextObjective }
func (f *Fake) GetSolution() []float64                    { return f.NextSolution }
func (f *Fake) GetFractionalIntegers() []contracts.FractionalVar { return f.NextFractional }

func (f *Fake) SetObjectiveLimit(limit float64) { f.LastLimit = limit }

func (f *Fake) StoreBasis() contracts.BasisHandle {
	f.LastBasis = struct{}{}
	return f.LastBasis
}
func (f *Fake) RecoverBasis(h contracts.BasisHandle) { f.LastBasis = h }

func (f *Fake) ComputeBestEstimate() float64 { return f.NextEstimate }

// ComputeDualProof returns NextDualProof on its first call only, then an
// empty Proof on every subsequent call. Reduced-cost fixing in the real
// collaborator naturally stops producing new fixings once it has applied
// everything the dual values support; a fake that always replayed the same
// non-empty proof would make tests exercising the fixing loop spin forever.
func (f *Fake) ComputeDualProof() contracts.Proof {
	f.dualProofCalls++
	if f.dualProofCalls > 1 {
		return contracts.Proof{}
	}
	return f.NextDualProof
}
func (f *Fake) ComputeDualInfProof() contracts.Proof { return f.NextDualInfProof }
func (f *Fake) ComputeLPDegeneracy() float64      { return f.NextDegeneracy }

func (f *Fake) FlushDomain() {}
func (f *Fake) ResetAges()   {}

func (f *Fake) IterationCount() int { return f.IterCount }
func (f *Fake) SetSimplexStrategy(s contracts.SimplexStrategy) { f.LastStrategy = s }
