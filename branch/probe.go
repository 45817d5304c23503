package branch

import (
	"math"

	"github.com/mipcore/treesearch/contracts"
	"github.com/mipcore/treesearch/node"
)

type probeStatus int

const (
	probeOK probeStatus = iota
	probeInfeasible
	probeIntegerFeasible
	probeBoundExceeding
)

type probeOutcome struct {
	status     probeStatus
	objective  float64
	solution   []float64
	inferences int
	iterations int
	proof      contracts.Proof
}

// probe tentatively applies a bound on col (up if upward, else down),
// propagates, resolves the LP once, and reverts the domain before
// returning, leaving only the LP basis possibly perturbed (the caller
// restores it once all probing for this selection is done): apply,
// resolve, observe, revert.
func (s *Selector) probe(stack *node.Stack, col int, frac float64, upward bool) probeOutcome {
	top := stack.Top()
	pos := len(s.Dom.GetDomainChangeStack())
	preChanged := len(s.Dom.GetDomainChangeStack())

	var change contracts.DomainChange
	if upward {
		change = contracts.DomainChange{Column: col, BoundType: contracts.Lower, BoundVal: math.Ceil(frac)}
	} else {
		change = contracts.DomainChange{Column: col, BoundType: contracts.Upper, BoundVal: math.Floor(frac)}
	}
	s.Dom.ChangeBound(change)
	defer s.Dom.Backtrack(pos)

	if err := s.Dom.Propagate(); err != nil || s.Dom.Infeasible() {
		return probeOutcome{status: probeInfeasible}
	}
	inferences := len(s.Dom.GetDomainChangeStack()) - preChanged - 1
	if inferences < 0 {
		inferences = 0
	}

	if s.Mip.SymmetriesActive() && top.StabilizerOrbits != nil {
		if changes, err := s.Sym.OrbitalFixing(s.Dom, top.StabilizerOrbits); err == nil && len(changes) > 0 {
			for _, c := range changes {
				s.Dom.ChangeBound(c)
			}
			if err := s.Dom.Propagate(); err != nil || s.Dom.Infeasible() {
				return probeOutcome{status: probeInfeasible, inferences: inferences}
			}
		}
	}

	before := s.LP.IterationCount()
	s.LP.SetObjectiveLimit(s.Mip.UpperLimit())
	s.LP.ResolveLP(s.Dom)
	iters := s.LP.IterationCount() - before

	if !s.LP.ScaledOptimal() {
		if s.LP.UnscaledDualFeasible() {
			proof := s.LP.ComputeDualInfProof()
			return probeOutcome{status: probeBoundExceeding, iterations: iters, inferences: inferences, proof: proof}
		}
		return probeOutcome{status: probeInfeasible, iterations: iters, inferences: inferences}
	}

	obj := s.LP.GetObjective()
	if s.LP.UnscaledPrimalFeasible() && len(s.LP.GetFractionalIntegers()) == 0 {
		return probeOutcome{
			status:     probeIntegerFeasible,
			objective:  obj,
			solution:   s.LP.GetSolution(),
			iterations: iters,
			inferences: inferences,
		}
	}
	return probeOutcome{
		status:     probeOK,
		objective:  obj,
		solution:   s.LP.GetSolution(),
		iterations: iters,
		inferences: inferences,
	}
}
