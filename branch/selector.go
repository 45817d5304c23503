// Package branch implements reliability branching: bidirectional
// strong-branch probing and score aggregation over pseudocost estimates.
package branch

import (
	"math"

	log "github.com/golang/glog"

	"github.com/mipcore/treesearch/contracts"
	"github.com/mipcore/treesearch/node"
	"github.com/mipcore/treesearch/pseudocost"
	"github.com/mipcore/treesearch/stats"
)

// Selector bundles the collaborators selectBranchingCandidate needs.
type Selector struct {
	PC    *pseudocost.Store
	LP    contracts.LPRelaxation
	Dom   contracts.Domain
	Cuts  contracts.CutGenerator
	Pool  contracts.ConflictPool
	Mip   contracts.MipData
	Sym   contracts.SymmetryEngine
	Queue contracts.NodeQueue
	Stats *stats.Counters

	// MaxSbIters bounds the number of strong-branch LP probes per call.
	MaxSbIters int
	// BasisStartThreshold caps the probing LP iterations between the
	// selector's deliberate re-seeds of the basis it started with.
	BasisStartThreshold int
	// Tol collapses pseudocost estimates below this value to zero.
	Tol float64
}

type scoreEntry struct {
	upScore, downScore       float64
	upReliable, downReliable bool
}

// Result is what SelectBranchingCandidate reports back to the driver.
type Result struct {
	// Column is the chosen branching column. Meaningless if Reduced is
	// true.
	Column int
	// Reduced signals that the current frame was already converted into a
	// single-sided split by the selector itself (a strong-branch probe
	// proved one side infeasible or bound-exceeding), and the driver must
	// not branch again on it.
	Reduced bool
}

// SelectBranchingCandidate picks a branching candidate among fracs, the
// LP's current fractional-integer list, probing via strong branching up to
// maxSbIters times for columns that are not yet reliable.
func (s *Selector) SelectBranchingCandidate(stack *node.Stack, fracs []contracts.FractionalVar) Result {
	top := stack.Top()
	entries := make([]scoreEntry, len(fracs))
	for i, f := range fracs {
		entries[i].upScore = math.Inf(1)
		entries[i].downScore = math.Inf(1)
		if s.PC.IsReliable(f.Column) {
			entries[i].upScore = s.PC.GetPseudocostUp(f.Column, f.Value, s.Tol)
			entries[i].downScore = s.PC.GetPseudocostDown(f.Column, f.Value, s.Tol)
			entries[i].upReliable = true
			entries[i].downReliable = true
		}
	}

	startBasis := s.LP.StoreBasis()
	perturbed := false
	sbIters := 0
	probeLPIters := 0
	minScore := 0.0

	for {
		best := s.pickBest(fracs, entries, minScore)

		e := &entries[best]
		fullyReliable := e.upReliable && e.downReliable
		if fullyReliable || sbIters >= s.MaxSbIters || s.Mip.CheckLimits().Hit() {
			if perturbed {
				s.LP.RecoverBasis(startBasis)
			}
			return Result{Column: fracs[best].Column}
		}

		col := fracs[best].Column
		upward := e.downReliable // probe whichever direction is still unmeasured; prefer down first
		parentObj := top.LPObjective

		outcome := s.probe(stack, col, fracs[best].Value, upward)
		sbIters++
		perturbed = true
		s.Stats.AddStrongBranchLPIterations(outcome.iterations)

		switch outcome.status {
		case probeInfeasible:
			s.PC.AddCutoffObservation(col, upward)
			s.reduceSingleSided(stack, col, fracs[best].Value, upward)
			return Result{Reduced: true}

		case probeIntegerFeasible:
			s.Mip.AddIncumbent(outcome.solution, outcome.objective, 'T')
			s.recordProbe(col, fracs[best].Value, upward, e, outcome, parentObj)

		case probeBoundExceeding:
			s.Pool.Add(s.Cuts.GenerateConflict(s.Dom, outcome.proof.Inds, outcome.proof.Vals, outcome.proof.Rhs))
			s.recordProbe(col, fracs[best].Value, upward, e, outcome, parentObj)

		default: // probeOK
			s.recordProbe(col, fracs[best].Value, upward, e, outcome, parentObj)
		}

		if e.upReliable && e.downReliable {
			s.PC.MarkReliable(col)
		}

		s.tightenOthers(fracs, entries, best, outcome, parentObj)

		// minScore floor grows as weak candidates are retired, so the
		// selector converges instead of re-probing the same marginal
		// columns every round.
		sc := s.scoreOf(e)
		if sc < math.Inf(1) && sc*0.5 > minScore {
			minScore = sc * 0.5
		}

		probeLPIters += outcome.iterations
		if s.BasisStartThreshold > 0 && probeLPIters >= s.BasisStartThreshold {
			s.LP.RecoverBasis(startBasis)
			probeLPIters = 0
		}
	}
}

func (s *Selector) scoreOf(e *scoreEntry) float64 {
	if e.upScore >= math.Inf(1) || e.downScore >= math.Inf(1) {
		return math.Inf(1)
	}
	return s.PC.GetScore(e.upScore, e.downScore)
}

// pickBest returns the index of the highest-scoring non-retired candidate,
// breaking ties with the expected-node-count heuristic.
func (s *Selector) pickBest(fracs []contracts.FractionalVar, entries []scoreEntry, minScore float64) int {
	best := -1
	var bestScore float64
	for i := range fracs {
		sc := s.scoreOf(&entries[i])
		if sc < minScore {
			continue
		}
		if best == -1 || sc > bestScore || (sc == bestScore && s.better(fracs[i], fracs[best])) {
			best = i
			bestScore = sc
		}
	}
	if best == -1 {
		log.Warningf("branch: every candidate fell below the score floor, picking the first")
		return 0
	}
	return best
}

// better breaks ties between a and b with an expected-node-count heuristic:
// (nDown/n)*(nUp/n), smaller is preferred (fewer expected descendants),
// then raw node count.
func (s *Selector) better(a, b contracts.FractionalVar) bool {
	nUpA, nDownA := s.Queue.NumNodesUp(a.Column), s.Queue.NumNodesDown(a.Column)
	nUpB, nDownB := s.Queue.NumNodesUp(b.Column), s.Queue.NumNodesDown(b.Column)
	totalA, totalB := nUpA+nDownA, nUpB+nDownB
	expA, expB := expectedCount(nUpA, nDownA, totalA), expectedCount(nUpB, nDownB, totalB)
	if expA != expB {
		return expA < expB
	}
	return totalA < totalB
}

func expectedCount(nUp, nDown, total int) float64 {
	if total == 0 {
		return 0
	}
	return (float64(nDown) / float64(total)) * (float64(nUp) / float64(total))
}

// recordProbe writes a strong-branch observation into the pseudocost store
// and marks the probed direction reliable.
func (s *Selector) recordProbe(col int, frac float64, upward bool, e *scoreEntry, outcome probeOutcome, parentObj float64) {
	var delta float64
	if upward {
		delta = math.Ceil(frac) - frac
	} else {
		delta = math.Floor(frac) - frac
	}
	objdelta := math.Max(0, outcome.objective-parentObj)
	s.PC.AddObservation(col, delta, objdelta)
	if outcome.inferences > 0 {
		s.PC.AddInferenceObservation(col, outcome.inferences, upward)
	}
	if upward {
		e.upScore = objdelta
		e.upReliable = true
	} else {
		e.downScore = objdelta
		e.downReliable = true
	}
}

// tightenOthers implements the "dual inference" pseudocost update: for
// every other fractional column whose value in the probe LP landed on one
// of its integer sides, tighten that side's score toward the observed
// objective delta.
func (s *Selector) tightenOthers(fracs []contracts.FractionalVar, entries []scoreEntry, probedIdx int, outcome probeOutcome, parentObj float64) {
	if outcome.solution == nil {
		return
	}
	objdelta := math.Max(0, outcome.objective-parentObj)
	for i, f := range fracs {
		if i == probedIdx || f.Column >= len(outcome.solution) {
			continue
		}
		val := outcome.solution[f.Column]
		e := &entries[i]
		switch {
		case nearlyEqual(val, math.Ceil(f.Value)):
			if objdelta < e.upScore {
				e.upScore = objdelta
			}
		case nearlyEqual(val, math.Floor(f.Value)):
			if objdelta < e.downScore {
				e.downScore = objdelta
			}
		}
	}
}

func nearlyEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

// reduceSingleSided converts the current frame into a one-sided split
// toward the surviving branch after a probe proved the other side
// infeasible. The pruned side never gets a frame of its own and so never
// contributes its own 2^(-depth) share to the pruned-tree-weight total;
// SkipDepthCount records that a level was collapsed this way, and bumping
// top.Depth itself is what actually applies the correction, permanently
// shifting this frame (and every real child later pushed from it) one
// level deeper so its eventual close, and theirs, pays the weight the
// pruned sibling would otherwise have owed.
func (s *Selector) reduceSingleSided(stack *node.Stack, col int, frac float64, provedUpward bool) {
	top := stack.Top()
	var change contracts.DomainChange
	if provedUpward {
		change = contracts.DomainChange{Column: col, BoundType: contracts.Upper, BoundVal: math.Floor(frac)}
	} else {
		change = contracts.DomainChange{Column: col, BoundType: contracts.Lower, BoundVal: math.Ceil(frac)}
	}
	s.Dom.ChangeBound(change)
	top.DomchgStackPos = len(s.Dom.GetDomainChangeStack())
	top.BranchingDecision = change
	top.HasBranching = true
	top.BranchingPoint = frac
	top.OpenSubtrees = 0
	top.SkipDepthCount++
	top.Depth++
}
