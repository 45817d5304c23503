// Package evaluator drives a single node through propagation, LP
// resolution, reduced-cost fixing, conflict generation, and outcome
// classification.
package evaluator

import (
	"math"

	log "github.com/golang/glog"

	"github.com/mipcore/treesearch/contracts"
	"github.com/mipcore/treesearch/node"
	"github.com/mipcore/treesearch/pseudocost"
	"github.com/mipcore/treesearch/stats"
)

// Evaluator bundles the collaborators evaluateNode needs: the LP
// relaxation, the domain engine, the cut generator and conflict pool, the
// symmetry engine (nil if symmetry is inactive for this search), the
// pseudocost store, and the shared statistics counters.
type Evaluator struct {
	LP   contracts.LPRelaxation
	Dom  contracts.Domain
	Cuts contracts.CutGenerator
	Pool contracts.ConflictPool
	Mip  contracts.MipData
	Sym  contracts.SymmetryEngine
	PC   *pseudocost.Store

	Stats *stats.Counters

	// Heuristic marks the incumbent tag ('H' vs 'T') and routes LP
	// iterations into HeuristicLPIterations instead of LPIterations.
	Heuristic bool
}

// EvaluateNode processes stack's top frame exactly once per entry, looping
// in place of true recursion when reduced-cost fixing produces new domain
// changes (Go gives no guaranteed tail-call elimination, so the recursive
// step is rewritten as an explicit loop).
func (ev *Evaluator) EvaluateNode(stack *node.Stack) node.Result {
	top := stack.Top()
	if top == nil {
		log.Fatalf("evaluator: EvaluateNode called on an empty stack")
		return node.Open
	}
	ev.Stats.AddNode()

	for {
		// Step 1: propagate.
		if err := ev.Dom.Propagate(); err != nil || ev.Dom.Infeasible() {
			ev.recordInfeasibilityConflict(top)
			ev.recordCutoffIfBranched(top)
			return ev.close(top, node.DomainInfeasible)
		}

		// Step 2: symmetry stabilizer + orbital fixing.
		if ev.Mip.SymmetriesActive() {
			ev.attachStabilizer(stack, top)
			if top.StabilizerOrbits != nil {
				changes, err := ev.Sym.OrbitalFixing(ev.Dom, top.StabilizerOrbits)
				if err != nil {
					log.Warningf("evaluator: orbital fixing failed: %v", err)
				} else if len(changes) > 0 {
					for _, c := range changes {
						ev.Dom.ChangeBound(c)
					}
					if err := ev.Dom.Propagate(); err != nil || ev.Dom.Infeasible() {
						ev.recordInfeasibilityConflict(top)
						ev.recordCutoffIfBranched(top)
						return ev.close(top, node.DomainInfeasible)
					}
				}
			}
		}

		// Step 3: resolve the LP with the current cutoff.
		before := ev.LP.IterationCount()
		ev.LP.SetObjectiveLimit(ev.Mip.UpperLimit())
		ev.LP.ResolveLP(ev.Dom)
		ev.recordLPIterations(ev.LP.IterationCount() - before)

		if ev.LP.ScaledOptimal() {
			if result, done := ev.handleOptimal(stack, top); done {
				return result
			}
			// Reduced-cost fixing produced new changes: loop (tail call).
			continue
		}

		// LP not scaled-optimal: either it proved the node's objective
		// bound exceeded (dual feasible against the cutoff) or it is
		// genuinely infeasible.
		if ev.LP.UnscaledDualFeasible() {
			ev.recordBoundExceedingConflict(top)
			return ev.close(top, node.BoundExceeding)
		}
		ev.recordInfeasibilityConflict(top)
		ev.recordCutoffIfBranched(top)
		return ev.close(top, node.LpInfeasible)
	}
}

// handleOptimal processes an optimal LP solve at top. The bool result
// reports whether EvaluateNode should return the Result as it is (true:
// the node is closed, or stays Open for branching) or loop again after
// reduced-cost fixing applied new changes (false).
func (ev *Evaluator) handleOptimal(stack *node.Stack, top *node.Frame) (node.Result, bool) {
	top.NodeBasis = ev.LP.StoreBasis()
	top.Estimate = ev.LP.ComputeBestEstimate()
	top.LPObjective = ev.LP.GetObjective()

	if parent := stack.Parent(); parent != nil && top.HasBranching {
		delta := top.BranchingDecision.BoundVal - top.BranchingPoint
		objdelta := math.Max(0, top.LPObjective-parent.LPObjective)
		ev.PC.AddObservation(top.BranchingDecision.Column, delta, objdelta)
	}

	fracs := ev.LP.GetFractionalIntegers()
	if ev.LP.UnscaledPrimalFeasible() && len(fracs) == 0 {
		tag := byte('T')
		if ev.Heuristic {
			tag = 'H'
		}
		ev.Mip.AddIncumbent(ev.LP.GetSolution(), top.LPObjective, tag)
		ev.LP.SetObjectiveLimit(top.LPObjective)
		ev.recordBoundExceedingConflict(top)
		return ev.close(top, node.BoundExceeding), true
	}

	if ev.LP.UnscaledDualFeasible() {
		top.TightenLowerBound(top.LPObjective)
		if top.LowerBound > ev.Mip.UpperLimit() {
			ev.recordBoundExceedingConflict(top)
			return ev.close(top, node.BoundExceeding), true
		}
		if changes := ev.reducedCostFixing(top); len(changes) > 0 {
			for _, c := range changes {
				ev.Dom.ChangeBound(c)
			}
			return node.Open, false
		}
		return node.Open, true
	}

	// Dual not certified: the LP claims optimality without a dual proof.
	// If its objective alone already exceeds the cutoff, treat it the
	// same as a bound-exceeding proof and re-propagate.
	if top.LPObjective > ev.Mip.UpperLimit() {
		ev.recordBoundExceedingConflict(top)
		if err := ev.Dom.Propagate(); err != nil || ev.Dom.Infeasible() {
			return ev.close(top, node.BoundExceeding), true
		}
	}
	return node.Open, true
}

// reducedCostFixing turns the fixings reported by the LP collaborator into
// domain changes. The reduced-cost computation itself (from the LP's dual
// values and the objective limit set before the resolve) lives in the LP
// collaborator, which reports it through ComputeDualProof: each
// Inds[i]/Vals[i] pair becomes an upper bound of Vals[i] on column
// Inds[i]. Rhs is not read, and no other filtering is done.
func (ev *Evaluator) reducedCostFixing(top *node.Frame) []contracts.DomainChange {
	proof := ev.LP.ComputeDualProof()
	var changes []contracts.DomainChange
	for i, col := range proof.Inds {
		if i >= len(proof.Vals) {
			break
		}
		// A single-column proof term is a fixing candidate: tighten that
		// column's bound toward the proof's implied value.
		changes = append(changes, contracts.DomainChange{
			Column:    col,
			BoundType: contracts.Upper,
			BoundVal:  proof.Vals[i],
		})
	}
	return changes
}

func (ev *Evaluator) recordLPIterations(delta int) {
	if ev.Heuristic {
		ev.Stats.AddHeuristicLPIterations(delta)
	} else {
		ev.Stats.AddLPIterations(delta)
	}
}

// recordCutoffIfBranched attributes a cutoff observation to the column
// whose branching created top, if any, as long as that branching actually
// moved the bound off the fractional point (a fallback-column split can
// land on an already-integer value, leaving nothing to attribute).
func (ev *Evaluator) recordCutoffIfBranched(top *node.Frame) {
	if !top.HasBranching || top.BranchingDecision.BoundVal == top.BranchingPoint {
		return
	}
	upward := top.BranchingDecision.BoundType == contracts.Lower
	ev.PC.AddCutoffObservation(top.BranchingDecision.Column, upward)
}

func (ev *Evaluator) recordInfeasibilityConflict(top *node.Frame) {
	c := ev.Dom.ConflictAnalysis(ev.Pool)
	if err := ev.Mip.DebugCheckCut(c); err != nil {
		log.Warningf("evaluator: infeasibility conflict failed debug check: %v", err)
	}
}

func (ev *Evaluator) recordBoundExceedingConflict(top *node.Frame) {
	proof := ev.LP.ComputeDualInfProof()
	c := ev.Cuts.GenerateConflict(ev.Dom, proof.Inds, proof.Vals, proof.Rhs)
	ev.Pool.Add(c)
}

// attachStabilizer derives top's stabilizer from its parent's, or seeds it
// from the global orbits at the root.
func (ev *Evaluator) attachStabilizer(stack *node.Stack, top *node.Frame) {
	parent := stack.Parent()
	if parent == nil {
		top.StabilizerOrbits = ev.Mip.GlobalOrbits()
		return
	}
	if parent.StabilizerOrbits == nil {
		return
	}
	if !top.HasBranching {
		top.StabilizerOrbits = parent.StabilizerOrbits
		return
	}
	top.StabilizerOrbits = ev.Sym.ComputeStabilizer(parent.StabilizerOrbits, top.BranchingDecision)
}

// close marks top permanently closed and contributes its pruned-tree-weight
// share toward the conservation total.
func (ev *Evaluator) close(top *node.Frame, result node.Result) node.Result {
	top.OpenSubtrees = 0
	ev.Stats.AddPrunedWeight(math.Pow(2, -float64(top.Depth)))
	ev.Mip.DebugNodePruned(top.Depth)
	return result
}
