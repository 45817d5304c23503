// Package pseudocost tracks, per integer column, the learned cost of
// forcing a variable up or down, and scores branching candidates from those
// observations.
package pseudocost

import "math"

// entry is the per-column running state.
type entry struct {
	sumObjUp, sumDeltaUp     float64
	sumObjDown, sumDeltaDown float64
	nUp, nDown               int
	inferencesUp             int
	inferencesDown           int
	cutoffsUp                int
	cutoffsDown              int
}

// Store accumulates per-variable up/down pseudocost averages and inference
// counts, scores candidates, and tracks reliability.
//
// MinReliable falls to 0 under pressure (the driver may call
// SetMinReliable at any time); DegeneracyFactor (≥1.0) multiplies the
// inference weight used by callers that blend inference counts into a
// branching score.
type Store struct {
	entries         map[int]*entry
	localReliable   map[int]bool
	MinReliable     int
	DegeneracyFactor float64
}

// New returns an empty Store with the given initial MinReliable.
func New(minReliable int) *Store {
	return &Store{
		entries:          make(map[int]*entry),
		localReliable:    make(map[int]bool),
		MinReliable:      minReliable,
		DegeneracyFactor: 1.0,
	}
}

func (s *Store) entryFor(col int) *entry {
	e, ok := s.entries[col]
	if !ok {
		e = &entry{}
		s.entries[col] = e
	}
	return e
}

// AddObservation accumulates objdelta/|delta| into the direction determined
// by the sign of delta (delta = newbound - fractionalValue, signed) and
// increments that direction's sample count.
func (s *Store) AddObservation(col int, delta, objdelta float64) {
	if delta == 0 {
		return
	}
	e := s.entryFor(col)
	mag := math.Abs(delta)
	if delta > 0 {
		e.sumObjUp += objdelta
		e.sumDeltaUp += mag
		e.nUp++
	} else {
		e.sumObjDown += objdelta
		e.sumDeltaDown += mag
		e.nDown++
	}
}

// AddInferenceObservation records side-effect domain changes attributable
// to branching col in the given direction.
func (s *Store) AddInferenceObservation(col int, nInferences int, upward bool) {
	e := s.entryFor(col)
	if upward {
		e.inferencesUp += nInferences
	} else {
		e.inferencesDown += nInferences
	}
}

// AddCutoffObservation records that branching col in the given direction
// produced infeasibility.
func (s *Store) AddCutoffObservation(col int, upward bool) {
	e := s.entryFor(col)
	if upward {
		e.cutoffsUp++
	} else {
		e.cutoffsDown++
	}
}

// avgUp and avgDown return the average objective change per unit of bound
// tightening in each direction. A direction with no samples returns 0,
// matching the "values below a tolerance collapse to zero" rule for an
// unobserved direction.
func (e *entry) avgUp() float64 {
	if e.sumDeltaUp == 0 {
		return 0
	}
	return e.sumObjUp / e.sumDeltaUp
}

func (e *entry) avgDown() float64 {
	if e.sumDeltaDown == 0 {
		return 0
	}
	return e.sumObjDown / e.sumDeltaDown
}

// GetPseudocostUp returns the expected objective gain from rounding frac up
// to the nearest integer, i.e. avg_cost_per_unit_up × (ceil(frac) - frac).
// Values below tol collapse to zero.
func (s *Store) GetPseudocostUp(col int, frac float64, tol float64) float64 {
	e, ok := s.entries[col]
	if !ok {
		return 0
	}
	dist := math.Ceil(frac) - frac
	v := e.avgUp() * dist
	if v < tol {
		return 0
	}
	return v
}

// GetPseudocostDown returns the expected objective gain from rounding frac
// down to the nearest integer, i.e. avg_cost_per_unit_down × (frac -
// floor(frac)). Values below tol collapse to zero.
func (s *Store) GetPseudocostDown(col int, frac float64, tol float64) float64 {
	e, ok := s.entries[col]
	if !ok {
		return 0
	}
	dist := frac - math.Floor(frac)
	v := e.avgDown() * dist
	if v < tol {
		return 0
	}
	return v
}

// GetScore combines the two one-sided estimates into a single branching
// score. It is the classical reliability-branching product form
// max(up, 1e-6) * max(down, 1e-6): each factor is floored at 1e-6 so a
// zero side does not zero the score, and a candidate scores well only when
// its cheaper side is still costly. There is no additive term.
func (s *Store) GetScore(upVal, downVal float64) float64 {
	const mu = 1e-6
	return math.Max(upVal, mu) * math.Max(downVal, mu)
}

// IsReliable reports whether both directions of col have at least
// MinReliable samples. This flag only ever transitions false→true: a true
// result is cached per column, so a later change to MinReliable never
// turns it back to false.
func (s *Store) IsReliable(col int) bool {
	if s.localReliable[col] {
		return true
	}
	e, ok := s.entries[col]
	if !ok {
		if s.MinReliable <= 0 {
			s.localReliable[col] = true
			return true
		}
		return false
	}
	reliable := e.nUp >= s.MinReliable && e.nDown >= s.MinReliable
	if reliable {
		s.localReliable[col] = true
	}
	return reliable
}

// MarkReliable forces col's reliability flag true, used by
// branch.SelectBranchingCandidate once a strong-branch probe has measured
// both directions regardless of accumulated sample count.
func (s *Store) MarkReliable(col int) {
	s.localReliable[col] = true
}

// NSamples returns the up and down sample counts for col.
func (s *Store) NSamples(col int) (nUp, nDown int) {
	e, ok := s.entries[col]
	if !ok {
		return 0, 0
	}
	return e.nUp, e.nDown
}

// AvgInferences returns the average number of propagated implications per
// branching in each direction, scaled by DegeneracyFactor.
func (s *Store) AvgInferences(col int) (up, down float64) {
	e, ok := s.entries[col]
	if !ok {
		return 0, 0
	}
	df := s.DegeneracyFactor
	if df <= 0 {
		df = 1
	}
	if e.nUp > 0 {
		up = df * float64(e.inferencesUp) / float64(e.nUp)
	}
	if e.nDown > 0 {
		down = df * float64(e.inferencesDown) / float64(e.nDown)
	}
	return up, down
}
