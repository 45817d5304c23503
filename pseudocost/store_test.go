package pseudocost

import (
	"testing"
)

func TestStore_AddObservation_SplitsByDirectionSign(t *testing.T) {
	s := New(1)
	s.AddObservation(0, 0.5, 2.0)  // up: delta > 0
	s.AddObservation(0, -0.3, 1.2) // down: delta < 0

	if got := s.GetPseudocostUp(0, 0.5, 0); got <= 0 {
		t.Errorf("GetPseudocostUp(0, 0.5) = %v, want > 0 after an up observation", got)
	}
	if got := s.GetPseudocostDown(0, 0.5, 0); got <= 0 {
		t.Errorf("GetPseudocostDown(0, 0.5) = %v, want > 0 after a down observation", got)
	}
}

func TestStore_AddObservation_ZeroDeltaIgnored(t *testing.T) {
	s := New(1)
	s.AddObservation(0, 0, 5.0)
	nUp, nDown := s.NSamples(0)
	if nUp != 0 || nDown != 0 {
		t.Errorf("NSamples(0) = (%d, %d), want (0, 0) after a zero-delta observation", nUp, nDown)
	}
}

func TestStore_IsReliable_MonotoneFalseToTrue(t *testing.T) {
	s := New(2)
	if s.IsReliable(0) {
		t.Fatalf("IsReliable(0) = true before any observation, want false")
	}
	s.AddObservation(0, 1, 1)
	s.AddObservation(0, -1, 1)
	if s.IsReliable(0) {
		t.Fatalf("IsReliable(0) = true after one sample per side with MinReliable=2, want false")
	}
	s.AddObservation(0, 1, 1)
	s.AddObservation(0, -1, 1)
	if !s.IsReliable(0) {
		t.Fatalf("IsReliable(0) = false after two samples per side with MinReliable=2, want true")
	}

	// Raising MinReliable afterward must never flip a true flag back to
	// false: the cached localReliable entry is sticky once set.
	s.MinReliable = 100
	if !s.IsReliable(0) {
		t.Errorf("IsReliable(0) = false after raising MinReliable, want true (monotone false->true)")
	}
}

func TestStore_MarkReliable_ForcesTrueRegardlessOfSamples(t *testing.T) {
	s := New(5)
	if s.IsReliable(0) {
		t.Fatalf("IsReliable(0) = true with no observations, want false")
	}
	s.MarkReliable(0)
	if !s.IsReliable(0) {
		t.Errorf("IsReliable(0) = false after MarkReliable, want true")
	}
}

func TestStore_GetScore_ProductFormWithFloor(t *testing.T) {
	s := New(1)
	if got, want := s.GetScore(0, 0), 1e-12; got < want {
		t.Errorf("GetScore(0, 0) = %v, want >= %v (mu^2 floor)", got, want)
	}
	if got := s.GetScore(10, 0); got <= 0 {
		t.Errorf("GetScore(10, 0) = %v, want > 0 since the floor keeps both factors positive", got)
	}
}

func TestStore_AvgInferences_ScaledByDegeneracyFactor(t *testing.T) {
	s := New(1)
	s.AddObservation(0, 1, 1)
	s.AddInferenceObservation(0, 4, true)
	s.DegeneracyFactor = 2.0

	up, _ := s.AvgInferences(0)
	if want := 8.0; up != want {
		t.Errorf("AvgInferences(0) up = %v, want %v (4 inferences / 1 sample * factor 2)", up, want)
	}
}

func TestStore_GetPseudocostUp_BelowTolCollapsesToZero(t *testing.T) {
	s := New(1)
	s.AddObservation(0, 0.01, 0.0001)
	if got := s.GetPseudocostUp(0, 0.99, 1.0); got != 0 {
		t.Errorf("GetPseudocostUp with tiny signal and large tol = %v, want 0", got)
	}
}
