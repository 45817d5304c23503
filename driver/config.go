// Package driver implements the search state machine that orchestrates
// dive, branch, backtrack, plunge, and suspend-to-queue over a
// node.Stack, enforcing iteration budgets and handing its statistics
// counters back to the caller on flush (they are not written into the
// MipData object).
package driver

import (
	"fmt"

	"github.com/mipcore/treesearch/branch"
)

// Config is the driver's construction-time configuration: a plain value,
// not a flag-parsed or environment-derived object.
type Config struct {
	// ChildSelRule picks which side of a branching decision becomes the
	// immediate child. The driver applies no default of its own: the zero
	// value is Up, and neither New nor SubMIP changes it to RootSol or
	// HybridInferenceCost.
	ChildSelRule branch.ChildSelRule
	// SubMIP marks this search as operating on a restricted sub-MIP,
	// informing only documentation/telemetry; the driver does not pick
	// ChildSelRule's default on its own, per the Config being a plain
	// value with no implicit environment-sensitive behavior.
	SubMIP bool

	// MinReliable is the initial pseudocost reliability threshold;
	// SetMinReliable may lower it under pressure.
	MinReliable int
	// MaxSbIters bounds strong-branch LP probes per branch() call.
	MaxSbIters int
	// BasisStartThreshold caps probing LP iterations between deliberate
	// basis reseeds during strong branching.
	BasisStartThreshold int
	// Tol collapses pseudocost estimates below this value to zero.
	Tol float64
}

// Validate checks the closed set of configuration invariants a driver
// constructor must reject up front, before any node is ever touched.
func (c Config) Validate() error {
	if !c.ChildSelRule.Valid() {
		return fmt.Errorf("invalid ChildSelRule %v", c.ChildSelRule)
	}
	if c.MaxSbIters < 0 {
		return fmt.Errorf("MaxSbIters must be >= 0, got %d", c.MaxSbIters)
	}
	if c.MinReliable < 0 {
		return fmt.Errorf("MinReliable must be >= 0, got %d", c.MinReliable)
	}
	return nil
}
