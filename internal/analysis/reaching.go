package analysis

import (
	"math"

	"github.com/san-kum/dipsim/internal/smc"
)

// ReachingReport summarizes how the sliding variable behaved over a run.
type ReachingReport struct {
	Initial         float64 // |s| at the first control tick
	Final           float64 // |s| at the last control tick
	Peak            float64 // worst |s| anywhere in the run
	Converged       bool    // |s| entered the band and stayed there
	ConvergenceTime float64 // first time after which |s| <= tol for good
	TimeOnSurface   float64 // fraction of ticks with |s| <= tol
	Regularized     int     // ticks that needed a regularized inversion
	Saturated       int     // ticks at the force limit
}

// AnalyzeReaching walks the traced control diagnostics and reports surface
// convergence against the tolerance band. times and outputs must be aligned
// per control tick.
func AnalyzeReaching(times []float64, outputs []smc.Output, tol float64) ReachingReport {
	var r ReachingReport
	if len(outputs) == 0 {
		return r
	}

	n := len(outputs)
	if len(times) < n {
		n = len(times)
	}

	r.Initial = math.Abs(outputs[0].Surface)
	r.Final = math.Abs(outputs[n-1].Surface)

	inside := 0
	lastExit := -1
	for i := 0; i < n; i++ {
		abs := math.Abs(outputs[i].Surface)
		r.Peak = math.Max(r.Peak, abs)
		if abs <= tol {
			inside++
		} else {
			lastExit = i
		}
		if outputs[i].Regularized {
			r.Regularized++
		}
		if outputs[i].Saturated {
			r.Saturated++
		}
	}
	r.TimeOnSurface = float64(inside) / float64(n)

	// Converged means the trajectory never leaves the band again after its
	// last excursion.
	if lastExit < n-1 {
		r.Converged = true
		if lastExit >= 0 {
			r.ConvergenceTime = times[lastExit+1]
		}
	}
	return r
}
