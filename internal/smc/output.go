package smc

import "github.com/san-kum/dipsim/internal/sim"

// Mode identifies the active structure of the hybrid controller.
type Mode string

const (
	ModeAdaptive      Mode = "adaptive"
	ModeSuperTwisting Mode = "super_twisting"
)

// Output is the control scalar plus the diagnostics bundle consumed by
// telemetry. Only Control feeds back into the loop; the rest is side
// information.
type Output struct {
	Control     float64 // saturated control, |Control| <= MaxForce
	Surface     float64 // sliding variable s
	Equivalent  float64 // model-based feed-forward component
	Switching   float64 // switching/boundary-layer component
	Saturated   bool    // force clamp was active this tick
	Regularized bool    // inertia inversion needed regularization
	AdaptedGain float64 // adaptive/hybrid only
	Mode        Mode    // hybrid only
}

// ControlLaw is a sim.Controller that also exposes its last diagnostics.
type ControlLaw interface {
	sim.Controller
	Last() Output
}

// clamp saturates u to [-max, max] and reports whether it clipped.
func clamp(u, max float64) (float64, bool) {
	if u > max {
		return max, true
	}
	if u < -max {
		return -max, true
	}
	return u, false
}
