package analysis

import (
	"math"

	"github.com/san-kum/dipsim/internal/sim"
)

// LyapunovExponent estimates the largest Lyapunov exponent of the unforced
// plant by tracking the separation of two nearby trajectories, with
// renormalization to keep the perturbation in the linear regime. A positive
// value indicates sensitive dependence on initial conditions.
func LyapunovExponent(dyn sim.Dynamics, ig sim.Integrator, x0 sim.State, dt, duration, perturbation float64) (float64, error) {
	if len(x0) == 0 || dt <= 0 || duration <= 0 || perturbation <= 0 {
		return 0, sim.ErrInvalidParameter
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += perturbation
	d0 := perturbation

	u := make(sim.Control, dyn.ControlDim())

	sumLog := 0.0
	count := 0

	for t := 0.0; t < duration; t += dt {
		var err error
		x, err = ig.Step(dyn, x, u, t, dt)
		if err != nil {
			return 0, err
		}
		xp, err = ig.Step(dyn, xp, u, t, dt)
		if err != nil {
			return 0, err
		}

		sep := xp.Sub(x).Norm()
		if sep > 0 {
			sumLog += math.Log(sep / d0)
			count++
		}

		// Pull the shadow trajectory back to the reference separation so the
		// divergence stays measurable.
		if sep > 0 {
			scale := d0 / sep
			for i := range xp {
				xp[i] = x[i] + (xp[i]-x[i])*scale
			}
		}
	}

	if count == 0 {
		return 0, nil
	}
	return sumLog / (float64(count) * dt), nil
}
