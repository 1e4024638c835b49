package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/dipsim/internal/sim"
)

// DoublePendulum is the cart with two serially hinged pendulum links.
// State: [x, theta1, theta2, xdot, theta1dot, theta2dot], angles measured
// from the upright vertical. Control: one horizontal force on the cart.
//
// The evaluator never time-steps; it only produces the state derivative, so
// it composes with any external integrator (fixed-step, adaptive, or a
// Monte-Carlo ensemble driver). It holds no mutable state and is safe to
// share across parallel trials.
type DoublePendulum struct {
	params  Params
	effects Effects
	guard   *Guard

	// Disturbance, when set, adds a time-dependent lateral force on the
	// cart (wind, pushes). It must be safe for concurrent calls.
	Disturbance func(t float64) float64
}

// NewDoublePendulum wires the matrix computer and singularity guard around
// an already-validated parameter set.
func NewDoublePendulum(p Params) *DoublePendulum {
	return &DoublePendulum{
		params:  p,
		effects: AllEffects(),
		guard:   NewGuard(p),
	}
}

// NewDoublePendulumWithEffects selects a reduced model.
func NewDoublePendulumWithEffects(p Params, fx Effects) *DoublePendulum {
	d := NewDoublePendulum(p)
	d.effects = fx
	return d
}

func (d *DoublePendulum) StateDim() int   { return 6 }
func (d *DoublePendulum) ControlDim() int { return 1 }

// Params returns the shared immutable parameter record.
func (d *DoublePendulum) Params() Params { return d.params }

// Guard exposes the singularity guard so control laws can reuse the same
// inversion policy for their equivalent-control term.
func (d *DoublePendulum) Guard() *Guard { return d.guard }

// Matrices computes M, C, G for the given state with this model's effect
// toggles applied.
func (d *DoublePendulum) Matrices(x sim.State) (MatrixSet, error) {
	return ComputeMatrices(x, d.params, d.effects)
}

// Derivative implements sim.Dynamics:
//
//	q'' = M^-1 (Bu - Cq' - G - Fq')
//
// A non-finite state or control fails the call; a near-singular inertia
// matrix does not, it is regularized by the guard and evaluation continues.
func (d *DoublePendulum) Derivative(x sim.State, u sim.Control, t float64) (sim.State, error) {
	dx, _, err := d.Evaluate(x, u, t)
	return dx, err
}

// Evaluate is Derivative plus the factorization diagnostics, for callers
// that track regularization events.
func (d *DoublePendulum) Evaluate(x sim.State, u sim.Control, t float64) (sim.State, *Factorization, error) {
	ms, err := d.Matrices(x)
	if err != nil {
		return nil, nil, err
	}

	force := 0.0
	if len(u) > 0 {
		force = u[0]
	}
	if math.IsNaN(force) || math.IsInf(force, 0) {
		return nil, nil, fmt.Errorf("%w: non-finite control", sim.ErrInvalidState)
	}
	if d.Disturbance != nil {
		force += d.Disturbance(t)
	}

	fact, err := d.guard.Factorize(ms.M)
	if err != nil {
		return nil, nil, err
	}

	qddot, err := fact.SolveVec(ms.GeneralizedForce(x, d.params, force))
	if err != nil {
		return nil, fact, err
	}

	return sim.State{
		x[3], x[4], x[5],
		qddot.AtVec(0), qddot.AtVec(1), qddot.AtVec(2),
	}, fact, nil
}

// Energy returns the total mechanical energy, with potential energy zero at
// the cart rail and positive above it. Used by the energy-drift metric.
func (d *DoublePendulum) Energy(x sim.State) float64 {
	if len(x) != 6 {
		return 0
	}
	p := d.params
	xdot, w1, w2 := x[3], x[4], x[5]

	s1, c1 := math.Sincos(x[1])
	s2, c2 := math.Sincos(x[2])
	c12 := c1*c2 + s1*s2

	keCart := 0.5 * p.CartMass * xdot * xdot

	v1sq := xdot*xdot + 2*p.Com1*c1*xdot*w1 + p.Com1*p.Com1*w1*w1
	ke1 := 0.5*p.Mass1*v1sq + 0.5*p.Inertia1*w1*w1

	v2sq := xdot*xdot + p.Length1*p.Length1*w1*w1 + p.Com2*p.Com2*w2*w2 +
		2*p.Length1*c1*xdot*w1 + 2*p.Com2*c2*xdot*w2 + 2*p.Length1*p.Com2*c12*w1*w2
	ke2 := 0.5*p.Mass2*v2sq + 0.5*p.Inertia2*w2*w2

	pe := p.Mass1*p.Gravity*p.Com1*c1 + p.Mass2*p.Gravity*(p.Length1*c1+p.Com2*c2)

	return keCart + ke1 + ke2 + pe
}
