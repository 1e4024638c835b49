package smc

import (
	"fmt"
	"math"

	"github.com/san-kum/dipsim/internal/physics"
	"github.com/san-kum/dipsim/internal/sim"
)

// SuperTwisting is the second-order sliding-mode algorithm:
//
//	u = -K1*sqrt(|s|)*sign(s) - K2*integral(sign(s))
//
// Gains: [K1, K2, k1, k2, lambda1, lambda2]. Both s and sdot converge to
// zero in finite time for suitable K1, K2 against a bounded disturbance,
// and the output contains no instantaneous sign term, so it is the one
// variant free of chattering in u itself. The integral is the controller's
// internal state; integration halts while the output is saturated
// (conditional anti-windup).
type SuperTwisting struct {
	surface  Surface
	alg1     float64 // K1
	alg2     float64 // K2
	maxForce float64
	dir      float64
	ref      sim.State

	integral float64
	prevT    float64
	first    bool

	last Output
}

func NewSuperTwisting(dyn *physics.DoublePendulum, gains []float64, maxForce float64) (*SuperTwisting, error) {
	if len(gains) != 6 {
		return nil, fmt.Errorf("%w: super-twisting wants 6 gains [K1 K2 k1 k2 lam1 lam2], got %d", sim.ErrInvalidParameter, len(gains))
	}
	if gains[0] <= 0 || gains[1] <= 0 {
		return nil, fmt.Errorf("%w: algorithmic gains K1, K2 must be positive, got %g, %g", sim.ErrInvalidParameter, gains[0], gains[1])
	}
	surface, err := NewSurface(gains[2], gains[3], gains[4], gains[5])
	if err != nil {
		return nil, err
	}
	if maxForce <= 0 {
		return nil, fmt.Errorf("%w: max force must be positive, got %g", sim.ErrInvalidParameter, maxForce)
	}

	dir, err := controlDirection(dyn, surface)
	if err != nil {
		return nil, err
	}

	return &SuperTwisting{
		surface:  surface,
		alg1:     gains[0],
		alg2:     gains[1],
		maxForce: maxForce,
		dir:      dir,
		first:    true,
	}, nil
}

func (st *SuperTwisting) SetReference(ref sim.State) { st.ref = ref }

func (st *SuperTwisting) Compute(x sim.State, t float64) (sim.Control, error) {
	out, err := st.ComputeControl(x, t)
	if err != nil {
		return nil, err
	}
	return sim.Control{out.Control}, nil
}

func (st *SuperTwisting) ComputeControl(x sim.State, t float64) (Output, error) {
	if err := validateState(x); err != nil {
		return Output{}, err
	}

	s, err := st.surface.Compute(x, st.ref)
	if err != nil {
		return Output{}, err
	}

	dt := 0.0
	if st.first {
		st.prevT = t
		st.first = false
	} else {
		dt = t - st.prevT
		st.prevT = t
	}

	raw := st.dir * (-st.alg1*math.Sqrt(math.Abs(s))*sign(s) - st.alg2*st.integral)
	u, saturated := clamp(raw, st.maxForce)

	// Anti-windup: only advance the integral while the actuator can follow.
	if !saturated && dt > 0 {
		st.integral += dt * sign(s)
	}

	st.last = Output{
		Control:   u,
		Surface:   s,
		Switching: u,
		Saturated: saturated,
	}
	return st.last, nil
}

func (st *SuperTwisting) Last() Output { return st.last }

func (st *SuperTwisting) Reset() {
	st.integral = 0
	st.first = true
	st.prevT = 0
	st.last = Output{}
}
