package smc

import (
	"fmt"

	"github.com/san-kum/dipsim/internal/physics"
	"github.com/san-kum/dipsim/internal/sim"
)

// Classical is first-order sliding-mode control with static gains:
//
//	u = u_eq + u_sw - kd*s
//
// Gains: [k1, k2, lambda1, lambda2, K, kd].
type Classical struct {
	dyn       *physics.DoublePendulum
	surface   Surface
	switching Switching
	gainK     float64
	gainKd    float64
	maxForce  float64
	dir       float64
	ref       sim.State

	last Output
}

// NewClassical validates the gain vector at construction; per-call checks
// are limited to the state itself.
func NewClassical(dyn *physics.DoublePendulum, gains []float64, maxForce float64, sw Switching) (*Classical, error) {
	if len(gains) != 6 {
		return nil, fmt.Errorf("%w: classical SMC wants 6 gains [k1 k2 lam1 lam2 K kd], got %d", sim.ErrInvalidParameter, len(gains))
	}
	surface, err := NewSurface(gains[0], gains[1], gains[2], gains[3])
	if err != nil {
		return nil, err
	}
	if gains[4] <= 0 {
		return nil, fmt.Errorf("%w: switching gain K must be positive, got %g", sim.ErrInvalidParameter, gains[4])
	}
	if gains[5] < 0 {
		return nil, fmt.Errorf("%w: damping gain kd must be non-negative, got %g", sim.ErrInvalidParameter, gains[5])
	}
	if maxForce <= 0 {
		return nil, fmt.Errorf("%w: max force must be positive, got %g", sim.ErrInvalidParameter, maxForce)
	}

	dir, err := controlDirection(dyn, surface)
	if err != nil {
		return nil, err
	}

	return &Classical{
		dyn:       dyn,
		surface:   surface,
		switching: sw,
		gainK:     gains[4],
		gainKd:    gains[5],
		maxForce:  maxForce,
		dir:       dir,
	}, nil
}

// SetReference changes the tracking target; nil means upright.
func (c *Classical) SetReference(ref sim.State) { c.ref = ref }

func (c *Classical) Compute(x sim.State, t float64) (sim.Control, error) {
	out, err := c.ComputeControl(x, t)
	if err != nil {
		return nil, err
	}
	return sim.Control{out.Control}, nil
}

// ComputeControl is Compute plus the diagnostics bundle.
func (c *Classical) ComputeControl(x sim.State, t float64) (Output, error) {
	if err := validateState(x); err != nil {
		return Output{}, err
	}

	s, err := c.surface.Compute(x, c.ref)
	if err != nil {
		return Output{}, err
	}

	ueq, regularized, err := equivalentControl(c.dyn, c.surface, x, c.ref)
	if err != nil {
		return Output{}, err
	}

	usw := c.dir * (c.switching.Compute(s, c.gainK) - c.gainKd*s)

	u, saturated := clamp(ueq+usw, c.maxForce)

	c.last = Output{
		Control:     u,
		Surface:     s,
		Equivalent:  ueq,
		Switching:   usw,
		Saturated:   saturated,
		Regularized: regularized,
	}
	return c.last, nil
}

func (c *Classical) Last() Output { return c.last }

// Reset is a no-op: the classical law carries no internal state.
func (c *Classical) Reset() { c.last = Output{} }
