package smc

import (
	"fmt"
	"math"

	"github.com/san-kum/dipsim/internal/physics"
	"github.com/san-kum/dipsim/internal/sim"
)

// GainBounds bounds the online switching-gain estimate of the adaptive laws.
type GainBounds struct {
	Min  float64
	Max  float64
	Init float64
}

func DefaultGainBounds() GainBounds {
	return GainBounds{Min: 0.1, Max: 100, Init: 10}
}

func (b GainBounds) validate() error {
	if b.Min <= 0 {
		return fmt.Errorf("%w: K_min must be positive, got %g", sim.ErrInvalidParameter, b.Min)
	}
	if b.Max <= b.Min {
		return fmt.Errorf("%w: K_max (%g) must exceed K_min (%g)", sim.ErrInvalidParameter, b.Max, b.Min)
	}
	if b.Init < b.Min || b.Init > b.Max {
		return fmt.Errorf("%w: K_init (%g) must lie in [K_min, K_max]", sim.ErrInvalidParameter, b.Init)
	}
	return nil
}

// Adaptive is the classical structure with an online switching gain:
//
//	Kdot = gamma*|s| - sigma*K, clipped to [K_min, K_max]
//
// Gains: [k1, k2, lambda1, lambda2, gamma, sigma]. The gradient term grows
// K while off the surface; the leakage term bleeds it back down so bounded
// disturbances cannot drive unbounded gain growth.
type Adaptive struct {
	dyn       *physics.DoublePendulum
	surface   Surface
	switching Switching
	gamma     float64
	sigma     float64
	bounds    GainBounds
	maxForce  float64
	dir       float64
	ref       sim.State

	// Internal adaptation state, exclusive to this instance.
	k     float64
	prevT float64
	first bool

	last Output
}

func NewAdaptive(dyn *physics.DoublePendulum, gains []float64, bounds GainBounds, maxForce float64, sw Switching) (*Adaptive, error) {
	if len(gains) != 6 {
		return nil, fmt.Errorf("%w: adaptive SMC wants 6 gains [k1 k2 lam1 lam2 gamma sigma], got %d", sim.ErrInvalidParameter, len(gains))
	}
	surface, err := NewSurface(gains[0], gains[1], gains[2], gains[3])
	if err != nil {
		return nil, err
	}
	if gains[4] <= 0 {
		return nil, fmt.Errorf("%w: adaptation rate gamma must be positive, got %g", sim.ErrInvalidParameter, gains[4])
	}
	if gains[5] < 0 {
		return nil, fmt.Errorf("%w: leakage sigma must be non-negative, got %g", sim.ErrInvalidParameter, gains[5])
	}
	if err := bounds.validate(); err != nil {
		return nil, err
	}
	if maxForce <= 0 {
		return nil, fmt.Errorf("%w: max force must be positive, got %g", sim.ErrInvalidParameter, maxForce)
	}

	dir, err := controlDirection(dyn, surface)
	if err != nil {
		return nil, err
	}

	return &Adaptive{
		dyn:       dyn,
		surface:   surface,
		switching: sw,
		dir:       dir,
		gamma:     gains[4],
		sigma:     gains[5],
		bounds:    bounds,
		maxForce:  maxForce,
		k:         bounds.Init,
		first:     true,
	}, nil
}

func (a *Adaptive) SetReference(ref sim.State) { a.ref = ref }

// Gain returns the current adapted switching gain.
func (a *Adaptive) Gain() float64 { return a.k }

func (a *Adaptive) Compute(x sim.State, t float64) (sim.Control, error) {
	out, err := a.ComputeControl(x, t)
	if err != nil {
		return nil, err
	}
	return sim.Control{out.Control}, nil
}

func (a *Adaptive) ComputeControl(x sim.State, t float64) (Output, error) {
	if err := validateState(x); err != nil {
		return Output{}, err
	}

	s, err := a.surface.Compute(x, a.ref)
	if err != nil {
		return Output{}, err
	}
	a.adapt(s, t)

	ueq, regularized, err := equivalentControl(a.dyn, a.surface, x, a.ref)
	if err != nil {
		return Output{}, err
	}

	usw := a.dir * a.switching.Compute(s, a.k)
	u, saturated := clamp(ueq+usw, a.maxForce)

	a.last = Output{
		Control:     u,
		Surface:     s,
		Equivalent:  ueq,
		Switching:   usw,
		Saturated:   saturated,
		Regularized: regularized,
		AdaptedGain: a.k,
	}
	return a.last, nil
}

// adapt advances the gain estimate over the elapsed tick. The first call
// only records the timestamp, matching how the tick length is unknown until
// two samples exist.
func (a *Adaptive) adapt(s, t float64) {
	if a.first {
		a.prevT = t
		a.first = false
		return
	}
	dt := t - a.prevT
	a.prevT = t
	if dt <= 0 {
		return
	}

	a.k += dt * (a.gamma*math.Abs(s) - a.sigma*a.k)
	if a.k < a.bounds.Min {
		a.k = a.bounds.Min
	} else if a.k > a.bounds.Max {
		a.k = a.bounds.Max
	}
}

func (a *Adaptive) Last() Output { return a.last }

func (a *Adaptive) Reset() {
	a.k = a.bounds.Init
	a.first = true
	a.prevT = 0
	a.last = Output{}
}
