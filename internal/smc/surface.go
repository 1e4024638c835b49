package smc

import (
	"fmt"

	"github.com/san-kum/dipsim/internal/sim"
)

// Surface is the sliding variable
//
//	s = k1*(w1 - w1r) + k2*(w2 - w2r) + lam1*(th1 - th1r) + lam2*(th2 - th2r)
//
// over the pendulum angle errors and their rates. With all four gains
// strictly positive the combination is Hurwitz, so the error dynamics are
// stable once the trajectory is confined to s = 0. The cart states do not
// enter the surface; the cart is stabilized indirectly through the links.
type Surface struct {
	K1, K2     float64 // rate gains
	Lam1, Lam2 float64 // position gains
}

func NewSurface(k1, k2, lam1, lam2 float64) (Surface, error) {
	for _, g := range []struct {
		name  string
		value float64
	}{{"k1", k1}, {"k2", k2}, {"lambda1", lam1}, {"lambda2", lam2}} {
		if g.value <= 0 {
			return Surface{}, fmt.Errorf("%w: surface gain %s must be positive, got %g", sim.ErrInvalidParameter, g.name, g.value)
		}
	}
	return Surface{K1: k1, K2: k2, Lam1: lam1, Lam2: lam2}, nil
}

// Compute evaluates s for the state. A nil reference means the upright
// equilibrium (all components zero). The state must carry all six pendulum
// components and be finite.
func (sf Surface) Compute(x, ref sim.State) (float64, error) {
	if err := validateState(x); err != nil {
		return 0, err
	}
	e1, e2, w1, w2 := sf.errors(x, ref)
	return sf.K1*w1 + sf.K2*w2 + sf.Lam1*e1 + sf.Lam2*e2, nil
}

// rateTerm is the part of sdot that does not involve accelerations:
// lam1*edot1 + lam2*edot2. Used by the equivalent-control solve, which
// validates the state before it gets here.
func (sf Surface) rateTerm(x, ref sim.State) float64 {
	_, _, w1, w2 := sf.errors(x, ref)
	return sf.Lam1*w1 + sf.Lam2*w2
}

func (sf Surface) errors(x, ref sim.State) (e1, e2, w1, w2 float64) {
	e1, e2, w1, w2 = x[1], x[2], x[4], x[5]
	if ref != nil {
		if len(ref) > 2 {
			e1 -= ref[1]
			e2 -= ref[2]
		}
		if len(ref) > 5 {
			w1 -= ref[4]
			w2 -= ref[5]
		}
	}
	return e1, e2, w1, w2
}
