package physics

import (
	"fmt"

	"github.com/san-kum/dipsim/internal/sim"
)

// Params describes the cart and both pendulum links plus the numerical
// safety thresholds used during matrix inversion. Construct once with
// NewParams at configuration-load time; all evaluators share it by
// reference and never mutate it.
type Params struct {
	CartMass float64 // m0, kg
	Mass1    float64 // m1, kg
	Mass2    float64 // m2, kg

	Length1 float64 // L1, full link length, m
	Length2 float64 // L2, m
	Com1    float64 // lc1, pivot-to-center-of-mass distance, m
	Com2    float64 // lc2, m

	Inertia1 float64 // I1 about the link center of mass, kg m^2
	Inertia2 float64 // I2, kg m^2

	Gravity float64 // g, m/s^2

	CartFriction   float64 // viscous, N s/m
	Joint1Friction float64 // viscous, N m s/rad
	Joint2Friction float64 // viscous, N m s/rad

	// Numerical safety thresholds for the singularity guard.
	Regularization float64 // Tikhonov epsilon added to the diagonal
	DetThreshold   float64 // determinant magnitude below which M is suspect
	CondThreshold  float64 // condition number above which M is suspect
}

// DefaultParams returns a small bench-scale rig: 1.5 kg cart, 0.4 m and
// 0.3 m aluminium links.
func DefaultParams() Params {
	return Params{
		CartMass: 1.5,
		Mass1:    0.2,
		Mass2:    0.15,
		Length1:  0.4,
		Length2:  0.3,
		Com1:     0.2,
		Com2:     0.15,
		Inertia1: 0.00265,
		Inertia2: 0.00115,
		Gravity:  9.81,

		CartFriction:   0.2,
		Joint1Friction: 0.005,
		Joint2Friction: 0.004,

		Regularization: 1e-8,
		DetThreshold:   1e-6,
		CondThreshold:  1e8,
	}
}

// NewParams validates p and returns it by value. Validation happens exactly
// once here; the per-call evaluators assume these invariants hold.
func NewParams(p Params) (Params, error) {
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks the physical and numerical invariants.
func (p Params) Validate() error {
	positive := []struct {
		name  string
		value float64
	}{
		{"cart_mass", p.CartMass},
		{"mass1", p.Mass1},
		{"mass2", p.Mass2},
		{"length1", p.Length1},
		{"length2", p.Length2},
		{"com1", p.Com1},
		{"com2", p.Com2},
		{"inertia1", p.Inertia1},
		{"inertia2", p.Inertia2},
		{"gravity", p.Gravity},
		{"regularization", p.Regularization},
	}
	for _, f := range positive {
		if f.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", sim.ErrInvalidParameter, f.name, f.value)
		}
	}

	nonNegative := []struct {
		name  string
		value float64
	}{
		{"cart_friction", p.CartFriction},
		{"joint1_friction", p.Joint1Friction},
		{"joint2_friction", p.Joint2Friction},
	}
	for _, f := range nonNegative {
		if f.value < 0 {
			return fmt.Errorf("%w: %s must be non-negative, got %g", sim.ErrInvalidParameter, f.name, f.value)
		}
	}

	// Center of mass must lie inside the link.
	if p.Com1 >= p.Length1 {
		return fmt.Errorf("%w: com1 (%g) must be less than length1 (%g)", sim.ErrInvalidParameter, p.Com1, p.Length1)
	}
	if p.Com2 >= p.Length2 {
		return fmt.Errorf("%w: com2 (%g) must be less than length2 (%g)", sim.ErrInvalidParameter, p.Com2, p.Length2)
	}

	if p.DetThreshold <= 0 || p.DetThreshold > 1e-3 {
		return fmt.Errorf("%w: det_threshold must be in (0, 1e-3], got %g", sim.ErrInvalidParameter, p.DetThreshold)
	}
	if p.CondThreshold < 1e4 {
		return fmt.Errorf("%w: cond_threshold must be at least 1e4, got %g", sim.ErrInvalidParameter, p.CondThreshold)
	}

	return nil
}
