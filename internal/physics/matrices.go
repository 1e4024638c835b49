package physics

import (
	"fmt"

	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dipsim/internal/sim"
)

// Effects selects which velocity-coupling terms enter the Coriolis matrix.
// Each term is additive to the base rigid-body matrices, so they can be
// disabled independently for model-reduction studies.
type Effects struct {
	Coriolis    bool // link1 rate acting on link2 row
	Centrifugal bool // squared-rate terms reacting on the cart
	Gyroscopic  bool // link2 rate acting back on link1 row
}

// AllEffects enables the full model.
func AllEffects() Effects {
	return Effects{Coriolis: true, Centrifugal: true, Gyroscopic: true}
}

// MatrixSet holds the configuration-dependent matrices of the manipulator
// form M(q)q'' + C(q,q')q' + G(q) = Bu - Fq'. All three are recomputed from
// scratch on every call; none of them is cached.
type MatrixSet struct {
	M *mat.SymDense // 3x3 inertia matrix, symmetric positive definite
	C *mat.Dense    // 3x3 Coriolis/centrifugal matrix
	G *mat.VecDense // gravity vector, length 3
}

// ComputeMatrices assembles M, C and G for the given state. Angles are
// measured from the upright vertical, so gravity is destabilizing. The
// computation is pure and deterministic: identical inputs produce
// bit-identical outputs.
//
// Fails fast on non-finite input rather than returning NaN-laden matrices.
func ComputeMatrices(x sim.State, p Params, fx Effects) (MatrixSet, error) {
	if len(x) != 6 {
		return MatrixSet{}, fmt.Errorf("%w: want 6 components, got %d", sim.ErrInvalidState, len(x))
	}
	if !x.IsValid() {
		return MatrixSet{}, sim.ErrInvalidState
	}

	theta1, theta2 := x[1], x[2]
	omega1, omega2 := x[4], x[5]

	s1, c1 := math.Sincos(theta1)
	s2, c2 := math.Sincos(theta2)
	s12, c12 := math.Sincos(theta1 - theta2)

	// Composite link constants.
	h1 := p.Mass1*p.Com1 + p.Mass2*p.Length1 // first-moment of everything hanging off joint 1
	h2 := p.Mass2 * p.Com2
	h3 := p.Mass2 * p.Length1 * p.Com2

	m := mat.NewSymDense(3, nil)
	m.SetSym(0, 0, p.CartMass+p.Mass1+p.Mass2)
	m.SetSym(0, 1, h1*c1)
	m.SetSym(0, 2, h2*c2)
	m.SetSym(1, 1, p.Inertia1+p.Mass1*p.Com1*p.Com1+p.Mass2*p.Length1*p.Length1)
	m.SetSym(1, 2, h3*c12)
	m.SetSym(2, 2, p.Inertia2+p.Mass2*p.Com2*p.Com2)

	c := mat.NewDense(3, 3, nil)
	if fx.Centrifugal {
		c.Set(0, 1, -h1*s1*omega1)
		c.Set(0, 2, -h2*s2*omega2)
	}
	if fx.Coriolis {
		c.Set(1, 2, h3*s12*omega2)
	}
	if fx.Gyroscopic {
		c.Set(2, 1, -h3*s12*omega1)
	}

	g := mat.NewVecDense(3, []float64{
		0,
		-h1 * p.Gravity * s1,
		-h2 * p.Gravity * s2,
	})

	return MatrixSet{M: m, C: c, G: g}, nil
}

// GeneralizedForce returns h = Bu - Cq' - G - Fq', the right-hand side of
// the manipulator equation, as a fresh 3-vector.
func (ms MatrixSet) GeneralizedForce(x sim.State, p Params, force float64) *mat.VecDense {
	qdot := mat.NewVecDense(3, []float64{x[3], x[4], x[5]})

	var cq mat.VecDense
	cq.MulVec(ms.C, qdot)

	h := mat.NewVecDense(3, []float64{
		force - p.CartFriction*x[3],
		-p.Joint1Friction * x[4],
		-p.Joint2Friction * x[5],
	})
	h.SubVec(h, &cq)
	h.SubVec(h, ms.G)
	return h
}
