package smc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dipsim/internal/physics"
	"github.com/san-kum/dipsim/internal/sim"
)

func vec3(a, b, c float64) *mat.VecDense {
	return mat.NewVecDense(3, []float64{a, b, c})
}

// controllabilityFloor guards the scalar L*M^-1*B before division. Below it
// the surface is momentarily uncontrollable and the feed-forward term is
// dropped for the tick.
const controllabilityFloor = 1e-10

// equivalentControl computes the model-based feed-forward u_eq that would
// keep sdot = 0 in the absence of disturbances:
//
//	sdot = L*qdd + r,  qdd = M^-1 (B*u + h0)
//	u_eq = -(L*M^-1*h0 + r) / (L*M^-1*B)
//
// where L = [0, k1, k2] picks the link accelerations out of qdd, h0 is the
// drift force (no actuation) and r the surface rate term. It reuses the
// same guarded factorization as the dynamics, so near-singular
// configurations degrade to a regularized solve instead of failing.
func equivalentControl(dyn *physics.DoublePendulum, sf Surface, x, ref sim.State) (ueq float64, regularized bool, err error) {
	ms, err := dyn.Matrices(x)
	if err != nil {
		return 0, false, err
	}

	fact, err := dyn.Guard().Factorize(ms.M)
	if err != nil {
		return 0, false, err
	}

	// v1 = M^-1 B with B = [1 0 0]^T.
	b := vec3(1, 0, 0)
	v1, err := fact.SolveVec(b)
	if err != nil {
		return 0, fact.Regularized, err
	}

	// v2 = M^-1 h0, the unforced acceleration.
	h0 := ms.GeneralizedForce(x, dyn.Params(), 0)
	v2, err := fact.SolveVec(h0)
	if err != nil {
		return 0, fact.Regularized, err
	}

	denom := sf.K1*v1.AtVec(1) + sf.K2*v1.AtVec(2)
	if math.Abs(denom) < controllabilityFloor {
		return 0, fact.Regularized, nil
	}

	num := sf.K1*v2.AtVec(1) + sf.K2*v2.AtVec(2) + sf.rateTerm(x, ref)
	ueq = -num / denom

	if math.IsNaN(ueq) || math.IsInf(ueq, 0) {
		return 0, fact.Regularized, fmt.Errorf("%w: equivalent control is non-finite", sim.ErrInvalidState)
	}
	return ueq, fact.Regularized, nil
}

// controlDirection returns the sign of the effective input gain a = L*M^-1*B
// at the upright rest configuration. The cart force acts on the sliding
// variable through a, and for this plant a is negative: a positive force
// tips the first link backwards. The reaching terms are multiplied by this
// sign so they always push s towards zero.
func controlDirection(dyn *physics.DoublePendulum, sf Surface) (float64, error) {
	ms, err := dyn.Matrices(sim.State{0, 0, 0, 0, 0, 0})
	if err != nil {
		return 0, err
	}
	fact, err := dyn.Guard().Factorize(ms.M)
	if err != nil {
		return 0, err
	}
	v1, err := fact.SolveVec(vec3(1, 0, 0))
	if err != nil {
		return 0, err
	}
	if a := sf.K1*v1.AtVec(1) + sf.K2*v1.AtVec(2); a < 0 {
		return -1, nil
	}
	return 1, nil
}

func validateState(x sim.State) error {
	if len(x) != 6 {
		return fmt.Errorf("%w: want 6 components, got %d", sim.ErrInvalidState, len(x))
	}
	if !x.IsValid() {
		return sim.ErrInvalidState
	}
	return nil
}
