package physics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrNonFiniteMatrix is the only hard failure the guard produces. Everything
// else is handled by regularizing and continuing, so a trial near a singular
// configuration still yields a usable result.
var ErrNonFiniteMatrix = errors.New("physics: inertia matrix contains NaN or Inf")

// maxRegularizationAttempts bounds the epsilon escalation. With finite input
// the Cholesky factorization succeeds long before this.
const maxRegularizationAttempts = 8

// Factorization is an invertible form of the inertia matrix. When the raw
// matrix was ill-conditioned the factorization is of M + eps*I instead and
// Regularized is set; callers treat that as a warning, not an error.
type Factorization struct {
	chol mat.Cholesky

	Det         float64
	Cond        float64
	Regularized bool
	Attempts    int     // number of epsilon escalations applied
	Epsilon     float64 // total diagonal shift, 0 when not regularized
}

// SolveVec solves M x = b using the guarded factorization.
func (f *Factorization) SolveVec(b mat.Vector) (*mat.VecDense, error) {
	var x mat.VecDense
	if err := f.chol.SolveVecTo(&x, b); err != nil {
		return nil, err
	}
	return &x, nil
}

// InverseTo stores the explicit inverse into dst. Prefer SolveVec in the
// control loop; this is for diagnostics.
func (f *Factorization) InverseTo(dst *mat.SymDense) error {
	return f.chol.InverseTo(dst)
}

// Guard decides between direct and regularized inversion of the inertia
// matrix. It is stateless and safe for concurrent use.
type Guard struct {
	regularization float64
	detThreshold   float64
	condThreshold  float64
}

func NewGuard(p Params) *Guard {
	return &Guard{
		regularization: p.Regularization,
		detThreshold:   p.DetThreshold,
		condThreshold:  p.CondThreshold,
	}
}

// Factorize produces an invertible form of m. Conditioning is checked with
// the determinant fast path first, then the condition number from the
// Cholesky factors. A suspect matrix gets a Tikhonov shift m + eps*I with
// eps escalating tenfold until the factorization succeeds.
//
// Hard failure is reserved for non-finite input; state-induced
// near-singularity always resolves to a regularized factorization.
func (g *Guard) Factorize(m *mat.SymDense) (*Factorization, error) {
	n, _ := m.Dims()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, ErrNonFiniteMatrix
			}
		}
	}

	f := &Factorization{}

	// Direct path: factorize the raw matrix and accept it only when both
	// conditioning checks pass.
	if f.chol.Factorize(m) {
		f.Det = f.chol.Det()
		f.Cond = f.chol.Cond()
		if math.Abs(f.Det) >= g.detThreshold && f.Cond <= g.condThreshold {
			return f, nil
		}
	}

	// Regularized path: escalate the diagonal shift until the factorization
	// succeeds. Each attempt multiplies epsilon by ten.
	reg := mat.NewSymDense(n, nil)
	reg.CopySym(m)
	eps := g.regularization
	total := 0.0

	for attempt := 1; attempt <= maxRegularizationAttempts; attempt++ {
		for i := 0; i < n; i++ {
			reg.SetSym(i, i, reg.At(i, i)+eps)
		}
		total += eps
		eps *= 10

		if f.chol.Factorize(reg) {
			f.Det = f.chol.Det()
			f.Cond = f.chol.Cond()
			f.Regularized = true
			f.Attempts = attempt
			f.Epsilon = total
			return f, nil
		}
	}

	// Unreachable for finite symmetric input: a large enough diagonal shift
	// always dominates. Kept as a guard against pathological inputs.
	return nil, fmt.Errorf("physics: factorization failed after %d regularization attempts", maxRegularizationAttempts)
}
