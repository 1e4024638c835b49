package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dipsim/internal/sim"
)

func TestDoublePendulumUprightEquilibrium(t *testing.T) {
	dp := NewDoublePendulum(DefaultParams())

	dx, err := dp.Derivative(sim.State{0, 0, 0, 0, 0, 0}, sim.Control{0}, 0)
	if err != nil {
		t.Fatalf("derivative failed: %v", err)
	}

	for i, v := range dx {
		if math.Abs(v) > 1e-10 {
			t.Errorf("dx[%d] = %g, want 0 at the upright equilibrium", i, v)
		}
	}
}

func TestDoublePendulumDimensions(t *testing.T) {
	dp := NewDoublePendulum(DefaultParams())

	if dp.StateDim() != 6 {
		t.Errorf("expected state dim 6, got %d", dp.StateDim())
	}
	if dp.ControlDim() != 1 {
		t.Errorf("expected control dim 1, got %d", dp.ControlDim())
	}
}

func TestDoublePendulumFallsFromTilt(t *testing.T) {
	p := DefaultParams()
	p.CartFriction = 0
	p.Joint1Friction = 0
	p.Joint2Friction = 0
	dp := NewDoublePendulum(p)

	dx, err := dp.Derivative(sim.State{0, 0.1, 0.1, 0, 0, 0}, sim.Control{0}, 0)
	if err != nil {
		t.Fatalf("derivative failed: %v", err)
	}

	// Inverted configuration: a small tilt accelerates away from vertical.
	if dx[4] <= 0 {
		t.Errorf("theta1dd = %f, want positive (falling)", dx[4])
	}
}

func TestDoublePendulumSymmetry(t *testing.T) {
	p := DefaultParams()
	p.CartFriction = 0
	p.Joint1Friction = 0
	p.Joint2Friction = 0
	dp := NewDoublePendulum(p)

	dx1, err := dp.Derivative(sim.State{0, 0.1, 0.1, 0, 0, 0}, sim.Control{0}, 0)
	if err != nil {
		t.Fatalf("derivative failed: %v", err)
	}
	dx2, err := dp.Derivative(sim.State{0, -0.1, -0.1, 0, 0, 0}, sim.Control{0}, 0)
	if err != nil {
		t.Fatalf("derivative failed: %v", err)
	}

	for i := 3; i < 6; i++ {
		if math.Abs(dx1[i]+dx2[i]) > 1e-9 {
			t.Errorf("acceleration %d not mirror-symmetric: %f vs %f", i, dx1[i], dx2[i])
		}
	}
}

func TestDoublePendulumControlPushesCart(t *testing.T) {
	dp := NewDoublePendulum(DefaultParams())

	dx, err := dp.Derivative(sim.State{0, 0, 0, 0, 0, 0}, sim.Control{10}, 0)
	if err != nil {
		t.Fatalf("derivative failed: %v", err)
	}
	if dx[3] <= 0 {
		t.Errorf("cart acceleration = %f, want positive under positive force", dx[3])
	}
}

func TestDoublePendulumInvalidInput(t *testing.T) {
	dp := NewDoublePendulum(DefaultParams())

	_, err := dp.Derivative(sim.State{0, math.NaN(), 0, 0, 0, 0}, sim.Control{0}, 0)
	if !errors.Is(err, sim.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for NaN state, got %v", err)
	}

	_, err = dp.Derivative(sim.State{0, 0, 0, 0, 0, 0}, sim.Control{math.Inf(1)}, 0)
	if !errors.Is(err, sim.ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for Inf control, got %v", err)
	}
}

func TestDoublePendulumSingularAdjacentState(t *testing.T) {
	p := DefaultParams()
	p.DetThreshold = 1e-3 // upper end of the allowed range
	dp := NewDoublePendulum(p)

	// First link horizontal: the worst conditioning the state alone induces.
	x := sim.State{0, math.Pi / 2, 0, 0, 0, 0}

	dx, fact, err := dp.Evaluate(x, sim.Control{0}, 0)
	if err != nil {
		t.Fatalf("evaluate failed: %v", err)
	}
	if !dx.IsValid() {
		t.Fatal("derivative contains non-finite values")
	}
	if fact == nil || !fact.Regularized {
		t.Error("expected the guard to report regularization")
	}
}

func TestDoublePendulumDisturbance(t *testing.T) {
	p := DefaultParams()
	dp := NewDoublePendulum(p)
	dp.Disturbance = func(t float64) float64 { return 5.0 }

	base := NewDoublePendulum(p)

	x := sim.State{0, 0, 0, 0, 0, 0}
	dx, err := dp.Derivative(x, sim.Control{0}, 0)
	if err != nil {
		t.Fatalf("derivative failed: %v", err)
	}
	ref, err := base.Derivative(x, sim.Control{5.0}, 0)
	if err != nil {
		t.Fatalf("derivative failed: %v", err)
	}

	// A constant disturbance is indistinguishable from the same cart force.
	for i := range dx {
		if math.Abs(dx[i]-ref[i]) > 1e-12 {
			t.Errorf("dx[%d] = %g, want %g", i, dx[i], ref[i])
		}
	}
}

func TestDoublePendulumEnergyAtRest(t *testing.T) {
	p := DefaultParams()
	dp := NewDoublePendulum(p)

	want := p.Mass1*p.Gravity*p.Com1 + p.Mass2*p.Gravity*(p.Length1+p.Com2)
	got := dp.Energy(sim.State{0, 0, 0, 0, 0, 0})
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("upright rest energy = %f, want %f", got, want)
	}

	// Kinetic contribution is strictly positive.
	moving := dp.Energy(sim.State{0, 0, 0, 1, 0, 0})
	if moving <= want {
		t.Error("moving cart should add kinetic energy")
	}
}
