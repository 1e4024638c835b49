package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/dipsim/internal/sim"
)

func TestComputeMatricesUprightRest(t *testing.T) {
	p := DefaultParams()
	ms, err := ComputeMatrices(sim.State{0, 0, 0, 0, 0, 0}, p, AllEffects())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	// Total translational mass on the cart entry.
	want := p.CartMass + p.Mass1 + p.Mass2
	if math.Abs(ms.M.At(0, 0)-want) > 1e-12 {
		t.Errorf("M[0,0] = %f, want %f", ms.M.At(0, 0), want)
	}

	// At rest the Coriolis matrix vanishes.
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if ms.C.At(i, j) != 0 {
				t.Errorf("C[%d,%d] = %f, want 0 at rest", i, j, ms.C.At(i, j))
			}
		}
	}

	// Upright is a gravity equilibrium.
	for i := 0; i < 3; i++ {
		if ms.G.AtVec(i) != 0 {
			t.Errorf("G[%d] = %f, want 0 upright", i, ms.G.AtVec(i))
		}
	}
}

func TestComputeMatricesRejectsBadInput(t *testing.T) {
	p := DefaultParams()

	tests := []struct {
		name  string
		state sim.State
	}{
		{"wrong dimension", sim.State{0, 0, 0, 0}},
		{"nan angle", sim.State{0, math.NaN(), 0, 0, 0, 0}},
		{"inf rate", sim.State{0, 0, 0, 0, math.Inf(1), 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeMatrices(tt.state, p, AllEffects())
			if !errors.Is(err, sim.ErrInvalidState) {
				t.Errorf("expected ErrInvalidState, got %v", err)
			}
		})
	}
}

func TestComputeMatricesDeterministic(t *testing.T) {
	p := DefaultParams()
	x := sim.State{0.1, 0.7, -0.4, 0.3, 1.2, -2.1}

	a, err := ComputeMatrices(x, p, AllEffects())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	b, err := ComputeMatrices(x, p, AllEffects())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if a.M.At(i, j) != b.M.At(i, j) {
				t.Errorf("M[%d,%d] not bit-identical across calls", i, j)
			}
			if a.C.At(i, j) != b.C.At(i, j) {
				t.Errorf("C[%d,%d] not bit-identical across calls", i, j)
			}
		}
		if a.G.AtVec(i) != b.G.AtVec(i) {
			t.Errorf("G[%d] not bit-identical across calls", i)
		}
	}
}

func TestEffectsToggleIndependently(t *testing.T) {
	p := DefaultParams()
	// All rates non-zero so every coupling term is active.
	x := sim.State{0, 0.5, -0.3, 0.2, 1.5, -1.0}

	full, err := ComputeMatrices(x, p, AllEffects())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	none, err := ComputeMatrices(x, p, Effects{})
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if none.C.At(i, j) != 0 {
				t.Errorf("C[%d,%d] = %f with all effects off", i, j, none.C.At(i, j))
			}
		}
	}

	onlyCoriolis, err := ComputeMatrices(x, p, Effects{Coriolis: true})
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}
	if onlyCoriolis.C.At(1, 2) != full.C.At(1, 2) {
		t.Error("coriolis entry should match full model")
	}
	if onlyCoriolis.C.At(0, 1) != 0 || onlyCoriolis.C.At(2, 1) != 0 {
		t.Error("centrifugal/gyroscopic entries should be off")
	}

	// The inertia matrix and gravity vector are effect-independent.
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if none.M.At(i, j) != full.M.At(i, j) {
				t.Errorf("M[%d,%d] changed with effect toggles", i, j)
			}
		}
		if none.G.AtVec(i) != full.G.AtVec(i) {
			t.Errorf("G[%d] changed with effect toggles", i)
		}
	}
}

func TestGravityDestabilizingUpright(t *testing.T) {
	p := DefaultParams()
	ms, err := ComputeMatrices(sim.State{0, 0.1, 0.1, 0, 0, 0}, p, AllEffects())
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	// Small positive tilt from upright: the gravity torque entries must be
	// negative so the links accelerate away from vertical.
	if ms.G.AtVec(1) >= 0 {
		t.Errorf("G[1] = %f, want negative for inverted configuration", ms.G.AtVec(1))
	}
	if ms.G.AtVec(2) >= 0 {
		t.Errorf("G[2] = %f, want negative for inverted configuration", ms.G.AtVec(2))
	}
}
