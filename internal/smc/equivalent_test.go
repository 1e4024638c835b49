package smc

import (
	"math"
	"testing"

	"github.com/san-kum/dipsim/internal/physics"
	"github.com/san-kum/dipsim/internal/sim"
)

func defaultDyn(t *testing.T) *physics.DoublePendulum {
	t.Helper()
	return physics.NewDoublePendulum(physics.DefaultParams())
}

func TestEquivalentControlAtUprightRest(t *testing.T) {
	dyn := defaultDyn(t)
	sf, _ := NewSurface(10, 8, 5, 4)

	// At upright rest there is no drift and no surface rate, so nothing to
	// cancel.
	ueq, regularized, err := equivalentControl(dyn, sf, sim.State{0, 0, 0, 0, 0, 0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if regularized {
		t.Error("regularized at upright with default thresholds")
	}
	if math.Abs(ueq) > 1e-9 {
		t.Errorf("u_eq = %g at upright rest, want 0", ueq)
	}
}

func TestEquivalentControlFinite(t *testing.T) {
	dyn := defaultDyn(t)
	sf, _ := NewSurface(10, 8, 5, 4)

	states := []sim.State{
		{0, 0.1, 0.05, 0, 0, 0},
		{0.5, -0.3, 0.2, 1, -0.5, 0.8},
		{0, math.Pi / 2, 0, 0, 0, 0},
	}
	for _, x := range states {
		ueq, _, err := equivalentControl(dyn, sf, x, nil)
		if err != nil {
			t.Fatalf("state %v: %v", x, err)
		}
		if math.IsNaN(ueq) || math.IsInf(ueq, 0) {
			t.Fatalf("state %v: non-finite u_eq %g", x, ueq)
		}
	}
}

func TestEquivalentControlOpposesGravityTorque(t *testing.T) {
	dyn := defaultDyn(t)
	sf, _ := NewSurface(10, 8, 5, 4)

	// Tilting the links forward flips the sign of the drift, so u_eq flips
	// with it.
	pos, _, err := equivalentControl(dyn, sf, sim.State{0, 0.1, 0.05, 0, 0, 0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	neg, _, err := equivalentControl(dyn, sf, sim.State{0, -0.1, -0.05, 0, 0, 0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(pos+neg) > 1e-9 {
		t.Errorf("u_eq not odd in the tilt: %g vs %g", pos, neg)
	}
	if pos == 0 {
		t.Error("u_eq = 0 for a tilted state, want nonzero feed-forward")
	}
}

func TestControlDirectionIsNegative(t *testing.T) {
	// For a cart force, the link accelerations respond with opposite sign at
	// upright (the cart kicks the links backwards), so the effective input
	// gain on s is negative.
	dyn := defaultDyn(t)
	sf, _ := NewSurface(10, 8, 5, 4)

	dir, err := controlDirection(dyn, sf)
	if err != nil {
		t.Fatal(err)
	}
	if dir != -1 {
		t.Errorf("direction = %g, want -1", dir)
	}
}

func TestValidateState(t *testing.T) {
	if err := validateState(sim.State{0, 0, 0, 0, 0, 0}); err != nil {
		t.Errorf("valid state rejected: %v", err)
	}
	if err := validateState(sim.State{0, 0, 0}); err == nil {
		t.Error("short state accepted")
	}
	if err := validateState(sim.State{0, math.NaN(), 0, 0, 0, 0}); err == nil {
		t.Error("NaN state accepted")
	}
}
