package physics

import (
	"errors"
	"testing"

	"github.com/san-kum/dipsim/internal/sim"
)

func TestDefaultParamsValid(t *testing.T) {
	if _, err := NewParams(DefaultParams()); err != nil {
		t.Fatalf("default params should validate: %v", err)
	}
}

func TestParamsValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Params)
	}{
		{"zero cart mass", func(p *Params) { p.CartMass = 0 }},
		{"negative mass1", func(p *Params) { p.Mass1 = -0.1 }},
		{"zero length2", func(p *Params) { p.Length2 = 0 }},
		{"zero inertia1", func(p *Params) { p.Inertia1 = 0 }},
		{"zero gravity", func(p *Params) { p.Gravity = 0 }},
		{"negative cart friction", func(p *Params) { p.CartFriction = -1 }},
		{"negative joint friction", func(p *Params) { p.Joint2Friction = -0.1 }},
		{"com1 beyond link", func(p *Params) { p.Com1 = p.Length1 }},
		{"com2 beyond link", func(p *Params) { p.Com2 = p.Length2 * 1.5 }},
		{"zero regularization", func(p *Params) { p.Regularization = 0 }},
		{"det threshold zero", func(p *Params) { p.DetThreshold = 0 }},
		{"det threshold too large", func(p *Params) { p.DetThreshold = 1e-2 }},
		{"cond threshold too small", func(p *Params) { p.CondThreshold = 100 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			_, err := NewParams(p)
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, sim.ErrInvalidParameter) {
				t.Errorf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}
}
