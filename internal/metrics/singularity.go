package metrics

import (
	"github.com/san-kum/dipsim/internal/sim"
	"github.com/san-kum/dipsim/internal/smc"
)

// Singularity counts the control ticks where the inertia inversion needed
// regularization, as reported by the control law's diagnostics. A nonzero
// value flags that the trajectory visited near-singular configurations.
type Singularity struct {
	name   string
	law    smc.ControlLaw
	events int
}

func NewSingularity(law smc.ControlLaw) *Singularity {
	return &Singularity{
		name: "singularity_events",
		law:  law,
	}
}

func (s *Singularity) Name() string { return s.name }

func (s *Singularity) Observe(x sim.State, u sim.Control, t float64) {
	if s.law.Last().Regularized {
		s.events++
	}
}

func (s *Singularity) Value() float64 {
	return float64(s.events)
}

func (s *Singularity) Reset() {
	s.events = 0
}
