package metrics

import (
	"math"

	"github.com/san-kum/dipsim/internal/sim"
)

// Stability scores the fraction of samples where both pendulum angles stay
// inside the threshold band around upright. 1.0 means the links never left
// the band.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x sim.State, u sim.Control, t float64) {
	s.samples++
	if len(x) < 3 {
		return
	}
	if math.Abs(x[1]) > s.threshold || math.Abs(x[2]) > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
