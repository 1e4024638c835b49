package experiment

import (
	"github.com/san-kum/dipsim/internal/sim"
	"github.com/san-kum/dipsim/internal/smc"
)

// Trace records the control law's per-tick diagnostics alongside the run, so
// exports can carry the sliding variable, saturation and regularization
// flags next to the raw trajectory.
type Trace struct {
	law     smc.ControlLaw
	Outputs []smc.Output
}

func NewTrace(law smc.ControlLaw) *Trace {
	return &Trace{law: law}
}

func (tr *Trace) OnStep(x sim.State, u sim.Control, t float64) {
	tr.Outputs = append(tr.Outputs, tr.law.Last())
}
