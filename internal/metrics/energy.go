package metrics

import (
	"math"

	"github.com/san-kum/dipsim/internal/sim"
)

// EnergyDrift tracks the worst relative deviation of the total mechanical
// energy from its initial value. For an unforced, frictionless run it is a
// direct read on integrator quality.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
	dyn           sim.Dynamics
}

func NewEnergyDrift(dyn sim.Dynamics) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		dyn:  dyn,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x sim.State, u sim.Control, t float64) {
	ec, ok := e.dyn.(sim.Hamiltonian)
	if !ok {
		return
	}

	energy := ec.Energy(x)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
