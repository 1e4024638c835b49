package integrators

import "github.com/san-kum/dipsim/internal/sim"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t, dt float64) (sim.State, error) {
	dx, err := dyn.Derivative(x, u, t)
	if err != nil {
		return nil, err
	}
	result := make(sim.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result, nil
}
