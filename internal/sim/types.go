package sim

import (
	"fmt"
	"math"
)

// State is the system state vector. For the double inverted pendulum the
// layout is [x, theta1, theta2, xdot, theta1dot, theta2dot].
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// IsValid reports whether every component is finite.
func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

// Control is the actuation vector. The pendulum cart has a single entry,
// the horizontal force in newtons.
type Control []float64

// Dynamics evaluates the state derivative of a system. Implementations must
// be pure with respect to the state: no time-stepping, no mutation of x.
// A non-finite input state fails the call rather than producing NaN output.
type Dynamics interface {
	Derivative(x State, u Control, t float64) (State, error)
	StateDim() int
	ControlDim() int
}

// Hamiltonian is implemented by dynamics that can report total energy,
// used for drift monitoring.
type Hamiltonian interface {
	Energy(x State) float64
}

// Integrator advances the state by one step of size dt. The integrator owns
// the stepping scheme; it calls Derivative one or more times per step.
type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t, dt float64) (State, error)
}

// AdaptiveIntegrator additionally supports error-controlled step sizing.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn Dynamics, x State, u Control, t, dt, tol float64) (State, float64, error)
}

// Controller maps state to actuation once per control tick. Controllers that
// carry internal adaptation state own it exclusively; Reset clears it between
// independent runs.
type Controller interface {
	Compute(x State, t float64) (Control, error)
	Reset()
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

type Config struct {
	Dt            float64
	Duration      float64
	Seed          int64
	Tolerance     float64
	MaxDt         float64
	MinDt         float64
	Adaptive      bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.01,
		Duration:      10.0,
		Tolerance:     1e-6,
		MaxDt:         0.1,
		MinDt:         1e-8,
		Adaptive:      false,
		ValidateState: true,
	}
}

type Result struct {
	States      []State
	Controls    []Control
	Times       []float64
	Metrics     map[string]float64
	EnergyDrift float64
	StepsTaken  int
	Errors      []error
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}
