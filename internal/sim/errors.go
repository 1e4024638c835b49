package sim

import "errors"

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with invalid dimensions or values.
	ErrInvalidState = errors.New("sim: invalid state (NaN or Inf detected)")

	// ErrInvalidParameter indicates a construction-time parameter violation.
	ErrInvalidParameter = errors.New("sim: invalid parameter")

	// ErrUnstable indicates the simulation became numerically unstable.
	ErrUnstable = errors.New("sim: simulation unstable (state diverged)")

	// ErrStepTooSmall indicates adaptive timestep became too small.
	ErrStepTooSmall = errors.New("sim: adaptive timestep below minimum")

	// ErrDimensionMismatch indicates mismatched state/control dimensions.
	ErrDimensionMismatch = errors.New("sim: dimension mismatch between state and system")
)

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return e.Wrapped.Error()
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
