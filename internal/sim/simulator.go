package sim

import (
	"context"
	"fmt"
	"math"
)

// Simulator runs one system/integrator/controller triple over a fixed
// horizon. It owns no adaptation state itself; the controller does.
// Simulator instances are not safe for concurrent use, run one per trial.
type Simulator struct {
	dyn        Dynamics
	integrator Integrator
	controller Controller
	metrics    []Metric
	observers  []Observer
}

func New(dyn Dynamics, integrator Integrator, controller Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if !x0.IsValid() {
		return nil, ErrInvalidState
	}

	steps := int(cfg.Duration / cfg.Dt)
	result := &Result{
		States:   make([]State, 0, steps+1),
		Controls: make([]Control, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	s.controller.Reset()

	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	initialEnergy := s.computeEnergy(x)

	for i := 0; ; i++ {
		// Adaptive runs cover the horizon in time; fixed-step runs count
		// steps so the recorded grid is exact.
		if cfg.Adaptive {
			if cfg.Duration-t <= cfg.MinDt {
				break
			}
		} else if i >= steps {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		u, err := s.controller.Compute(x, t)
		if err != nil {
			result.Errors = append(result.Errors, &SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: err})
			break
		}

		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		var newX State
		var stepErr error
		dtUsed := dt

		if cfg.Adaptive {
			// Trim the last step to land on the horizon, then advance by the
			// step actually taken; dt carries the suggestion for the next one.
			if remaining := cfg.Duration - t; remaining < dt {
				dt = remaining
			}
			var dtNext float64
			newX, dtUsed, dtNext, stepErr = s.adaptiveStep(x, u, t, dt, cfg)
			dt = dtNext
		} else {
			newX, stepErr = s.integrator.Step(s.dyn, x, u, t, dt)
		}

		if stepErr != nil {
			result.Errors = append(result.Errors, &SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: stepErr})
			break
		}

		if cfg.ValidateState && !newX.IsValid() {
			result.Errors = append(result.Errors, SimError{Time: t, Step: i, Message: "invalid state (NaN/Inf)"})
			break
		}

		x = newX
		t += dtUsed
		result.StepsTaken++

		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, t)
	}

	finalEnergy := s.computeEnergy(x)
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(finalEnergy-initialEnergy) / math.Abs(initialEnergy)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Adaptive && cfg.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive for adaptive stepping")
	}
	return nil
}

func (s *Simulator) computeEnergy(x State) float64 {
	if h, ok := s.dyn.(Hamiltonian); ok {
		return h.Energy(x)
	}
	return 0
}

// adaptiveStep advances the state by dt, or by a smaller step when the error
// estimate rejects dt. It returns the new state, the step actually taken
// (which the caller adds to t), and the suggested size for the next step,
// clamped to [MinDt, MaxDt]. The two are distinct: an embedded-error
// integrator always advances by the dt it was given and only suggests.
func (s *Simulator) adaptiveStep(x State, u Control, t, dt float64, cfg Config) (State, float64, float64, error) {
	if adaptive, ok := s.integrator.(AdaptiveIntegrator); ok {
		newX, suggested, err := adaptive.StepAdaptive(s.dyn, x, u, t, dt, cfg.Tolerance)
		if err != nil {
			return nil, dt, dt, err
		}
		return newX, dt, clampDt(suggested, cfg), nil
	}

	// Step-doubling error estimate for non-adaptive integrators.
	x1, err := s.integrator.Step(s.dyn, x, u, t, dt)
	if err != nil {
		return nil, dt, dt, err
	}
	xHalf, err := s.integrator.Step(s.dyn, x, u, t, dt/2)
	if err != nil {
		return nil, dt, dt, err
	}
	x2, err := s.integrator.Step(s.dyn, xHalf, u, t+dt/2, dt/2)
	if err != nil {
		return nil, dt, dt, err
	}

	stepErr := x1.Sub(x2).Norm()

	if stepErr > cfg.Tolerance && dt/2 >= cfg.MinDt {
		return s.adaptiveStep(x, u, t, dt/2, cfg)
	}

	next := dt
	if stepErr < cfg.Tolerance/10 {
		next = dt * 2
	}
	return x2, dt, clampDt(next, cfg), nil
}

func clampDt(dt float64, cfg Config) float64 {
	return math.Min(math.Max(dt, cfg.MinDt), cfg.MaxDt)
}

// RunWithCallback streams states to a callback instead of recording them.
// The callback returns false to stop the run early.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 State, cfg Config, callback func(State, Control, float64) bool) error {
	if err := s.validateConfig(cfg); err != nil {
		return err
	}

	s.controller.Reset()
	x := x0.Clone()
	t := 0.0
	dt := cfg.Dt

	for t < cfg.Duration {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		u, err := s.controller.Compute(x, t)
		if err != nil {
			return err
		}

		if !callback(x, u, t) {
			return nil
		}

		x, err = s.integrator.Step(s.dyn, x, u, t, dt)
		if err != nil {
			return err
		}
		t += dt

		if cfg.ValidateState && !x.IsValid() {
			return fmt.Errorf("invalid state at t=%.4f: %w", t, ErrInvalidState)
		}
	}

	return nil
}
