package sim

import (
	"context"
	"errors"
	"math"
	"testing"
)

type testDynamics struct{}

func (t *testDynamics) Derivative(x State, u Control, time float64) (State, error) {
	if !x.IsValid() {
		return nil, ErrInvalidState
	}
	return State{-x[0]}, nil
}

func (t *testDynamics) StateDim() int   { return 1 }
func (t *testDynamics) ControlDim() int { return 0 }

type testIntegrator struct{}

func (t *testIntegrator) Step(dyn Dynamics, x State, u Control, time float64, dt float64) (State, error) {
	dx, err := dyn.Derivative(x, u, time)
	if err != nil {
		return nil, err
	}
	return State{x[0] + dt*dx[0]}, nil
}

type testController struct{}

func (t *testController) Compute(x State, time float64) (Control, error) {
	return Control{}, nil
}

func (t *testController) Reset() {}

func TestSimulatorRun(t *testing.T) {
	s := New(&testDynamics{}, &testIntegrator{}, &testController{})

	cfg := Config{Dt: 0.1, Duration: 1.0}

	x0 := State{1.0}
	result, err := s.Run(context.Background(), x0, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}
	if len(result.Times) != 11 {
		t.Errorf("expected 11 times, got %d", len(result.Times))
	}

	finalState := result.States[len(result.States)-1][0]
	expected := 1.0 * math.Exp(-1.0)
	if math.Abs(finalState-expected) > 0.2 {
		t.Errorf("expected final state ~%.4f, got %.4f", expected, finalState)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	s := New(&testDynamics{}, &testIntegrator{}, &testController{})

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1.0}},
		{"negative dt", Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"negative duration", Config{Dt: 0.1, Duration: -1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x0 := State{1.0}
			_, err := s.Run(context.Background(), x0, tt.cfg)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSimulatorInvalidInitialState(t *testing.T) {
	s := New(&testDynamics{}, &testIntegrator{}, &testController{})

	_, err := s.Run(context.Background(), State{math.NaN()}, Config{Dt: 0.1, Duration: 1.0})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

type failingController struct {
	after int
	calls int
}

func (f *failingController) Compute(x State, time float64) (Control, error) {
	f.calls++
	if f.calls > f.after {
		return nil, ErrInvalidState
	}
	return Control{}, nil
}

func (f *failingController) Reset() { f.calls = 0 }

func TestSimulatorControllerErrorStopsRun(t *testing.T) {
	s := New(&testDynamics{}, &testIntegrator{}, &failingController{after: 3})

	result, err := s.Run(context.Background(), State{1.0}, Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if result.StepsTaken != 3 {
		t.Errorf("expected 3 completed steps, got %d", result.StepsTaken)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %d", len(result.Errors))
	}
	if !errors.Is(result.Errors[0], ErrInvalidState) {
		t.Errorf("expected wrapped ErrInvalidState, got %v", result.Errors[0])
	}
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(x State, u Control, time float64) {
	t.count++
	t.sum += x[0]
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

func TestSimulatorMetrics(t *testing.T) {
	s := New(&testDynamics{}, &testIntegrator{}, &testController{})

	metric := &testMetric{}
	s.AddMetric(metric)

	result, err := s.Run(context.Background(), State{1.0}, Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}
	if metric.count != 10 {
		t.Errorf("expected 10 observations, got %d", metric.count)
	}
}

// clockDynamics is xdot = 1: the state literally is elapsed time, so any
// mismatch between recorded Times and the trajectory shows up directly.
type clockDynamics struct{}

func (clockDynamics) Derivative(x State, u Control, time float64) (State, error) {
	return State{1}, nil
}
func (clockDynamics) StateDim() int   { return 1 }
func (clockDynamics) ControlDim() int { return 0 }

// greedyIntegrator advances by the dt it is given and always suggests
// doubling it, exercising the used-step/suggested-step distinction.
type greedyIntegrator struct{}

func (g *greedyIntegrator) Step(dyn Dynamics, x State, u Control, time, dt float64) (State, error) {
	dx, err := dyn.Derivative(x, u, time)
	if err != nil {
		return nil, err
	}
	return State{x[0] + dt*dx[0]}, nil
}

func (g *greedyIntegrator) StepAdaptive(dyn Dynamics, x State, u Control, time, dt, tol float64) (State, float64, error) {
	newX, err := g.Step(dyn, x, u, time, dt)
	return newX, 2 * dt, err
}

func TestSimulatorAdaptiveTimelineMatchesTrajectory(t *testing.T) {
	integrators := map[string]Integrator{
		"embedded error estimate": &greedyIntegrator{},
		"step doubling":           &testIntegrator{},
	}

	for name, ig := range integrators {
		t.Run(name, func(t *testing.T) {
			s := New(clockDynamics{}, ig, &testController{})
			cfg := Config{
				Dt:        0.01,
				Duration:  0.1,
				Adaptive:  true,
				Tolerance: 1e-6,
				MinDt:     1e-6,
				MaxDt:     0.04,
			}

			result, err := s.Run(context.Background(), State{0}, cfg)
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			if len(result.Errors) != 0 {
				t.Fatalf("unexpected step errors: %v", result.Errors)
			}

			// The state integrates xdot = 1 exactly, so every recorded time
			// must equal the state at that sample.
			for i := range result.States {
				if math.Abs(result.States[i][0]-result.Times[i]) > 1e-9 {
					t.Fatalf("sample %d: state time %.6f, recorded time %.6f",
						i, result.States[i][0], result.Times[i])
				}
			}

			last := result.Times[len(result.Times)-1]
			if math.Abs(last-cfg.Duration) > cfg.MinDt+1e-9 {
				t.Errorf("run ended at t=%.6f, want the %.2fs horizon", last, cfg.Duration)
			}

			// Growing suggestions must be clamped to MaxDt.
			for i := 1; i < len(result.Times); i++ {
				if step := result.Times[i] - result.Times[i-1]; step > cfg.MaxDt+1e-12 {
					t.Errorf("step %d spans %.6f, above MaxDt %.6f", i, step, cfg.MaxDt)
				}
			}
		})
	}
}

func TestEnsembleIndependentControllers(t *testing.T) {
	var built []*failingController

	factory := func(trial int) (Dynamics, Integrator, Controller, []Metric, error) {
		c := &failingController{after: 1 << 30}
		built = append(built, c)
		return &testDynamics{}, &testIntegrator{}, c, nil, nil
	}

	ens := NewEnsemble(factory, 4, 1)
	results, err := ens.Run(context.Background(), State{1.0}, Config{Dt: 0.1, Duration: 1.0})
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}

	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if len(built) != 4 {
		t.Fatalf("expected 4 controller instances, got %d", len(built))
	}
	for i, r := range results {
		if r.StepsTaken != 10 {
			t.Errorf("trial %d: expected 10 steps, got %d", i, r.StepsTaken)
		}
	}
}
