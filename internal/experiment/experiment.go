package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/dipsim/internal/config"
	"github.com/san-kum/dipsim/internal/physics"
	"github.com/san-kum/dipsim/internal/sim"
	"github.com/san-kum/dipsim/internal/smc"
)

// Experiment assembles a plant, integrator, control law and telemetry from a
// config, runs them, and keeps the pieces reachable for post-run inspection.
type Experiment struct {
	cfg       *config.Config
	dyn       *physics.DoublePendulum
	law       smc.ControlLaw
	trace     *Trace
	simulator *sim.Simulator
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{cfg: cfg}
}

// Setup resolves the config against the registry. It must be called before
// Run.
func (e *Experiment) Setup(reg *Registry) error {
	params, err := e.cfg.Params()
	if err != nil {
		return err
	}
	e.dyn = physics.NewDoublePendulumWithEffects(params, e.cfg.Effects())

	integrator, err := reg.GetIntegrator(e.cfg.Sim.Integrator)
	if err != nil {
		return err
	}

	e.law, err = reg.GetController(e.cfg.Controller.Type, e.dyn, e.cfg.Controller)
	if err != nil {
		return err
	}

	e.simulator = sim.New(e.dyn, integrator, e.law)
	for _, m := range DefaultMetrics(e.dyn, e.law) {
		e.simulator.AddMetric(m)
	}
	e.trace = NewTrace(e.law)
	e.simulator.AddObserver(e.trace)
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not set up")
	}
	return e.simulator.Run(ctx, e.cfg.GetInitState(), e.cfg.SimOptions())
}

func (e *Experiment) Dynamics() *physics.DoublePendulum { return e.dyn }
func (e *Experiment) Law() smc.ControlLaw               { return e.law }
func (e *Experiment) Trace() *Trace                     { return e.trace }
func (e *Experiment) Simulator() *sim.Simulator         { return e.simulator }
