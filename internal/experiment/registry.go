package experiment

import (
	"fmt"
	"sort"
	"sync"

	"github.com/san-kum/dipsim/internal/config"
	"github.com/san-kum/dipsim/internal/integrators"
	"github.com/san-kum/dipsim/internal/metrics"
	"github.com/san-kum/dipsim/internal/physics"
	"github.com/san-kum/dipsim/internal/sim"
	"github.com/san-kum/dipsim/internal/smc"
)

// ControllerFactory builds a control law for the given plant from the
// controller section of a config.
type ControllerFactory func(dyn *physics.DoublePendulum, cc config.ControllerConfig) (smc.ControlLaw, error)

// Registry maps the names used in configs and CLI flags to constructors.
// Registration is guarded so tests and plugins can add entries concurrently.
type Registry struct {
	mu          sync.RWMutex
	integrators map[string]func() sim.Integrator
	controllers map[string]ControllerFactory
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() sim.Integrator),
		controllers: make(map[string]ControllerFactory),
	}

	r.RegisterIntegrator("euler", func() sim.Integrator { return integrators.NewEuler() })
	r.RegisterIntegrator("rk4", func() sim.Integrator { return integrators.NewRK4() })
	r.RegisterIntegrator("rk45", func() sim.Integrator { return integrators.NewRK45() })

	r.RegisterController("classical", func(dyn *physics.DoublePendulum, cc config.ControllerConfig) (smc.ControlLaw, error) {
		sw, err := switchingFromConfig(cc)
		if err != nil {
			return nil, err
		}
		return smc.NewClassical(dyn, cc.Gains, cc.MaxForce, sw)
	})
	r.RegisterController("adaptive", func(dyn *physics.DoublePendulum, cc config.ControllerConfig) (smc.ControlLaw, error) {
		sw, err := switchingFromConfig(cc)
		if err != nil {
			return nil, err
		}
		return smc.NewAdaptive(dyn, cc.Gains, boundsFromConfig(cc), cc.MaxForce, sw)
	})
	r.RegisterController("super_twisting", func(dyn *physics.DoublePendulum, cc config.ControllerConfig) (smc.ControlLaw, error) {
		return smc.NewSuperTwisting(dyn, cc.Gains, cc.MaxForce)
	})
	r.RegisterController("hybrid", func(dyn *physics.DoublePendulum, cc config.ControllerConfig) (smc.ControlLaw, error) {
		sw, err := switchingFromConfig(cc)
		if err != nil {
			return nil, err
		}
		return smc.NewHybrid(dyn, cc.Gains, boundsFromConfig(cc), hybridFromConfig(cc), cc.MaxForce, sw)
	})

	return r
}

func switchingFromConfig(cc config.ControllerConfig) (smc.Switching, error) {
	return smc.NewSwitching(smc.Method(cc.Switching), cc.BoundaryLayer)
}

func boundsFromConfig(cc config.ControllerConfig) smc.GainBounds {
	return smc.GainBounds{Min: cc.GainMin, Max: cc.GainMax, Init: cc.GainInit}
}

func hybridFromConfig(cc config.ControllerConfig) smc.HybridConfig {
	return smc.HybridConfig{
		Hysteresis:    cc.Hysteresis,
		DwellTime:     cc.DwellTime,
		InitialMode:   smc.Mode(cc.InitialMode),
		CostSmoothing: cc.CostSmoothing,
		Scale1:        cc.Scale1,
		Scale2:        cc.Scale2,
	}
}

func (r *Registry) RegisterIntegrator(name string, fn func() sim.Integrator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.integrators[name] = fn
}

func (r *Registry) RegisterController(name string, fn ControllerFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controllers[name] = fn
}

func (r *Registry) GetIntegrator(name string) (sim.Integrator, error) {
	r.mu.RLock()
	fn, ok := r.integrators[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, dyn *physics.DoublePendulum, cc config.ControllerConfig) (smc.ControlLaw, error) {
	r.mu.RLock()
	fn, ok := r.controllers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s", name)
	}
	return fn(dyn, cc)
}

func (r *Registry) ListIntegrators() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListControllers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.controllers))
	for name := range r.controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics is the standard telemetry set for a controlled run.
func DefaultMetrics(dyn *physics.DoublePendulum, law smc.ControlLaw) []sim.Metric {
	return []sim.Metric{
		metrics.NewStability(0.5),
		metrics.NewControlEffort(),
		metrics.NewChattering(),
		metrics.NewEnergyDrift(dyn),
		metrics.NewSingularity(law),
	}
}
