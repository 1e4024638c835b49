package sim

import (
	"context"
	"sync"
)

// TrialFactory builds the per-trial pieces of a simulation. Each trial gets
// its own controller instance so adaptation state is never shared between
// goroutines; the dynamics may be shared when stateless.
type TrialFactory func(trial int) (Dynamics, Integrator, Controller, []Metric, error)

// Ensemble runs independent trials of the same experiment in parallel.
// The only shared resource across trials is read-only configuration.
type Ensemble struct {
	factory   TrialFactory
	numRuns   int
	seedStart int64
}

func NewEnsemble(factory TrialFactory, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{factory: factory, numRuns: numRuns, seedStart: seedStart}
}

func (e *Ensemble) Run(ctx context.Context, x0 State, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			cfgCopy := cfg
			cfgCopy.Seed = e.seedStart + int64(idx)

			dyn, integ, ctrl, metrics, err := e.factory(idx)
			if err != nil {
				errs[idx] = err
				return
			}

			s := New(dyn, integ, ctrl)
			for _, m := range metrics {
				s.AddMetric(m)
			}

			results[idx], errs[idx] = s.Run(ctx, x0, cfgCopy)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return results, nil
}
