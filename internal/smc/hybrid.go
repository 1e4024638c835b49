package smc

import (
	"fmt"
	"math"

	"github.com/san-kum/dipsim/internal/physics"
	"github.com/san-kum/dipsim/internal/sim"
)

// HybridConfig tunes the mode-switching logic of the hybrid controller.
type HybridConfig struct {
	// Hysteresis h in (0,1): a candidate mode takes over only when its
	// running cost drops below (1-h) times the active mode's cost.
	Hysteresis float64
	// DwellTime is the minimum time in a mode before another switch.
	DwellTime float64
	// InitialMode selects the structure active at t = 0.
	InitialMode Mode
	// CostSmoothing is the exponential smoothing factor of the per-mode
	// running cost, in (0,1].
	CostSmoothing float64
	// Scale1, Scale2 map the shared adapted gain onto the super-twisting
	// algorithmic gains: K1 = Scale1*K, K2 = Scale2*K.
	Scale1, Scale2 float64
}

func DefaultHybridConfig() HybridConfig {
	return HybridConfig{
		Hysteresis:    0.1,
		DwellTime:     0.5,
		InitialMode:   ModeAdaptive,
		CostSmoothing: 0.05,
		Scale1:        1.5,
		Scale2:        1.1,
	}
}

func (c HybridConfig) validate() error {
	if c.Hysteresis <= 0 || c.Hysteresis >= 1 {
		return fmt.Errorf("%w: hysteresis must be in (0,1), got %g", sim.ErrInvalidParameter, c.Hysteresis)
	}
	if c.DwellTime <= 0 {
		return fmt.Errorf("%w: dwell time must be positive, got %g", sim.ErrInvalidParameter, c.DwellTime)
	}
	if c.InitialMode != ModeAdaptive && c.InitialMode != ModeSuperTwisting {
		return fmt.Errorf("%w: unknown initial mode %q", sim.ErrInvalidParameter, c.InitialMode)
	}
	if c.CostSmoothing <= 0 || c.CostSmoothing > 1 {
		return fmt.Errorf("%w: cost smoothing must be in (0,1], got %g", sim.ErrInvalidParameter, c.CostSmoothing)
	}
	if c.Scale1 <= 0 || c.Scale2 <= 0 {
		return fmt.Errorf("%w: gain scales must be positive, got %g, %g", sim.ErrInvalidParameter, c.Scale1, c.Scale2)
	}
	return nil
}

// Hybrid switches between the adaptive and super-twisting structures based
// on a per-mode running cost (exponentially smoothed |s|). Transitions are
// guarded by a hysteresis band and a minimum dwell time so the mode machine
// cannot oscillate, and the adapted switching gain is shared across modes
// (scaled per mode), so a transition never injects a gain jump that would
// raise the Lyapunov value.
//
// Gains: [k1, k2, lambda1, lambda2, gamma, sigma], as for Adaptive.
type Hybrid struct {
	dyn       *physics.DoublePendulum
	surface   Surface
	switching Switching
	gamma     float64
	sigma     float64
	bounds    GainBounds
	cfg       HybridConfig
	maxForce  float64
	dir       float64
	ref       sim.State

	// Internal state.
	k            float64
	mode         Mode
	modeEntered  float64
	costAdaptive float64
	costST       float64
	costPrimed   bool
	integral     float64 // super-twisting integral
	prevT        float64
	first        bool

	last Output
}

func NewHybrid(dyn *physics.DoublePendulum, gains []float64, bounds GainBounds, cfg HybridConfig, maxForce float64, sw Switching) (*Hybrid, error) {
	if len(gains) != 6 {
		return nil, fmt.Errorf("%w: hybrid SMC wants 6 gains [k1 k2 lam1 lam2 gamma sigma], got %d", sim.ErrInvalidParameter, len(gains))
	}
	surface, err := NewSurface(gains[0], gains[1], gains[2], gains[3])
	if err != nil {
		return nil, err
	}
	if gains[4] <= 0 {
		return nil, fmt.Errorf("%w: adaptation rate gamma must be positive, got %g", sim.ErrInvalidParameter, gains[4])
	}
	if gains[5] < 0 {
		return nil, fmt.Errorf("%w: leakage sigma must be non-negative, got %g", sim.ErrInvalidParameter, gains[5])
	}
	if err := bounds.validate(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if maxForce <= 0 {
		return nil, fmt.Errorf("%w: max force must be positive, got %g", sim.ErrInvalidParameter, maxForce)
	}

	dir, err := controlDirection(dyn, surface)
	if err != nil {
		return nil, err
	}

	return &Hybrid{
		dyn:       dyn,
		surface:   surface,
		switching: sw,
		dir:       dir,
		gamma:     gains[4],
		sigma:     gains[5],
		bounds:    bounds,
		cfg:       cfg,
		maxForce:  maxForce,
		k:         bounds.Init,
		mode:      cfg.InitialMode,
		first:     true,
	}, nil
}

func (h *Hybrid) SetReference(ref sim.State) { h.ref = ref }

// Mode returns the currently active structure.
func (h *Hybrid) Mode() Mode { return h.mode }

// Gain returns the shared adapted gain.
func (h *Hybrid) Gain() float64 { return h.k }

func (h *Hybrid) Compute(x sim.State, t float64) (sim.Control, error) {
	out, err := h.ComputeControl(x, t)
	if err != nil {
		return nil, err
	}
	return sim.Control{out.Control}, nil
}

func (h *Hybrid) ComputeControl(x sim.State, t float64) (Output, error) {
	if err := validateState(x); err != nil {
		return Output{}, err
	}

	s, err := h.surface.Compute(x, h.ref)
	if err != nil {
		return Output{}, err
	}

	dt := 0.0
	if h.first {
		h.prevT = t
		h.modeEntered = t
		h.first = false
	} else {
		dt = t - h.prevT
		h.prevT = t
	}

	h.adapt(s, dt)
	h.updateCosts(s)
	h.maybeSwitch(t)

	var out Output
	switch h.mode {
	case ModeSuperTwisting:
		out = h.computeSuperTwisting(s, dt)
	default:
		out, err = h.computeAdaptive(s, x)
		if err != nil {
			return Output{}, err
		}
	}

	out.Surface = s
	out.AdaptedGain = h.k
	out.Mode = h.mode
	h.last = out
	return out, nil
}

func (h *Hybrid) computeAdaptive(s float64, x sim.State) (Output, error) {
	ueq, regularized, err := equivalentControl(h.dyn, h.surface, x, h.ref)
	if err != nil {
		return Output{}, err
	}
	usw := h.dir * h.switching.Compute(s, h.k)
	u, saturated := clamp(ueq+usw, h.maxForce)
	return Output{
		Control:     u,
		Equivalent:  ueq,
		Switching:   usw,
		Saturated:   saturated,
		Regularized: regularized,
	}, nil
}

func (h *Hybrid) computeSuperTwisting(s, dt float64) Output {
	k1 := h.cfg.Scale1 * h.k
	k2 := h.cfg.Scale2 * h.k

	raw := h.dir * (-k1*math.Sqrt(math.Abs(s))*sign(s) - k2*h.integral)
	u, saturated := clamp(raw, h.maxForce)

	if !saturated && dt > 0 {
		h.integral += dt * sign(s)
	}

	return Output{
		Control:   u,
		Switching: u,
		Saturated: saturated,
	}
}

func (h *Hybrid) adapt(s, dt float64) {
	if dt <= 0 {
		return
	}
	h.k += dt * (h.gamma*math.Abs(s) - h.sigma*h.k)
	if h.k < h.bounds.Min {
		h.k = h.bounds.Min
	} else if h.k > h.bounds.Max {
		h.k = h.bounds.Max
	}
}

// updateCosts advances the running cost of the active mode; the inactive
// mode keeps its last value until it gets a chance to prove itself.
func (h *Hybrid) updateCosts(s float64) {
	abs := math.Abs(s)
	if !h.costPrimed {
		h.costAdaptive = abs
		h.costST = abs
		h.costPrimed = true
		return
	}

	alpha := h.cfg.CostSmoothing
	if h.mode == ModeAdaptive {
		h.costAdaptive = (1-alpha)*h.costAdaptive + alpha*abs
	} else {
		h.costST = (1-alpha)*h.costST + alpha*abs
	}
}

// maybeSwitch runs the guarded transition: hysteresis band plus dwell-time
// floor. Switching into super-twisting restarts its integral so the new
// mode starts from a clean internal state.
func (h *Hybrid) maybeSwitch(t float64) {
	if t-h.modeEntered < h.cfg.DwellTime {
		return
	}

	current, candidate := h.costAdaptive, h.costST
	target := ModeSuperTwisting
	if h.mode == ModeSuperTwisting {
		current, candidate = h.costST, h.costAdaptive
		target = ModeAdaptive
	}

	if candidate < (1-h.cfg.Hysteresis)*current {
		if target == ModeSuperTwisting {
			h.integral = 0
		}
		h.mode = target
		h.modeEntered = t
	}
}

func (h *Hybrid) Last() Output { return h.last }

func (h *Hybrid) Reset() {
	h.k = h.bounds.Init
	h.mode = h.cfg.InitialMode
	h.modeEntered = 0
	h.costAdaptive = 0
	h.costST = 0
	h.costPrimed = false
	h.integral = 0
	h.prevT = 0
	h.first = true
	h.last = Output{}
}
