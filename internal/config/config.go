package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dipsim/internal/physics"
	"github.com/san-kum/dipsim/internal/sim"
)

const (
	DefaultDt       = 0.001
	DefaultDuration = 10.0
	DefaultMaxForce = 100.0
	DefaultTheta1   = 0.1
	DefaultTheta2   = 0.05
)

type Config struct {
	Physics    PhysicsConfig    `yaml:"physics"`
	Controller ControllerConfig `yaml:"controller"`
	Sim        SimConfig        `yaml:"sim"`
	InitState  InitStateConfig  `yaml:"init_state"`
}

type PhysicsConfig struct {
	CartMass       float64 `yaml:"cart_mass"`
	Mass1          float64 `yaml:"mass1"`
	Mass2          float64 `yaml:"mass2"`
	Length1        float64 `yaml:"length1"`
	Length2        float64 `yaml:"length2"`
	Com1           float64 `yaml:"com1"`
	Com2           float64 `yaml:"com2"`
	Inertia1       float64 `yaml:"inertia1"`
	Inertia2       float64 `yaml:"inertia2"`
	Gravity        float64 `yaml:"gravity"`
	CartFriction   float64 `yaml:"cart_friction"`
	Joint1Friction float64 `yaml:"joint1_friction"`
	Joint2Friction float64 `yaml:"joint2_friction"`
	Regularization float64 `yaml:"regularization"`
	DetThreshold   float64 `yaml:"det_threshold"`
	CondThreshold  float64 `yaml:"cond_threshold"`

	// Effect toggles for reduced models.
	Coriolis    *bool `yaml:"coriolis,omitempty"`
	Centrifugal *bool `yaml:"centrifugal,omitempty"`
	Gyroscopic  *bool `yaml:"gyroscopic,omitempty"`
}

type ControllerConfig struct {
	Type          string    `yaml:"type"`
	Gains         []float64 `yaml:"gains"`
	MaxForce      float64   `yaml:"max_force"`
	Switching     string    `yaml:"switching"`
	BoundaryLayer float64   `yaml:"boundary_layer"`

	// Adaptive and hybrid only.
	GainMin  float64 `yaml:"gain_min"`
	GainMax  float64 `yaml:"gain_max"`
	GainInit float64 `yaml:"gain_init"`

	// Hybrid only.
	Hysteresis    float64 `yaml:"hysteresis"`
	DwellTime     float64 `yaml:"dwell_time"`
	InitialMode   string  `yaml:"initial_mode"`
	CostSmoothing float64 `yaml:"cost_smoothing"`
	Scale1        float64 `yaml:"scale1"`
	Scale2        float64 `yaml:"scale2"`
}

type SimConfig struct {
	Integrator string  `yaml:"integrator"`
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	Seed       int64   `yaml:"seed"`
	Adaptive   bool    `yaml:"adaptive"`
	Tolerance  float64 `yaml:"tolerance"`
}

type InitStateConfig struct {
	X      float64 `yaml:"x"`
	Theta1 float64 `yaml:"theta1"`
	Theta2 float64 `yaml:"theta2"`
	XDot   float64 `yaml:"xdot"`
	Omega1 float64 `yaml:"omega1"`
	Omega2 float64 `yaml:"omega2"`
}

func DefaultConfig() *Config {
	p := physics.DefaultParams()
	return &Config{
		Physics: PhysicsConfig{
			CartMass:       p.CartMass,
			Mass1:          p.Mass1,
			Mass2:          p.Mass2,
			Length1:        p.Length1,
			Length2:        p.Length2,
			Com1:           p.Com1,
			Com2:           p.Com2,
			Inertia1:       p.Inertia1,
			Inertia2:       p.Inertia2,
			Gravity:        p.Gravity,
			CartFriction:   p.CartFriction,
			Joint1Friction: p.Joint1Friction,
			Joint2Friction: p.Joint2Friction,
			Regularization: p.Regularization,
			DetThreshold:   p.DetThreshold,
			CondThreshold:  p.CondThreshold,
		},
		Controller: ControllerConfig{
			Type:          "classical",
			Gains:         []float64{10, 8, 5, 4, 20, 2},
			MaxForce:      DefaultMaxForce,
			Switching:     "saturation",
			BoundaryLayer: 0.05,
			GainMin:       0.1,
			GainMax:       100,
			GainInit:      10,
			Hysteresis:    0.1,
			DwellTime:     0.5,
			InitialMode:   "adaptive",
			CostSmoothing: 0.05,
			Scale1:        1.5,
			Scale2:        1.1,
		},
		Sim: SimConfig{
			Integrator: "rk4",
			Dt:         DefaultDt,
			Duration:   DefaultDuration,
			Tolerance:  1e-6,
		},
		InitState: InitStateConfig{
			Theta1: DefaultTheta1,
			Theta2: DefaultTheta2,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Params converts the physics section into a validated parameter set.
func (c *Config) Params() (physics.Params, error) {
	return physics.NewParams(physics.Params{
		CartMass:       c.Physics.CartMass,
		Mass1:          c.Physics.Mass1,
		Mass2:          c.Physics.Mass2,
		Length1:        c.Physics.Length1,
		Length2:        c.Physics.Length2,
		Com1:           c.Physics.Com1,
		Com2:           c.Physics.Com2,
		Inertia1:       c.Physics.Inertia1,
		Inertia2:       c.Physics.Inertia2,
		Gravity:        c.Physics.Gravity,
		CartFriction:   c.Physics.CartFriction,
		Joint1Friction: c.Physics.Joint1Friction,
		Joint2Friction: c.Physics.Joint2Friction,
		Regularization: c.Physics.Regularization,
		DetThreshold:   c.Physics.DetThreshold,
		CondThreshold:  c.Physics.CondThreshold,
	})
}

// Effects returns the configured effect toggles; unset toggles default on.
func (c *Config) Effects() physics.Effects {
	fx := physics.AllEffects()
	if c.Physics.Coriolis != nil {
		fx.Coriolis = *c.Physics.Coriolis
	}
	if c.Physics.Centrifugal != nil {
		fx.Centrifugal = *c.Physics.Centrifugal
	}
	if c.Physics.Gyroscopic != nil {
		fx.Gyroscopic = *c.Physics.Gyroscopic
	}
	return fx
}

// GetInitState builds the six-component initial state vector.
func (c *Config) GetInitState() sim.State {
	return sim.State{
		c.InitState.X,
		c.InitState.Theta1,
		c.InitState.Theta2,
		c.InitState.XDot,
		c.InitState.Omega1,
		c.InitState.Omega2,
	}
}

// SimOptions maps the sim section onto the simulator configuration.
func (c *Config) SimOptions() sim.Config {
	sc := sim.DefaultConfig()
	if c.Sim.Dt > 0 {
		sc.Dt = c.Sim.Dt
	}
	if c.Sim.Duration > 0 {
		sc.Duration = c.Sim.Duration
	}
	if c.Sim.Tolerance > 0 {
		sc.Tolerance = c.Sim.Tolerance
	}
	sc.Seed = c.Sim.Seed
	sc.Adaptive = c.Sim.Adaptive
	return sc
}
