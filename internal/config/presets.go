package config

// Presets are named, ready-to-run scenarios. Each returns a complete config,
// so the CLI can start from one and override single fields with flags.
var Presets = map[string]*Config{
	"stabilize": stabilize(),
	"perturbed": perturbed(),
	"singular":  singular(),
	"chatter":   chatter(),
	"smooth":    smooth(),
	"hybrid":    hybrid(),
}

// stabilize: classical SMC recovers a small tilt.
func stabilize() *Config {
	return DefaultConfig()
}

// perturbed: adaptive SMC against a large initial tilt with spin; the
// switching gain has to grow online.
func perturbed() *Config {
	cfg := DefaultConfig()
	cfg.Controller.Type = "adaptive"
	cfg.Controller.Gains = []float64{10, 8, 5, 4, 50, 0.1}
	cfg.Controller.GainInit = 5
	cfg.InitState = InitStateConfig{Theta1: 0.3, Theta2: -0.2, Omega1: 0.5}
	return cfg
}

// singular: the first link starts near horizontal with a tight determinant
// threshold, so the inertia inversion has to regularize.
func singular() *Config {
	cfg := DefaultConfig()
	cfg.Physics.DetThreshold = 1e-3
	cfg.InitState = InitStateConfig{Theta1: 1.5, Theta2: 0.2}
	cfg.Controller.Gains = []float64{10, 8, 5, 4, 30, 2}
	cfg.Sim.Duration = 5
	return cfg
}

// chatter: pure relay switching, for measuring the chattering index the
// boundary-layer variants avoid.
func chatter() *Config {
	cfg := DefaultConfig()
	cfg.Controller.Switching = "sign"
	cfg.Controller.BoundaryLayer = 0
	cfg.Sim.Duration = 5
	return cfg
}

// smooth: super-twisting, continuous control with finite-time reaching.
func smooth() *Config {
	cfg := DefaultConfig()
	cfg.Controller.Type = "super_twisting"
	cfg.Controller.Gains = []float64{20, 30, 10, 8, 5, 4}
	return cfg
}

// hybrid: mode machine switching between the adaptive and super-twisting
// structures.
func hybrid() *Config {
	cfg := DefaultConfig()
	cfg.Controller.Type = "hybrid"
	cfg.Controller.Gains = []float64{10, 8, 5, 4, 50, 0.1}
	cfg.Controller.GainInit = 5
	cfg.InitState = InitStateConfig{Theta1: 0.2, Theta2: -0.1}
	return cfg
}

func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}
