package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/dipsim/internal/analysis"
	"github.com/san-kum/dipsim/internal/config"
	"github.com/san-kum/dipsim/internal/experiment"
	"github.com/san-kum/dipsim/internal/physics"
	"github.com/san-kum/dipsim/internal/sim"
	"github.com/san-kum/dipsim/internal/store"
	"github.com/san-kum/dipsim/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string

	dt         float64
	duration   float64
	seed       int64
	integrator string
	controller string

	x0     float64
	theta1 float64
	theta2 float64
	xdot   float64
	omega1 float64
	omega2 float64

	gains         []float64
	maxForce      float64
	switching     string
	boundaryLayer float64

	xAxis int
	yAxis int

	surfaceTol float64

	sweepTrials int
	sweepMin    float64
	sweepMax    float64
)

// defaultGains per controller type; the gain vector layout differs between
// the first-order and second-order laws.
var defaultGains = map[string][]float64{
	"classical":      {10, 8, 5, 4, 20, 2},
	"adaptive":       {10, 8, 5, 4, 50, 0.1},
	"super_twisting": {20, 30, 10, 8, 5, 4},
	"hybrid":         {10, 8, 5, 4, 50, 0.1},
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "dipsim",
		Short: "double inverted pendulum sliding-mode control lab",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".dipsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a stabilization experiment",
		RunE:  runSimulation,
	}
	addScenarioFlags(runCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run with a live terminal view",
		RunE:  runLive,
	}
	addScenarioFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 1, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 4, "state index for y-axis")

	compareCmd := &cobra.Command{
		Use:   "compare [controller1] [controller2] ...",
		Short: "compare control laws on the same scenario",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareControllers,
	}
	addScenarioFlags(compareCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list preset scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, p := range config.ListPresets() {
				cfg := config.GetPreset(p)
				fmt.Printf("  %-12s %s, %s switching\n", p, cfg.Controller.Type, cfg.Controller.Switching)
			}
			return nil
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep the boundary layer and report the chattering trade-off",
		RunE:  sweepBoundaryLayer,
	}
	addScenarioFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&sweepTrials, "trials", 8, "number of boundary layers to try")
	sweepCmd.Flags().Float64Var(&sweepMin, "layer-min", 0.005, "smallest boundary layer")
	sweepCmd.Flags().Float64Var(&sweepMax, "layer-max", 0.2, "largest boundary layer")

	chaosCmd := &cobra.Command{
		Use:   "chaos",
		Short: "largest Lyapunov exponent of the unforced plant",
		RunE:  chaosAnalysis,
	}
	chaosCmd.Flags().Float64Var(&dt, "dt", 0.001, "timestep")
	chaosCmd.Flags().Float64Var(&duration, "time", 10.0, "duration")
	chaosCmd.Flags().Float64Var(&theta1, "theta1", 0.1, "initial first link angle")
	chaosCmd.Flags().Float64Var(&theta2, "theta2", 0.05, "initial second link angle")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export a stored run to CSV on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export a stored run to JSON on stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, phaseCmd, compareCmd, sweepCmd, presetsCmd, chaosCmd, exportCSVCmd, exportJSONCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addScenarioFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "preset scenario name")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (euler, rk4, rk45)")
	cmd.Flags().StringVar(&controller, "controller", "classical", "control law")
	cmd.Flags().Float64Var(&x0, "x", 0.0, "initial cart position")
	cmd.Flags().Float64Var(&theta1, "theta1", config.DefaultTheta1, "initial first link angle")
	cmd.Flags().Float64Var(&theta2, "theta2", config.DefaultTheta2, "initial second link angle")
	cmd.Flags().Float64Var(&xdot, "xdot", 0.0, "initial cart velocity")
	cmd.Flags().Float64Var(&omega1, "omega1", 0.0, "initial first link rate")
	cmd.Flags().Float64Var(&omega2, "omega2", 0.0, "initial second link rate")
	cmd.Flags().Float64SliceVar(&gains, "gains", nil, "controller gain vector (6 values)")
	cmd.Flags().Float64Var(&maxForce, "max-force", config.DefaultMaxForce, "actuator force limit")
	cmd.Flags().StringVar(&switching, "switching", "saturation", "switching method (sign, saturation, tanh)")
	cmd.Flags().Float64Var(&boundaryLayer, "boundary-layer", 0.05, "boundary layer width")
	cmd.Flags().Float64Var(&surfaceTol, "surface-tol", 0.01, "surface convergence band")
}

// buildConfig resolves preset, config file and flags in that order; flags
// win when explicitly set.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		c := *p
		cfg = &c
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if cmd.Flags().Changed("time") {
		cfg.Sim.Duration = duration
	}
	if cmd.Flags().Changed("seed") {
		cfg.Sim.Seed = seed
	}
	if cmd.Flags().Changed("integrator") {
		cfg.Sim.Integrator = integrator
	}
	if cmd.Flags().Changed("controller") {
		cfg.Controller.Type = controller
		if !cmd.Flags().Changed("gains") {
			if g, ok := defaultGains[controller]; ok {
				cfg.Controller.Gains = g
			}
		}
	}
	if cmd.Flags().Changed("gains") {
		cfg.Controller.Gains = gains
	}
	if cmd.Flags().Changed("max-force") {
		cfg.Controller.MaxForce = maxForce
	}
	if cmd.Flags().Changed("switching") {
		cfg.Controller.Switching = switching
	}
	if cmd.Flags().Changed("boundary-layer") {
		cfg.Controller.BoundaryLayer = boundaryLayer
	}
	if cmd.Flags().Changed("x") {
		cfg.InitState.X = x0
	}
	if cmd.Flags().Changed("theta1") {
		cfg.InitState.Theta1 = theta1
	}
	if cmd.Flags().Changed("theta2") {
		cfg.InitState.Theta2 = theta2
	}
	if cmd.Flags().Changed("xdot") {
		cfg.InitState.XDot = xdot
	}
	if cmd.Flags().Changed("omega1") {
		cfg.InitState.Omega1 = omega1
	}
	if cmd.Flags().Changed("omega2") {
		cfg.InitState.Omega2 = omega2
	}

	return cfg, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	st := store.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg)
	if err := exp.Setup(experiment.NewRegistry()); err != nil {
		return err
	}

	fmt.Printf("running %s controller...\n", cfg.Controller.Type)
	start := time.Now()

	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(cfg.Controller.Type, cfg.Sim.Integrator, cfg.Sim.Dt, cfg.Sim.Duration, cfg.Sim.Seed, result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	for _, e := range result.Errors {
		fmt.Printf("warning: %v\n", e)
	}

	fmt.Println("\nmetrics:")
	for name, val := range result.Metrics {
		fmt.Printf("  %s: %.6f\n", name, val)
	}

	report := analysis.AnalyzeReaching(result.Times, exp.Trace().Outputs, surfaceTol)
	fmt.Println("\nreaching:")
	fmt.Printf("  |s| initial: %.4f  final: %.4f  peak: %.4f\n", report.Initial, report.Final, report.Peak)
	if report.Converged {
		fmt.Printf("  converged at t=%.3fs, on surface %.1f%% of the run\n",
			report.ConvergenceTime, 100*report.TimeOnSurface)
	} else {
		fmt.Println("  did not converge to the surface band")
	}
	if report.Saturated > 0 {
		fmt.Printf("  saturated ticks: %d\n", report.Saturated)
	}
	if report.Regularized > 0 {
		fmt.Printf("  regularized inversions: %d\n", report.Regularized)
	}

	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg)
	reg := experiment.NewRegistry()
	if err := exp.Setup(reg); err != nil {
		return err
	}

	ig, err := reg.GetIntegrator(cfg.Sim.Integrator)
	if err != nil {
		return err
	}

	return tui.Run(exp.Dynamics(), ig, exp.Law(), cfg.GetInitState(), cfg.Sim.Dt)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCTRL\tTIME\tDURATION\tDT\tINTEG")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%s\n",
			run.ID,
			run.Controller,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
		)
	}
	return w.Flush()
}

var plotCaptions = []string{
	"cart position x",
	"theta1 (first link angle)",
	"theta2 (second link angle)",
	"cart velocity",
	"omega1 (first link rate)",
	"omega2 (second link rate)",
	"control force u",
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	states, _, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("controller: %s\n", meta.Controller)
	fmt.Printf("samples: %d\n\n", len(states))

	numVars := len(states[0])
	for varIdx := 0; varIdx < numVars && varIdx < len(plotCaptions); varIdx++ {
		data := make([]float64, len(states))
		for i := range states {
			if varIdx < len(states[i]) {
				data[i] = states[i][varIdx]
			}
		}

		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(plotCaptions[varIdx]),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	states, times, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to plot")
	}

	portrait := analysis.PhaseFromResult(storedResult(meta, states, times), xAxis, yAxis)
	if portrait == nil {
		return fmt.Errorf("state dimension too small for selected axes")
	}

	fmt.Printf("phase plot: %s (x%d vs x%d)\n\n", meta.ID, xAxis, yAxis)
	fmt.Println(portrait.ASCII(70, 20))
	return nil
}

func compareControllers(cmd *cobra.Command, args []string) error {
	base, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	reg := experiment.NewRegistry()

	fmt.Printf("comparing control laws (dt=%.4f, duration=%.1fs, theta1=%.2f, theta2=%.2f)\n\n",
		base.Sim.Dt, base.Sim.Duration, base.InitState.Theta1, base.InitState.Theta2)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CONTROLLER\tFINAL_|S|\tSTABILITY\tEFFORT\tCHATTERING\tTIME_MS")

	for _, name := range args {
		cfg := *base
		cfg.Controller.Type = name
		if g, ok := defaultGains[name]; ok && !cmd.Flags().Changed("gains") {
			cfg.Controller.Gains = g
		}

		exp := experiment.New(&cfg)
		if err := exp.Setup(reg); err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}

		report := analysis.AnalyzeReaching(result.Times, exp.Trace().Outputs, surfaceTol)
		fmt.Fprintf(w, "%s\t%.5f\t%.3f\t%.2f\t%.1f\t%.1f\n",
			name,
			report.Final,
			result.Metrics["stability"],
			result.Metrics["control_effort"],
			result.Metrics["chattering"],
			float64(elapsed.Microseconds())/1000,
		)
	}

	return w.Flush()
}

// sweepBoundaryLayer runs the same scenario with a range of boundary layer
// widths in parallel and tabulates the chattering/accuracy trade-off.
func sweepBoundaryLayer(cmd *cobra.Command, args []string) error {
	base, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if sweepTrials < 2 || sweepMin <= 0 || sweepMax <= sweepMin {
		return fmt.Errorf("need at least 2 trials and 0 < layer-min < layer-max")
	}

	reg := experiment.NewRegistry()
	layers := make([]float64, sweepTrials)
	step := (sweepMax - sweepMin) / float64(sweepTrials-1)
	for i := range layers {
		layers[i] = sweepMin + float64(i)*step
	}

	factory := func(trial int) (sim.Dynamics, sim.Integrator, sim.Controller, []sim.Metric, error) {
		cfg := *base
		cfg.Controller.BoundaryLayer = layers[trial]

		params, err := cfg.Params()
		if err != nil {
			return nil, nil, nil, nil, err
		}
		dyn := physics.NewDoublePendulumWithEffects(params, cfg.Effects())

		ig, err := reg.GetIntegrator(cfg.Sim.Integrator)
		if err != nil {
			return nil, nil, nil, nil, err
		}

		law, err := reg.GetController(cfg.Controller.Type, dyn, cfg.Controller)
		if err != nil {
			return nil, nil, nil, nil, err
		}

		return dyn, ig, law, experiment.DefaultMetrics(dyn, law), nil
	}

	ens := sim.NewEnsemble(factory, sweepTrials, base.Sim.Seed)
	results, err := ens.Run(context.Background(), base.GetInitState(), base.SimOptions())
	if err != nil {
		return err
	}

	fmt.Printf("boundary layer sweep, %s controller, %d trials\n\n", base.Controller.Type, sweepTrials)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LAYER\tSTABILITY\tEFFORT\tCHATTERING")
	for i, r := range results {
		fmt.Fprintf(w, "%.4f\t%.3f\t%.2f\t%.1f\n",
			layers[i],
			r.Metrics["stability"],
			r.Metrics["control_effort"],
			r.Metrics["chattering"],
		)
	}
	return w.Flush()
}

func chaosAnalysis(cmd *cobra.Command, args []string) error {
	dyn := physics.NewDoublePendulum(physics.DefaultParams())
	reg := experiment.NewRegistry()
	ig, err := reg.GetIntegrator("rk4")
	if err != nil {
		return err
	}

	start := sim.State{0, theta1, theta2, 0, 0, 0}
	fmt.Printf("estimating largest Lyapunov exponent (unforced, %.1fs)...\n", duration)

	lam, err := analysis.LyapunovExponent(dyn, ig, start, dt, duration, 1e-8)
	if err != nil {
		return err
	}

	fmt.Printf("lambda = %.4f /s\n", lam)
	if lam > 0 {
		fmt.Printf("positive: nearby trajectories diverge (doubling time %.2fs)\n", 0.6931/lam)
	} else {
		fmt.Println("non-positive: trajectories do not diverge from this state")
	}
	return nil
}

// storedResult rebuilds a Result from the CSV columns; anything past the six
// pendulum state components is the recorded control input.
func storedResult(meta *store.RunMetadata, states [][]float64, times []float64) *sim.Result {
	const stateDim = 6
	result := &sim.Result{
		States:  make([]sim.State, len(states)),
		Times:   times,
		Metrics: meta.Metrics,
	}
	for i, s := range states {
		if len(s) > stateDim {
			result.States[i] = s[:stateDim]
			result.Controls = append(result.Controls, sim.Control(s[stateDim:]))
		} else {
			result.States[i] = s
		}
	}
	return result
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	states, times, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}

	return store.WriteCSV(os.Stdout, storedResult(meta, states, times), nil)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := store.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}

	states, times, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}

	return store.ExportJSONStdout(meta.Controller, meta.Integrator, meta.Dt, meta.Duration, storedResult(meta, states, times))
}
