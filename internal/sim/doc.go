// Package sim provides the core simulation primitives shared by the
// pendulum dynamics and the sliding-mode controllers:
//
//   - [State]: system state vector
//   - [Dynamics]: ODE right-hand side (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepping scheme
//   - [Controller]: per-tick control law
//   - [Simulator]: orchestrates one run
//   - [Ensemble]: runs independent trials in parallel
//
// # Thread Safety
//
// Simulator instances are NOT thread-safe. For parallel trials use
// [Ensemble], which builds a fresh controller per trial so adaptation
// state is never shared across goroutines.
package sim
