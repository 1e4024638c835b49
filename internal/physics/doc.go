// Package physics implements the rigid-body model of a double inverted
// pendulum on a cart.
//
// The model is kept in manipulator form
//
//	M(q)q'' + C(q,q')q' + G(q) = Bu - Fq'
//
// with [ComputeMatrices] producing the configuration-dependent matrices,
// [Guard] handling near-singular inertia matrices by Tikhonov
// regularization, and [DoublePendulum] combining both into a
// [sim.Dynamics] for any external integrator.
//
// All evaluation is pure: matrices are rebuilt from the current state on
// every call and parameters are immutable after construction, so a single
// model instance can serve concurrent simulation trials.
package physics
