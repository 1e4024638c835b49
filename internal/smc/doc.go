// Package smc implements sliding-mode control laws for the double inverted
// pendulum: classical, adaptive-gain, super-twisting and a hybrid that
// switches between the last two.
//
// All variants share the same skeleton: a sliding [Surface] collapses the
// pendulum error dynamics to a scalar s, a model-based equivalent-control
// term holds the system on s = 0, and a [Switching] term drives it there.
// Controllers are stateful only where the law demands it (adapted gain,
// super-twisting integral); that state belongs to one controller instance
// and is cleared by Reset between runs. Instances are not safe for
// concurrent use; parallel trials each build their own.
package smc
