package smc

import (
	"fmt"
	"math"

	"github.com/san-kum/dipsim/internal/sim"
)

// Method selects the shape of the switching function.
type Method string

const (
	// MethodSign is the discontinuous relay: maximal robustness, maximal
	// chattering.
	MethodSign Method = "sign"
	// MethodSaturation is linear inside the boundary layer, +-1 outside.
	MethodSaturation Method = "saturation"
	// MethodTanh is smooth everywhere with tunable steepness.
	MethodTanh Method = "tanh"
)

// MinBoundaryLayer is the floor applied to the boundary-layer width so that
// s/eps never divides by zero.
const MinBoundaryLayer = 1e-6

// Switching maps the sliding variable to the switching control component
// -K*shape(s/eps).
type Switching struct {
	Method        Method
	BoundaryLayer float64
}

func NewSwitching(method Method, boundaryLayer float64) (Switching, error) {
	switch method {
	case MethodSign, MethodSaturation, MethodTanh:
	default:
		return Switching{}, fmt.Errorf("%w: unknown switching method %q", sim.ErrInvalidParameter, method)
	}
	if boundaryLayer < 0 {
		return Switching{}, fmt.Errorf("%w: boundary layer must be non-negative, got %g", sim.ErrInvalidParameter, boundaryLayer)
	}
	return Switching{Method: method, BoundaryLayer: boundaryLayer}, nil
}

// Compute returns u_sw = -gain * shape(s/eps). Inside the boundary layer the
// saturation and tanh shapes are linear/smooth in s/eps; outside they
// saturate to +-gain.
func (sw Switching) Compute(s, gain float64) float64 {
	eps := math.Max(sw.BoundaryLayer, MinBoundaryLayer)

	switch sw.Method {
	case MethodSaturation:
		r := s / eps
		if r > 1 {
			r = 1
		} else if r < -1 {
			r = -1
		}
		return -gain * r
	case MethodTanh:
		return -gain * math.Tanh(s/eps)
	default: // MethodSign
		return -gain * sign(s)
	}
}

func sign(s float64) float64 {
	switch {
	case s > 0:
		return 1
	case s < 0:
		return -1
	default:
		return 0
	}
}
