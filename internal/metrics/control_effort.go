package metrics

import (
	"math"

	"github.com/san-kum/dipsim/internal/sim"
)

// ControlEffort is the mean absolute actuator force over a run. It is the
// companion to Chattering: effort measures how much force the law spends,
// chattering how violently that force changes. A saturating law shows up
// here as a mean pinned near MaxForce.
type ControlEffort struct {
	name     string
	totalAbs float64
	peak     float64
	ticks    int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{name: "control_effort"}
}

func (c *ControlEffort) Name() string { return c.name }

func (c *ControlEffort) Observe(x sim.State, u sim.Control, t float64) {
	for _, f := range u {
		a := math.Abs(f)
		c.totalAbs += a
		if a > c.peak {
			c.peak = a
		}
	}
	c.ticks++
}

func (c *ControlEffort) Value() float64 {
	if c.ticks == 0 {
		return 0
	}
	return c.totalAbs / float64(c.ticks)
}

// Peak is the largest absolute force seen over the run.
func (c *ControlEffort) Peak() float64 { return c.peak }

func (c *ControlEffort) Reset() {
	c.totalAbs = 0
	c.peak = 0
	c.ticks = 0
}
