package metrics

import (
	"math"

	"github.com/san-kum/dipsim/internal/sim"
)

// Chattering measures the total variation of the control signal per second
// of simulated time: sum |u_k - u_{k-1}| / elapsed. A relay controller on a
// fine grid scores high; a boundary-layer or super-twisting law scores low.
type Chattering struct {
	name      string
	prevU     float64
	firstT    float64
	lastT     float64
	variation float64
	samples   int
}

func NewChattering() *Chattering {
	return &Chattering{name: "chattering"}
}

func (c *Chattering) Name() string { return c.name }

func (c *Chattering) Observe(x sim.State, u sim.Control, t float64) {
	val := 0.0
	if len(u) > 0 {
		val = u[0]
	}
	if c.samples == 0 {
		c.firstT = t
	} else {
		c.variation += math.Abs(val - c.prevU)
	}
	c.prevU = val
	c.lastT = t
	c.samples++
}

func (c *Chattering) Value() float64 {
	elapsed := c.lastT - c.firstT
	if elapsed <= 0 {
		return 0
	}
	return c.variation / elapsed
}

func (c *Chattering) Reset() {
	c.prevU = 0
	c.firstT = 0
	c.lastT = 0
	c.variation = 0
	c.samples = 0
}
