package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/dipsim/internal/physics"
	"github.com/san-kum/dipsim/internal/sim"
	"github.com/san-kum/dipsim/internal/smc"
)

const (
	canvasWidth  = 64
	canvasHeight = 20
	historyCap   = 300
	frameRate    = 60
)

type TickMsg time.Time

// Model is the live view: the cart and both links on a rune canvas, the
// control diagnostics beside it, and a sliding-variable sparkline below.
type Model struct {
	dyn        *physics.DoublePendulum
	integrator sim.Integrator
	law        smc.ControlLaw

	state     sim.State
	initState sim.State
	u         sim.Control
	t, dt     float64

	running bool
	err     error

	surfaceHist []float64
	controlHist []float64
}

func NewModel(dyn *physics.DoublePendulum, ig sim.Integrator, law smc.ControlLaw, x0 sim.State, dt float64) Model {
	return Model{
		dyn:         dyn,
		integrator:  ig,
		law:         law,
		state:       x0.Clone(),
		initState:   x0.Clone(),
		u:           sim.Control{0},
		dt:          dt,
		running:     true,
		surfaceHist: make([]float64, 0, historyCap),
		controlHist: make([]float64, 0, historyCap),
	}
}

// Run starts the interactive view and blocks until the user quits.
func Run(dyn *physics.DoublePendulum, ig sim.Integrator, law smc.ControlLaw, x0 sim.State, dt float64) error {
	p := tea.NewProgram(NewModel(dyn, ig, law, x0, dt), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.reset()
		}
	case TickMsg:
		if m.running && m.err == nil {
			m.advance()
		}
		return m, tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m *Model) reset() {
	m.state = m.initState.Clone()
	m.u = sim.Control{0}
	m.t = 0
	m.err = nil
	m.law.Reset()
	m.surfaceHist = m.surfaceHist[:0]
	m.controlHist = m.controlHist[:0]
	m.running = true
}

// advance runs enough control ticks to keep the view near real time.
func (m *Model) advance() {
	steps := int(1 / (frameRate * m.dt))
	if steps < 1 {
		steps = 1
	}
	for i := 0; i < steps; i++ {
		u, err := m.law.Compute(m.state, m.t)
		if err != nil {
			m.err = err
			return
		}
		m.u = u

		next, err := m.integrator.Step(m.dyn, m.state, u, m.t, m.dt)
		if err != nil {
			m.err = err
			return
		}
		if !next.IsValid() {
			m.err = sim.ErrInvalidState
			return
		}
		m.state = next
		m.t += m.dt
	}

	out := m.law.Last()
	m.surfaceHist = append(m.surfaceHist, out.Surface)
	m.controlHist = append(m.controlHist, out.Control)
	if len(m.surfaceHist) > historyCap {
		m.surfaceHist = m.surfaceHist[1:]
		m.controlHist = m.controlHist[1:]
	}
}

func (m Model) View() string {
	canvas := m.drawPendulum()
	stats := m.drawStats()

	top := lipgloss.JoinHorizontal(lipgloss.Top,
		canvasStyle.Render(canvas),
		statsStyle.Render(stats),
	)

	graph := ""
	if len(m.surfaceHist) > 2 {
		graph = graphStyle.Render(asciigraph.Plot(m.surfaceHist,
			asciigraph.Height(6),
			asciigraph.Width(canvasWidth+30),
			asciigraph.Caption("sliding variable s")))
	}

	help := helpStyle.Render("space pause · r reset · q quit")
	return lipgloss.JoinVertical(lipgloss.Left, top, graph, help)
}

func (m Model) drawPendulum() string {
	canvas := make([][]rune, canvasHeight)
	for i := range canvas {
		canvas[i] = make([]rune, canvasWidth)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	set := func(x, y int, c rune) {
		if x >= 0 && x < canvasWidth && y >= 0 && y < canvasHeight {
			canvas[y][x] = c
		}
	}
	line := func(x1, y1, x2, y2 int, c rune) {
		dx, dy := abs(x2-x1), abs(y2-y1)
		sx, sy := 1, 1
		if x1 > x2 {
			sx = -1
		}
		if y1 > y2 {
			sy = -1
		}
		e := dx - dy
		for {
			set(x1, y1, c)
			if x1 == x2 && y1 == y2 {
				break
			}
			e2 := 2 * e
			if e2 > -dy {
				e -= dy
				x1 += sx
			}
			if e2 < dx {
				e += dx
				y1 += sy
			}
		}
	}

	gy := canvasHeight - 3
	for i := 0; i < canvasWidth; i++ {
		set(i, gy+1, '=')
	}

	// Pixel scale: the rail spans roughly +-2 m, link lengths in rows.
	p := m.dyn.Params()
	cx := canvasWidth/2 + int(m.state[0]*12)
	for dx := -2; dx <= 2; dx++ {
		set(cx+dx, gy, '#')
	}

	scale := 14.0 / (p.Length1 + p.Length2)
	j1x := cx + int(scale*p.Length1*math.Sin(m.state[1]))
	j1y := gy - 1 - int(scale*p.Length1*math.Cos(m.state[1]))
	j2x := j1x + int(scale*p.Length2*math.Sin(m.state[2]))
	j2y := j1y - int(scale*p.Length2*math.Cos(m.state[2]))

	line(cx, gy-1, j1x, j1y, '|')
	set(j1x, j1y, 'o')
	line(j1x, j1y, j2x, j2y, '|')
	set(j2x, j2y, 'O')

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}

func (m Model) drawStats() string {
	out := m.law.Last()

	row := func(label, value string) string {
		return labelStyle.Render(label) + valueStyle.Render(value)
	}

	lines := []string{
		headerStyle.Render("double pendulum"),
		row("t", fmt.Sprintf("%.2f s", m.t)),
		row("cart", fmt.Sprintf("%+.3f m", m.state[0])),
		row("theta1", fmt.Sprintf("%+.3f rad", m.state[1])),
		row("theta2", fmt.Sprintf("%+.3f rad", m.state[2])),
		row("u", fmt.Sprintf("%+.2f N", out.Control)),
		row("s", fmt.Sprintf("%+.4f", out.Surface)),
		row("u_eq", fmt.Sprintf("%+.2f N", out.Equivalent)),
	}

	if out.AdaptedGain != 0 {
		lines = append(lines, row("gain", fmt.Sprintf("%.2f", out.AdaptedGain)))
	}
	if out.Mode != "" {
		lines = append(lines, row("mode", string(out.Mode)))
	}

	flags := make([]string, 0, 2)
	if out.Saturated {
		flags = append(flags, alertStyle.Render("SATURATED"))
	}
	if out.Regularized {
		flags = append(flags, alertStyle.Render("REGULARIZED"))
	}
	if len(flags) > 0 {
		lines = append(lines, strings.Join(flags, " "))
	}

	if m.err != nil {
		lines = append(lines, alertStyle.Render("error: "+m.err.Error()))
	} else if !m.running {
		lines = append(lines, okStyle.Render("paused"))
	}

	return strings.Join(lines, "\n")
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
