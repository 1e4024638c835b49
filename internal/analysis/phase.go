package analysis

import (
	"strings"

	"github.com/san-kum/dipsim/internal/sim"
)

// Point is one sample of a 2D phase projection.
type Point struct {
	X, Y float64
}

// PhasePortrait is a 2D projection of a recorded trajectory.
type PhasePortrait struct {
	XIndex, YIndex int
	Points         []Point
}

// PhaseFromResult projects a recorded run onto two state components, e.g.
// (theta1, omega1) with indices 1 and 4.
func PhaseFromResult(result *sim.Result, xIdx, yIdx int) *PhasePortrait {
	if result == nil || len(result.States) == 0 {
		return nil
	}
	if xIdx >= len(result.States[0]) || yIdx >= len(result.States[0]) {
		return nil
	}

	portrait := &PhasePortrait{
		XIndex: xIdx,
		YIndex: yIdx,
		Points: make([]Point, 0, len(result.States)),
	}
	for _, x := range result.States {
		portrait.Points = append(portrait.Points, Point{X: x[xIdx], Y: x[yIdx]})
	}
	return portrait
}

// ASCII renders the portrait as a dot plot with axes through the origin.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		if pt.X < minX {
			minX = pt.X
		}
		if pt.X > maxX {
			maxX = pt.X
		}
		if pt.Y < minY {
			minY = pt.Y
		}
		if pt.Y > maxY {
			maxY = pt.Y
		}
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	for _, pt := range p.Points {
		col := int((pt.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if col >= 0 && col < width && canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if row >= 0 && row < height && canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
