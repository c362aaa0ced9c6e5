package term

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// cell is one terminal character with its colors.
type cell struct {
	r    rune
	fg   string
	bg   string
	bold bool
}

// canvas is a fixed-size grid of cells painted back to front.
type canvas struct {
	w, h  int
	cells []cell
}

func newCanvas(w, h int, bg string) *canvas {
	c := &canvas{w: w, h: h, cells: make([]cell, w*h)}
	for i := range c.cells {
		c.cells[i] = cell{r: ' ', bg: bg}
	}
	return c
}

func (c *canvas) in(x, y int) bool { return x >= 0 && y >= 0 && x < c.w && y < c.h }

func (c *canvas) at(x, y int) *cell {
	if !c.in(x, y) {
		return nil
	}
	return &c.cells[y*c.w+x]
}

// set paints r at (x, y), keeping the cell background. Out-of-range
// coordinates are ignored.
func (c *canvas) set(x, y int, r rune, fg string, bold bool) {
	if p := c.at(x, y); p != nil {
		p.r, p.fg, p.bold = r, fg, bold
	}
}

// text writes s starting at (x, y), clipped to the canvas.
func (c *canvas) text(x, y int, s, fg string, bold bool) {
	for _, r := range s {
		c.set(x, y, r, fg, bold)
		x++
	}
}

// fill paints a rectangle with a background color and blanks.
func (c *canvas) fill(x, y, w, h int, bg string) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			if p := c.at(i, j); p != nil {
				*p = cell{r: ' ', bg: bg}
			}
		}
	}
}

// line draws a Bresenham line from (x0, y0) to (x1, y1), excluding both
// endpoints, and returns the last cell drawn.
func (c *canvas) line(x0, y0, x1, y1 int, r rune, fg string) (int, int, bool) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	x, y := x0, y0
	lastX, lastY, drawn := 0, 0, false
	for {
		if x == x1 && y == y1 {
			break
		}
		if (x != x0 || y != y0) && c.in(x, y) {
			c.set(x, y, r, fg, false)
			lastX, lastY, drawn = x, y, true
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x += sx
		}
		if e2 <= dx {
			e += dx
			y += sy
		}
	}
	return lastX, lastY, drawn
}

// String renders the canvas with one lipgloss style per run of equally
// styled cells.
func (c *canvas) String() string {
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		row := c.cells[y*c.w : (y+1)*c.w]
		start := 0
		for i := 1; i <= len(row); i++ {
			if i < len(row) && sameStyle(row[i], row[start]) {
				continue
			}
			var run strings.Builder
			for _, cl := range row[start:i] {
				run.WriteRune(cl.r)
			}
			b.WriteString(styleFor(row[start]).Render(run.String()))
			start = i
		}
		if y < c.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// Plain renders the canvas without any styling.
func (c *canvas) Plain() string {
	var b strings.Builder
	for y := 0; y < c.h; y++ {
		for _, cl := range c.cells[y*c.w : (y+1)*c.w] {
			b.WriteRune(cl.r)
		}
		if y < c.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func sameStyle(a, b cell) bool { return a.fg == b.fg && a.bg == b.bg && a.bold == b.bold }

func styleFor(cl cell) lipgloss.Style {
	s := lipgloss.NewStyle().Bold(cl.bold)
	if cl.fg != "" {
		s = s.Foreground(lipgloss.Color(cl.fg))
	}
	if cl.bg != "" {
		s = s.Background(lipgloss.Color(cl.bg))
	}
	return s
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
