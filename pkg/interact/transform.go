package interact

import (
	"math"

	"github.com/fraudy/flowgraph/pkg/graph"
)

// Point is a position in viewport space, in pixels (or terminal cells)
// from the top-left corner of the rendering surface.
type Point struct {
	X, Y float64
}

// Size is the extent of a viewport or overlay box.
type Size struct {
	W, H float64
}

// Empty reports whether the size has no area.
func (s Size) Empty() bool { return !(s.W > 0) || !(s.H > 0) }

// Transform converts between graph space and viewport space.
// Implementations reflect the renderer's current pan and zoom, so callers
// must ask for the transform again after the camera moves.
type Transform interface {
	GraphToViewport(p graph.Position) Point
	ViewportToGraph(p Point) graph.Position
}

// Zoom limits for Camera.
const (
	MinRatio = 1e-4
	MaxRatio = 1e4
)

// Camera is a pan/zoom view onto graph space.
//
// Center is the graph-space point shown at the middle of the viewport and
// Ratio is the number of graph units per viewport unit; a larger ratio
// means the graph appears smaller. The zero value is not usable; use
// NewCamera.
type Camera struct {
	Center   graph.Position
	Ratio    float64
	Viewport Size
}

// NewCamera returns a camera centered on the origin at ratio 1.
func NewCamera(viewport Size) *Camera {
	return &Camera{Ratio: 1, Viewport: viewport}
}

// GraphToViewport implements Transform.
func (c *Camera) GraphToViewport(p graph.Position) Point {
	return Point{
		X: (p.X-c.Center.X)/c.Ratio + c.Viewport.W/2,
		Y: (p.Y-c.Center.Y)/c.Ratio + c.Viewport.H/2,
	}
}

// ViewportToGraph implements Transform.
func (c *Camera) ViewportToGraph(p Point) graph.Position {
	return graph.Position{
		X: (p.X-c.Viewport.W/2)*c.Ratio + c.Center.X,
		Y: (p.Y-c.Viewport.H/2)*c.Ratio + c.Center.Y,
	}
}

// Pan moves the view by a viewport-space delta. Content follows the
// pointer: panning by (+10, 0) moves the graph 10 units to the right.
func (c *Camera) Pan(dx, dy float64) {
	c.Center.X -= dx * c.Ratio
	c.Center.Y -= dy * c.Ratio
}

// ZoomAt scales the view by factor while keeping the graph point under at
// fixed on screen. A factor above 1 zooms in.
func (c *Camera) ZoomAt(at Point, factor float64) {
	if !(factor > 0) || math.IsInf(factor, 0) {
		return
	}
	anchor := c.ViewportToGraph(at)
	c.Ratio = clamp(c.Ratio/factor, MinRatio, MaxRatio)
	c.Center.X = anchor.X - (at.X-c.Viewport.W/2)*c.Ratio
	c.Center.Y = anchor.Y - (at.Y-c.Viewport.H/2)*c.Ratio
}

// Fit centers the view on b and picks the ratio that shows all of it with
// padding viewport units to spare on every side.
func (c *Camera) Fit(b graph.Bounds, padding float64) {
	c.Center = b.Center()
	w := c.Viewport.W - 2*padding
	h := c.Viewport.H - 2*padding
	if w <= 0 || h <= 0 {
		w, h = c.Viewport.W, c.Viewport.H
	}
	ratio := 1.0
	if w > 0 && h > 0 {
		ratio = max(b.Width()/w, b.Height()/h)
	}
	if !(ratio > 0) {
		ratio = 1
	}
	c.Ratio = clamp(ratio, MinRatio, MaxRatio)
}

// Resize changes the viewport size, keeping the center fixed.
func (c *Camera) Resize(s Size) { c.Viewport = s }

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	return max(lo, min(v, hi))
}
