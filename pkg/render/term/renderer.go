package term

import (
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/interact"
	"github.com/fraudy/flowgraph/pkg/theme"
)

var (
	// ErrNoSurface is returned when the terminal has no drawable area.
	ErrNoSurface = errors.New("no rendering surface")

	// ErrNoGraph is returned by New for a nil graph.
	ErrNoGraph = errors.New("no graph to render")

	// ErrDestroyed is returned by Resize after Destroy.
	ErrDestroyed = errors.New("renderer destroyed")
)

// Overlay geometry in terminal cells.
const (
	OverlayW      = 40.0
	OverlayH      = 8.0
	OverlayOffset = 2.0
	OverlayMargin = 1.0
	fitPadding    = 3.0
	nodeHitCells  = 1.0
	edgeHitCells  = 0.6
)

// ControllerOptions returns the interact options that size the tooltip
// overlay for a terminal grid instead of pixels.
func ControllerOptions() []interact.Option {
	return []interact.Option{
		interact.WithOverlayBox(interact.Size{W: OverlayW, H: OverlayH}),
		interact.WithOverlayOffset(OverlayOffset, OverlayMargin),
	}
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithPalette selects the palette used to resolve color tokens.
func WithPalette(p theme.Palette) Option { return func(r *Renderer) { r.palette = p } }

// WithEdgeLabels toggles amount labels on edges.
func WithEdgeLabels(on bool) Option { return func(r *Renderer) { r.edgeLabels = on } }

// Renderer draws a positioned graph onto a terminal grid and turns pointer
// positions into hover events. It implements [interact.Renderer].
//
// A Renderer is driven from a single goroutine (the terminal UI loop).
type Renderer struct {
	id         uuid.UUID
	graph      *graph.Graph
	camera     *interact.Camera
	palette    theme.Palette
	edgeLabels bool

	handlers map[interact.EventKind]map[int]interact.Handler
	nextSub  int

	hoverKind interact.EventKind // EnterNode or EnterEdge while hovering
	hoverID   string
	destroyed bool
}

// New mounts g on a terminal surface of the given size, in cells, and fits
// the camera to the graph. It returns ErrNoSurface for an empty size.
func New(g *graph.Graph, size interact.Size, opts ...Option) (*Renderer, error) {
	if g == nil {
		return nil, ErrNoGraph
	}
	if size.Empty() {
		return nil, ErrNoSurface
	}
	r := &Renderer{
		id:         uuid.New(),
		graph:      g,
		camera:     interact.NewCamera(size),
		palette:    theme.PaletteFor(theme.DefaultMode),
		edgeLabels: true,
		handlers:   make(map[interact.EventKind]map[int]interact.Handler),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Fit()
	return r, nil
}

// ID identifies this renderer instance.
func (r *Renderer) ID() uuid.UUID { return r.id }

// Camera returns the renderer's camera for panning and zooming.
func (r *Renderer) Camera() *interact.Camera { return r.camera }

// Transform implements interact.Renderer.
func (r *Renderer) Transform() interact.Transform { return r.camera }

// On implements interact.Renderer.
func (r *Renderer) On(kind interact.EventKind, h interact.Handler) func() {
	if r.destroyed {
		return func() {}
	}
	if r.handlers[kind] == nil {
		r.handlers[kind] = make(map[int]interact.Handler)
	}
	id := r.nextSub
	r.nextSub++
	r.handlers[kind][id] = h
	return func() { delete(r.handlers[kind], id) }
}

// Destroy implements interact.Renderer. It drops every subscription and
// the graph reference. Calling it again is a no-op.
func (r *Renderer) Destroy() error {
	if r.destroyed {
		return nil
	}
	r.destroyed = true
	r.handlers = nil
	r.graph = nil
	r.hoverID = ""
	return nil
}

// Destroyed reports whether Destroy has been called.
func (r *Renderer) Destroyed() bool { return r.destroyed }

// Fit centers the camera on the graph.
func (r *Renderer) Fit() {
	if r.graph == nil {
		return
	}
	if b, ok := r.graph.Bounds(); ok {
		r.camera.Fit(b, fitPadding)
	}
}

// Resize changes the surface size. An empty size returns ErrNoSurface.
func (r *Renderer) Resize(size interact.Size) error {
	if r.destroyed {
		return ErrDestroyed
	}
	if size.Empty() {
		return ErrNoSurface
	}
	r.camera.Resize(size)
	return nil
}

// Pointer reports the pointer at a viewport cell. Hit-testing happens in
// graph space; when the entity under the pointer changes, a leave event for
// the old entity is emitted before the enter event for the new one.
func (r *Renderer) Pointer(p interact.Point) {
	if r.destroyed {
		return
	}
	kind, id := r.hit(r.camera.ViewportToGraph(p))
	if kind == r.hoverKind && id == r.hoverID {
		return
	}
	r.leave()
	if id == "" {
		return
	}
	r.hoverKind, r.hoverID = kind, id
	pt := p
	r.emit(interact.Event{Kind: kind, ID: id, Pointer: &pt})
}

// PointerLeft reports that the pointer left the surface.
func (r *Renderer) PointerLeft() {
	if !r.destroyed {
		r.leave()
	}
}

// hovering reports whether the entity of the given enter kind and id is
// under the pointer. Node and edge ids may coincide.
func (r *Renderer) hovering(kind interact.EventKind, id string) bool {
	return r.hoverID != "" && r.hoverKind == kind && r.hoverID == id
}

func (r *Renderer) leave() {
	if r.hoverID == "" {
		return
	}
	kind := interact.LeaveNode
	if r.hoverKind == interact.EnterEdge {
		kind = interact.LeaveEdge
	}
	id := r.hoverID
	r.hoverID = ""
	r.emit(interact.Event{Kind: kind, ID: id})
}

func (r *Renderer) emit(ev interact.Event) {
	for _, h := range r.handlers[ev.Kind] {
		h(ev)
	}
}

// hit returns the entity under a graph-space point: the nearest node
// within reach, else the nearest edge.
func (r *Renderer) hit(p graph.Position) (interact.EventKind, string) {
	reach := nodeHitCells * r.camera.Ratio
	best, bestD := "", math.Inf(1)
	for _, n := range r.graph.Nodes() {
		if n.Pos == nil {
			continue
		}
		if d := p.Dist(*n.Pos); d <= reach && d < bestD {
			best, bestD = n.ID, d
		}
	}
	if best != "" {
		return interact.EnterNode, best
	}

	reach = edgeHitCells * r.camera.Ratio
	for _, e := range r.graph.Edges() {
		a, okA := r.graph.NodeAnchor(e.Source)
		b, okB := r.graph.NodeAnchor(e.Target)
		if !okA || !okB {
			continue
		}
		if d := segmentDist(p, a, b); d <= reach && d < bestD {
			best, bestD = e.ID, d
		}
	}
	if best != "" {
		return interact.EnterEdge, best
	}
	return 0, ""
}

func segmentDist(p, a, b graph.Position) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	l2 := dx*dx + dy*dy
	if l2 == 0 {
		return p.Dist(a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / l2
	t = max(0, min(1, t))
	return p.Dist(graph.Position{X: a.X + t*dx, Y: a.Y + t*dy})
}

// View draws the graph and, when o is non-nil, the tooltip overlay on top.
func (r *Renderer) View(o *interact.Overlay) string {
	c := r.paint(o)
	if c == nil {
		return ""
	}
	return c.String()
}

// PlainView is View without colors, for logs and tests.
func (r *Renderer) PlainView(o *interact.Overlay) string {
	c := r.paint(o)
	if c == nil {
		return ""
	}
	return c.Plain()
}

func (r *Renderer) paint(o *interact.Overlay) *canvas {
	if r.destroyed {
		return nil
	}
	p := r.palette
	vp := r.camera.Viewport
	c := newCanvas(int(vp.W), int(vp.H), p.Hex(theme.TokenBackground))

	cellOf := func(pos graph.Position) (int, int) {
		v := r.camera.GraphToViewport(pos)
		return int(math.Round(v.X)), int(math.Round(v.Y))
	}

	for _, e := range r.graph.Edges() {
		src, okS := r.graph.NodeAnchor(e.Source)
		dst, okD := r.graph.NodeAnchor(e.Target)
		if !okS || !okD {
			continue
		}
		tok := e.Color
		if tok == "" {
			tok = theme.TokenDefaultEdge
		}
		fg := p.Hex(tok)
		glyph := '·'
		if e.IsReturn() {
			glyph = '┄'
		}
		x0, y0 := cellOf(src)
		x1, y1 := cellOf(dst)
		if lx, ly, ok := c.line(x0, y0, x1, y1, glyph, fg); ok {
			c.set(lx, ly, arrow(x1-x0, y1-y0), fg, r.hovering(interact.EnterEdge, e.ID))
		}
		if r.edgeLabels && e.Label != "" {
			mx, my := (x0+x1)/2, (y0+y1)/2
			c.text(mx-len(e.Label)/2, my, e.Label, p.Hex(theme.TokenEdgeLabel), false)
		}
	}

	for _, n := range r.graph.Nodes() {
		if n.Pos == nil {
			continue
		}
		x, y := cellOf(*n.Pos)
		glyph := '●'
		if n.Depth == 0 {
			glyph = '◉'
		}
		hovered := r.hovering(interact.EnterNode, n.ID)
		c.set(x, y, glyph, p.Hex(n.Color), hovered)
		c.text(x+2, y, n.DisplayLabel(), p.Hex(theme.TokenLabel), hovered)
	}

	if o != nil {
		drawOverlay(c, *o, p)
	}
	return c
}

func drawOverlay(c *canvas, o interact.Overlay, p theme.Palette) {
	x, y := int(o.Position.X), int(o.Position.Y)
	w, h := int(o.Box.W), int(o.Box.H)
	if w < 4 || h < 3 {
		return
	}
	bg, fg := p.Hex(theme.TokenTooltipBG), p.Hex(theme.TokenTooltipFG)
	border := p.Hex(theme.TokenTooltipBorder)
	c.fill(x, y, w, h, bg)

	c.set(x, y, '┌', border, false)
	c.set(x+w-1, y, '┐', border, false)
	c.set(x, y+h-1, '└', border, false)
	c.set(x+w-1, y+h-1, '┘', border, false)
	for i := x + 1; i < x+w-1; i++ {
		c.set(i, y, '─', border, false)
		c.set(i, y+h-1, '─', border, false)
	}
	for j := y + 1; j < y+h-1; j++ {
		c.set(x, j, '│', border, false)
		c.set(x+w-1, j, '│', border, false)
	}

	inner := w - 4
	c.text(x+2, y+1, truncate(o.Title, inner), fg, true)
	if h > 4 {
		c.set(x, y+2, '├', border, false)
		c.set(x+w-1, y+2, '┤', border, false)
		for i := x + 1; i < x+w-1; i++ {
			c.set(i, y+2, '─', p.Hex(theme.TokenTooltipDivider), false)
		}
	}
	for i, line := range o.Body {
		row := y + 3 + i
		if row >= y+h-1 {
			break
		}
		c.text(x+2, row, truncate(line, inner), fg, false)
	}
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}

// arrow picks an arrowhead glyph for a direction in cell space.
func arrow(dx, dy int) rune {
	arrows := [...]rune{'→', '↘', '↓', '↙', '←', '↖', '↑', '↗'}
	a := math.Atan2(float64(dy), float64(dx))
	i := int(math.Round(a/(math.Pi/4))+8) % 8
	return arrows[i]
}
