package interact

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/observability"
)

var (
	// ErrNoRenderer is returned by New when the renderer is nil.
	ErrNoRenderer = errors.New("no renderer")

	// ErrNoGraph is returned by New when the graph is nil.
	ErrNoGraph = errors.New("no graph")

	// ErrClosed is returned by Attach after Close.
	ErrClosed = errors.New("controller closed")
)

// NoInformation is the tooltip content shown for entities without details.
const NoInformation = "No information available"

// Overlay placement defaults, in viewport units.
const (
	DefaultOffset = 10.0
	DefaultMargin = 10.0
	DefaultBoxW   = 320.0
	DefaultBoxH   = 150.0
)

// State is the hover state of a Controller.
type State int

const (
	Idle State = iota
	HoveringNode
	HoveringEdge
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case HoveringNode:
		return "hoveringNode"
	case HoveringEdge:
		return "hoveringEdge"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Tooltip is the content shown for the hovered entity, anchored in graph
// space so it stays attached to the graph across pan and zoom.
type Tooltip struct {
	Content string
	Anchor  graph.Position
}

// Title returns the first line of the content.
func (t Tooltip) Title() string {
	title, _, _ := strings.Cut(t.Content, "\n")
	return title
}

// Body returns the lines after the first.
func (t Tooltip) Body() []string {
	_, rest, ok := strings.Cut(t.Content, "\n")
	if !ok || rest == "" {
		return nil
	}
	return strings.Split(rest, "\n")
}

// Overlay is a tooltip placed in viewport space, ready to paint.
type Overlay struct {
	Title    string
	Body     []string
	Position Point // top-left corner of the box
	Box      Size
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger used for ignored-event diagnostics.
func WithLogger(l *log.Logger) Option { return func(c *Controller) { c.logger = l } }

// WithHooks sets the hover hooks. By default the globally registered
// observability hooks are used.
func WithHooks(h observability.HoverHooks) Option {
	return func(c *Controller) {
		if h != nil {
			c.hooks = h
		}
	}
}

// WithOverlayBox sets the overlay box size used for clamping.
func WithOverlayBox(s Size) Option { return func(c *Controller) { c.box = s } }

// WithOverlayOffset sets the pointer offset and the container margin.
func WithOverlayOffset(offset, margin float64) Option {
	return func(c *Controller) { c.offset, c.margin = offset, margin }
}

// Controller turns renderer hover events into tooltip state for one
// mounted graph.
//
// It is a three-state machine (Idle, HoveringNode, HoveringEdge) owning a
// single tooltip slot. All methods must be called from the renderer's event
// thread; the controller takes no locks.
type Controller struct {
	renderer Renderer
	graph    *graph.Graph
	logger   *log.Logger
	hooks    observability.HoverHooks

	state   State
	hovered string
	tooltip *Tooltip

	unsubs   []func()
	attached bool
	closed   bool

	offset, margin float64
	box            Size
}

// New creates a controller for graph g mounted on renderer r. Call Attach
// to start receiving events.
func New(r Renderer, g *graph.Graph, opts ...Option) (*Controller, error) {
	if r == nil {
		return nil, ErrNoRenderer
	}
	if g == nil {
		return nil, ErrNoGraph
	}
	c := &Controller{
		renderer: r,
		graph:    g,
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
		hooks:    observability.Hover(),
		offset:   DefaultOffset,
		margin:   DefaultMargin,
		box:      Size{W: DefaultBoxW, H: DefaultBoxH},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Attach subscribes the controller to the renderer's hover events.
// Attaching twice is a no-op.
func (c *Controller) Attach() error {
	if c.closed {
		return ErrClosed
	}
	if c.attached {
		return nil
	}
	for _, kind := range EventKinds {
		c.unsubs = append(c.unsubs, c.renderer.On(kind, c.HandleEvent))
	}
	c.attached = true
	return nil
}

// Graph returns the graph this controller serves.
func (c *Controller) Graph() *graph.Graph { return c.graph }

// State returns the current hover state.
func (c *Controller) State() State { return c.state }

// Hovered returns the ID of the hovered entity, or "" when idle.
func (c *Controller) Hovered() string { return c.hovered }

// Tooltip returns the current tooltip and whether one is shown.
func (c *Controller) Tooltip() (Tooltip, bool) {
	if c.tooltip == nil {
		return Tooltip{}, false
	}
	return *c.tooltip, true
}

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool { return c.closed }

// HandleEvent applies one renderer event to the state machine.
//
// Enter events for entities missing from the graph are ignored, as are
// leave events that don't match the current hover kind and any event after
// Close.
func (c *Controller) HandleEvent(ev Event) {
	if c.closed {
		c.logger.Debug("event after close ignored", "kind", ev.Kind, "id", ev.ID)
		return
	}
	switch ev.Kind {
	case EnterNode:
		n, ok := c.graph.Node(ev.ID)
		if !ok {
			c.logger.Debug("unknown node ignored", "id", ev.ID)
			return
		}
		c.enter(HoveringNode, ev, n.Details, c.graph.NodeAnchor)
	case EnterEdge:
		e, ok := c.graph.Edge(ev.ID)
		if !ok {
			c.logger.Debug("unknown edge ignored", "id", ev.ID)
			return
		}
		c.enter(HoveringEdge, ev, e.Details, c.graph.EdgeAnchor)
	case LeaveNode:
		if c.state == HoveringNode {
			c.leave()
		}
	case LeaveEdge:
		if c.state == HoveringEdge {
			c.leave()
		}
	default:
		c.logger.Debug("unknown event kind ignored", "kind", ev.Kind)
	}
}

func (c *Controller) enter(s State, ev Event, details string, entity func(string) (graph.Position, bool)) {
	if details == "" {
		details = NoInformation
	}
	c.state = s
	c.hovered = ev.ID
	c.tooltip = &Tooltip{Content: details, Anchor: c.anchor(ev, entity)}
	c.hooks.OnHoverEnter(kindName(s), ev.ID)
}

func (c *Controller) leave() {
	prev, id := c.state, c.hovered
	c.state = Idle
	c.hovered = ""
	c.tooltip = nil
	c.hooks.OnHoverLeave(kindName(prev), id)
}

// anchor converts the pointer into graph space with the renderer's current
// transform. Without a pointer the entity's own anchor is used, looked up
// in the namespace matching the event kind.
func (c *Controller) anchor(ev Event, entity func(string) (graph.Position, bool)) graph.Position {
	if ev.Pointer != nil {
		if t := c.renderer.Transform(); t != nil {
			return t.ViewportToGraph(*ev.Pointer)
		}
	}
	p, _ := entity(ev.ID)
	return p
}

// Overlay places the current tooltip inside a container of the given size.
//
// The anchor is converted with the renderer's current transform, offset
// from the pointer and clamped so the box stays at least the margin away
// from every container edge. If the container is too small for that, the
// box sticks to the top-left margin. It reports false when no tooltip is
// shown.
func (c *Controller) Overlay(container Size) (Overlay, bool) {
	if c.tooltip == nil || c.closed {
		return Overlay{}, false
	}
	var v Point
	if t := c.renderer.Transform(); t != nil {
		v = t.GraphToViewport(c.tooltip.Anchor)
	}
	pos := Point{
		X: placeAxis(v.X+c.offset, c.margin, container.W-c.box.W-c.margin),
		Y: placeAxis(v.Y+c.offset, c.margin, container.H-c.box.H-c.margin),
	}
	return Overlay{
		Title:    c.tooltip.Title(),
		Body:     c.tooltip.Body(),
		Position: pos,
		Box:      c.box,
	}, true
}

// placeAxis clamps one overlay coordinate. A non-finite coordinate, from a
// degenerate transform or pointer, falls back to the margin.
func placeAxis(v, margin, limit float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return margin
	}
	return clamp(v, margin, limit)
}

// Close unsubscribes every handler, destroys the renderer and clears the
// tooltip. It is safe to call more than once; only the first call destroys
// the renderer.
func (c *Controller) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	for _, unsub := range c.unsubs {
		if unsub != nil {
			unsub()
		}
	}
	c.unsubs = nil
	c.attached = false
	if c.state != Idle {
		c.leave()
	}
	if err := c.renderer.Destroy(); err != nil {
		return fmt.Errorf("destroy renderer: %w", err)
	}
	return nil
}

func kindName(s State) string {
	switch s {
	case HoveringNode:
		return "node"
	case HoveringEdge:
		return "edge"
	}
	return "none"
}
