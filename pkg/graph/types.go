package graph

import (
	"fmt"
	"math"

	"github.com/fraudy/flowgraph/pkg/theme"
)

// Position is a point in graph space, the coordinate system of the layout
// solver. It is independent of any pan or zoom applied by a renderer.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Position) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Midpoint returns the point halfway between p and q.
func (p Position) Midpoint(q Position) Position {
	return Position{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2}
}

// Dist returns the Euclidean distance between p and q.
func (p Position) Dist(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Node is an address in the transaction graph.
//
// The zero value is not usable - ID must be set before adding to a Graph.
type Node struct {
	ID      string      // Unique identifier (the address)
	Label   string      // Short display text
	Depth   int         // Hop distance from the source (0 = source)
	Size    float64     // Visual weight, decreasing with depth
	Color   theme.Token // Semantic color, resolved by the renderer's palette
	Details string      // Free-form multi-line metadata; first line is the title

	// Pos is the graph-space position, or nil while unset.
	// The layout engine treats an already-set Pos as its starting point.
	Pos *Position
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// EdgeKind distinguishes outgoing transfers from funds flowing back.
type EdgeKind int

const (
	// KindForward is a transfer from a node to one of its children.
	KindForward EdgeKind = iota
	// KindReturn models funds flowing back toward an ancestor.
	KindReturn
)

// String returns "forward" or "return".
func (k EdgeKind) String() string {
	switch k {
	case KindForward:
		return "forward"
	case KindReturn:
		return "return"
	}
	return fmt.Sprintf("EdgeKind(%d)", int(k))
}

// Edge is a directed transfer between two nodes.
// Multiple edges between the same ordered pair are permitted.
type Edge struct {
	ID      string // Assigned by Graph.AddEdge; any caller-supplied value is replaced
	Source  string // Sending node ID
	Target  string // Receiving node ID
	Label   string // Short display text (e.g. "42 XLM")
	Kind    EdgeKind
	Color   theme.Token
	Amount  float64 // Transferred amount
	Weight  float64 // Attraction weight for layout; zero means 1
	Details string  // Free-form multi-line metadata; first line is the title
}

// IsReturn reports whether the edge is a return edge.
func (e Edge) IsReturn() bool { return e.Kind == KindReturn }

// EffectiveWeight returns Weight, or 1 when Weight is not positive.
func (e Edge) EffectiveWeight() float64 {
	if e.Weight > 0 && !math.IsInf(e.Weight, 0) {
		return e.Weight
	}
	return 1
}

// Bounds is an axis-aligned rectangle in graph space.
type Bounds struct {
	MinX, MinY, MaxX, MaxY float64
}

// Width returns the horizontal extent.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Center returns the midpoint of the rectangle.
func (b Bounds) Center() Position {
	return Position{X: (b.MinX + b.MaxX) / 2, Y: (b.MinY + b.MaxY) / 2}
}
