// Package scene exports a positioned graph as a self-contained scene
// description for browser renderers.
//
// A scene is renderer input: concrete colors are resolved from the palette,
// positions are in graph space and every entity carries its tooltip text.
// It is not a storage format and cannot be loaded back into a graph.
package scene

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/theme"
)

// Option configures scene export.
type Option func(*exporter)

type exporter struct {
	address    string
	palette    theme.Palette
	seed       uint64
	iterations int
}

// WithAddress records the queried source address.
func WithAddress(a string) Option { return func(e *exporter) { e.address = a } }

// WithPalette selects the palette used to resolve color tokens.
func WithPalette(p theme.Palette) Option { return func(e *exporter) { e.palette = p } }

// WithSeed records the seed that produced the graph, so the same scene can
// be requested again.
func WithSeed(seed uint64) Option { return func(e *exporter) { e.seed = seed } }

// WithIterations records the layout iteration count.
func WithIterations(n int) Option { return func(e *exporter) { e.iterations = n } }

// Scene is the exported document.
type Scene struct {
	Address    string        `json:"address,omitempty" yaml:"address,omitempty"`
	Theme      theme.Mode    `json:"theme" yaml:"theme"`
	Seed       uint64        `json:"seed,omitempty" yaml:"seed,omitempty"`
	Iterations int           `json:"iterations,omitempty" yaml:"iterations,omitempty"`
	Bounds     *graph.Bounds `json:"bounds,omitempty" yaml:"bounds,omitempty"`
	Chrome     Chrome        `json:"chrome" yaml:"chrome"`
	Nodes      []Node        `json:"nodes" yaml:"nodes"`
	Edges      []Edge        `json:"edges" yaml:"edges"`
}

// Chrome holds the non-entity colors a renderer needs.
type Chrome struct {
	Background     string `json:"background" yaml:"background"`
	Label          string `json:"label" yaml:"label"`
	EdgeLabel      string `json:"edge_label" yaml:"edge_label"`
	TooltipBG      string `json:"tooltip_background" yaml:"tooltip_background"`
	TooltipFG      string `json:"tooltip_foreground" yaml:"tooltip_foreground"`
	TooltipBorder  string `json:"tooltip_border" yaml:"tooltip_border"`
	TooltipDivider string `json:"tooltip_divider" yaml:"tooltip_divider"`
}

// Node is an exported node.
type Node struct {
	ID      string  `json:"id" yaml:"id"`
	Label   string  `json:"label" yaml:"label"`
	Depth   int     `json:"depth" yaml:"depth"`
	X       float64 `json:"x" yaml:"x"`
	Y       float64 `json:"y" yaml:"y"`
	Size    float64 `json:"size" yaml:"size"`
	Color   string  `json:"color" yaml:"color"`
	Details string  `json:"details,omitempty" yaml:"details,omitempty"`
}

// Edge is an exported edge.
type Edge struct {
	ID      string  `json:"id" yaml:"id"`
	Source  string  `json:"source" yaml:"source"`
	Target  string  `json:"target" yaml:"target"`
	Label   string  `json:"label,omitempty" yaml:"label,omitempty"`
	Kind    string  `json:"kind" yaml:"kind"`
	Color   string  `json:"color" yaml:"color"`
	Amount  float64 `json:"amount" yaml:"amount"`
	Details string  `json:"details,omitempty" yaml:"details,omitempty"`
}

// New builds a scene from g. Nodes without a position are exported at the
// origin; run the layout engine first.
func New(g *graph.Graph, opts ...Option) Scene {
	e := exporter{palette: theme.PaletteFor(theme.DefaultMode)}
	for _, opt := range opts {
		opt(&e)
	}
	p := e.palette

	s := Scene{
		Address:    e.address,
		Theme:      p.Mode,
		Seed:       e.seed,
		Iterations: e.iterations,
		Chrome: Chrome{
			Background:     p.Color(theme.TokenBackground),
			Label:          p.Color(theme.TokenLabel),
			EdgeLabel:      p.Color(theme.TokenEdgeLabel),
			TooltipBG:      p.Color(theme.TokenTooltipBG),
			TooltipFG:      p.Color(theme.TokenTooltipFG),
			TooltipBorder:  p.Color(theme.TokenTooltipBorder),
			TooltipDivider: p.Color(theme.TokenTooltipDivider),
		},
		Nodes: make([]Node, 0, g.NodeCount()),
		Edges: make([]Edge, 0, g.EdgeCount()),
	}
	if b, ok := g.Bounds(); ok {
		s.Bounds = &b
	}

	for _, n := range g.Nodes() {
		sn := Node{
			ID:      n.ID,
			Label:   n.DisplayLabel(),
			Depth:   n.Depth,
			Size:    n.Size,
			Color:   p.Color(n.Color),
			Details: n.Details,
		}
		if n.Pos != nil {
			sn.X, sn.Y = n.Pos.X, n.Pos.Y
		}
		s.Nodes = append(s.Nodes, sn)
	}
	for _, ed := range g.Edges() {
		tok := ed.Color
		if tok == "" {
			tok = theme.TokenDefaultEdge
		}
		s.Edges = append(s.Edges, Edge{
			ID:      ed.ID,
			Source:  ed.Source,
			Target:  ed.Target,
			Label:   ed.Label,
			Kind:    ed.Kind.String(),
			Color:   p.Color(tok),
			Amount:  ed.Amount,
			Details: ed.Details,
		})
	}
	return s
}

// RenderJSON exports g as a pretty-printed JSON scene.
func RenderJSON(g *graph.Graph, opts ...Option) ([]byte, error) {
	return json.MarshalIndent(New(g, opts...), "", "  ")
}

// RenderYAML exports g as a YAML scene, for fixtures and diffs.
func RenderYAML(g *graph.Graph, opts ...Option) ([]byte, error) {
	return yaml.Marshal(New(g, opts...))
}
