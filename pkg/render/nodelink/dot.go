package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/render"
	"github.com/fraudy/flowgraph/pkg/theme"
)

// Engine names a Graphviz layout engine.
type Engine string

const (
	EngineDot   Engine = "dot"
	EngineNeato Engine = "neato"
	EngineFDP   Engine = "fdp"
	EngineSFDP  Engine = "sfdp"
	EngineTwopi Engine = "twopi"
)

// DefaultScale is the number of points per graph unit for pinned layouts.
const DefaultScale = 36.0

// ParseEngine validates an engine name. The empty string selects neato.
func ParseEngine(s string) (Engine, error) {
	switch e := Engine(strings.ToLower(s)); e {
	case "":
		return EngineNeato, nil
	case EngineDot, EngineNeato, EngineFDP, EngineSFDP, EngineTwopi:
		return e, nil
	}
	return "", fmt.Errorf("unknown graphviz engine %q", s)
}

// Options configures DOT generation.
type Options struct {
	// Palette resolves color tokens. The zero value uses the default mode.
	Palette theme.Palette

	// Pinned fixes every positioned node at its layout position, so the
	// neato engine reproduces the force layout instead of computing its own.
	Pinned bool

	// Scale is the number of points per graph unit when Pinned is set.
	Scale float64

	// Detailed puts the full details into node tooltips.
	Detailed bool
}

// ToDOT converts a transaction graph to Graphviz DOT.
// Return edges are drawn dashed in the reversal color.
func ToDOT(g *graph.Graph, opts Options) string {
	p := opts.Palette
	if p.Mode == "" {
		p = theme.PaletteFor(theme.DefaultMode)
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  bgcolor=%q;\n", p.Hex(theme.TokenBackground))
	if opts.Pinned {
		buf.WriteString("  inputscale=72;\n")
		buf.WriteString("  overlap=true;\n")
		buf.WriteString("  splines=true;\n")
	} else {
		buf.WriteString("  overlap=false;\n")
	}
	fmt.Fprintf(&buf, "  node [shape=circle, style=filled, fixedsize=true, fontsize=10, fontcolor=%q, penwidth=0];\n",
		p.Hex(theme.TokenLabel))
	fmt.Fprintf(&buf, "  edge [fontsize=8, fontcolor=%q, arrowsize=0.6];\n", p.Hex(theme.TokenEdgeLabel))
	buf.WriteString("\n")

	for _, n := range g.Nodes() {
		fmt.Fprintf(&buf, "  %q [%s];\n", n.ID, strings.Join(nodeAttrs(n, p, opts, scale), ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges() {
		fmt.Fprintf(&buf, "  %q -> %q [%s];\n", e.Source, e.Target, strings.Join(edgeAttrs(e, p), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeAttrs(n *graph.Node, p theme.Palette, opts Options, scale float64) []string {
	attrs := []string{
		fmt.Sprintf("label=%q", n.DisplayLabel()),
		fmt.Sprintf("fillcolor=%q", p.Hex(n.Color)),
		fmt.Sprintf("width=%s", inches(n.Size)),
	}
	if opts.Pinned && n.Pos != nil {
		attrs = append(attrs, fmt.Sprintf("pos=\"%.2f,%.2f!\"", n.Pos.X*scale, -n.Pos.Y*scale))
	}
	if opts.Detailed && n.Details != "" {
		attrs = append(attrs, fmt.Sprintf("tooltip=%q", n.Details))
	}
	return attrs
}

func edgeAttrs(e graph.Edge, p theme.Palette) []string {
	tok := e.Color
	if tok == "" {
		tok = theme.TokenDefaultEdge
	}
	attrs := []string{fmt.Sprintf("color=%q", p.Hex(tok))}
	if e.Label != "" {
		attrs = append(attrs, fmt.Sprintf("label=%q", e.Label))
	}
	if e.IsReturn() {
		attrs = append(attrs, "style=dashed")
	}
	if e.Details != "" {
		attrs = append(attrs, fmt.Sprintf("tooltip=%q", e.Details))
	}
	return attrs
}

// inches converts a node size in pixels to a Graphviz width.
func inches(size float64) string {
	if size <= 0 {
		size = 10
	}
	return strconv.FormatFloat(size/72*1.5, 'f', 2, 64)
}

// RenderSVG renders DOT to SVG with the given Graphviz engine. The empty
// engine selects neato.
func RenderSVG(ctx context.Context, dot string, engine Engine) ([]byte, error) {
	if engine == "" {
		engine = EngineNeato
	}
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.Layout(engine))

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPNG renders DOT as PNG via SVG conversion.
// Requires librsvg (rsvg-convert).
func RenderPNG(ctx context.Context, dot string, engine Engine, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot, engine)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}

// RenderPDF renders DOT as PDF via SVG conversion.
// Requires librsvg (rsvg-convert).
func RenderPDF(ctx context.Context, dot string, engine Engine) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot, engine)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}
