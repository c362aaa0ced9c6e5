package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"math"

	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/interact"
	"github.com/fraudy/flowgraph/pkg/theme"
)

// Defaults for Options.
const (
	DefaultWidth   = 1200.0
	DefaultPadding = 40.0
	labelFontSize  = 12.0
	edgeFontSize   = 9.0
	lineHeight     = 16.0
)

const tooltipCSS = `
    .node, .edge { cursor: pointer; }
    .edge { stroke-width: 1.5; }
    .edge:hover { stroke-width: 3; }
    .label { pointer-events: none; font-family: sans-serif; }
    #tooltip { pointer-events: none; font-family: sans-serif; font-size: 12px; }
    #tooltip .title { font-weight: bold; }`

// tooltipJS mirrors interact.Controller: the pointer is converted to user
// space with the current screen transform, offset and clamped into the
// viewBox.
const tooltipJS = `
    const root = document.querySelector('svg');
    const vb = root.viewBox.baseVal;
    const tip = root.getElementById('tooltip');
    const title = tip.querySelector('.title');
    const body = tip.querySelector('.body');
    const OFFSET = %[1]g, MARGIN = %[2]g, W = %[3]g, H = %[4]g, LH = %[5]g;
    function toUser(ev) {
      const pt = root.createSVGPoint();
      pt.x = ev.clientX; pt.y = ev.clientY;
      return pt.matrixTransform(root.getScreenCTM().inverse());
    }
    function show(el, ev) {
      const lines = (el.dataset.details || %[6]q).split('\n');
      title.textContent = lines[0];
      while (body.firstChild) body.removeChild(body.firstChild);
      lines.slice(1).forEach((line, i) => {
        const t = document.createElementNS('http://www.w3.org/2000/svg', 'tspan');
        t.setAttribute('x', 12);
        t.setAttribute('dy', i === 0 ? 0 : LH);
        t.textContent = line;
        body.appendChild(t);
      });
      const p = toUser(ev);
      const x = Math.max(vb.x + MARGIN, Math.min(p.x + OFFSET, vb.x + vb.width - W - MARGIN));
      const y = Math.max(vb.y + MARGIN, Math.min(p.y + OFFSET, vb.y + vb.height - H - MARGIN));
      tip.setAttribute('transform', 'translate(' + x.toFixed(1) + ',' + y.toFixed(1) + ')');
      tip.setAttribute('visibility', 'visible');
    }
    root.querySelectorAll('.node, .edge').forEach(el => {
      el.addEventListener('mouseenter', ev => show(el, ev));
      el.addEventListener('mouseleave', () => tip.setAttribute('visibility', 'hidden'));
    });`

// Option configures SVG rendering.
type Option func(*renderer)

type renderer struct {
	palette    theme.Palette
	width      float64
	padding    float64
	tooltips   bool
	edgeLabels bool
	title      string
}

// WithPalette selects the palette used to resolve color tokens.
func WithPalette(p theme.Palette) Option { return func(r *renderer) { r.palette = p } }

// WithWidth sets the width of the drawing in user units.
func WithWidth(w float64) Option {
	return func(r *renderer) {
		if w > 0 {
			r.width = w
		}
	}
}

// WithPadding sets the blank border around the graph.
func WithPadding(p float64) Option {
	return func(r *renderer) {
		if p >= 0 {
			r.padding = p
		}
	}
}

// WithoutTooltips omits the hover overlay and its script.
func WithoutTooltips() Option { return func(r *renderer) { r.tooltips = false } }

// WithoutEdgeLabels omits the amount labels on edges.
func WithoutEdgeLabels() Option { return func(r *renderer) { r.edgeLabels = false } }

// WithTitle sets the document title.
func WithTitle(s string) Option { return func(r *renderer) { r.title = s } }

// frame maps graph space into SVG user space.
type frame struct {
	b       graph.Bounds
	scale   float64
	padding float64
}

func (f frame) at(p graph.Position) (float64, float64) {
	return (p.X-f.b.MinX)*f.scale + f.padding, (p.Y-f.b.MinY)*f.scale + f.padding
}

// RenderSVG draws a positioned graph as a standalone SVG document with an
// interactive tooltip overlay. Nodes without a position are skipped, as are
// edges touching them.
func RenderSVG(g *graph.Graph, opts ...Option) []byte {
	r := renderer{
		palette:    theme.PaletteFor(theme.DefaultMode),
		width:      DefaultWidth,
		padding:    DefaultPadding,
		tooltips:   true,
		edgeLabels: true,
	}
	for _, opt := range opts {
		opt(&r)
	}

	f := r.frame(g)
	w := f.b.Width()*f.scale + 2*f.padding
	h := f.b.Height()*f.scale + 2*f.padding
	if h < interact.DefaultBoxH+2*interact.DefaultMargin {
		h = interact.DefaultBoxH + 2*interact.DefaultMargin
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		w, h, w, h)
	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", escapeXML(r.title))
	}
	r.renderDefs(&buf)
	fmt.Fprintf(&buf, `  <rect width="100%%" height="100%%" fill="%s"/>`+"\n", r.palette.Color(theme.TokenBackground))

	for _, e := range g.Edges() {
		r.renderEdge(&buf, g, f, e)
	}
	for _, n := range g.Nodes() {
		r.renderNode(&buf, f, n)
	}
	if r.tooltips {
		r.renderTooltip(&buf)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func (r renderer) frame(g *graph.Graph) frame {
	b, ok := g.Bounds()
	if !ok {
		return frame{scale: 1, padding: r.padding}
	}
	span := max(b.Width(), b.Height())
	scale := 1.0
	if span > 0 {
		scale = max(r.width-2*r.padding, 1) / span
	}
	return frame{b: b, scale: scale, padding: r.padding}
}

func (r renderer) renderDefs(buf *bytes.Buffer) {
	buf.WriteString("  <defs>\n")
	for _, tok := range []theme.Token{theme.TokenEdge, theme.TokenReversal, theme.TokenDefaultEdge} {
		fmt.Fprintf(buf, `    <marker id="arrow-%s" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse"><path d="M0,0 L10,5 L0,10 z" fill="%s"/></marker>`+"\n",
			tok, r.palette.Color(tok))
	}
	buf.WriteString("  </defs>\n")
}

func (r renderer) renderEdge(buf *bytes.Buffer, g *graph.Graph, f frame, e graph.Edge) {
	src, okS := g.Node(e.Source)
	dst, okD := g.Node(e.Target)
	if !okS || !okD || src.Pos == nil || dst.Pos == nil {
		return
	}
	tok := e.Color
	if tok == "" {
		tok = theme.TokenDefaultEdge
	}
	x1, y1 := f.at(*src.Pos)
	x2, y2 := f.at(*dst.Pos)
	x2, y2 = shorten(x1, y1, x2, y2, dst.Size/2)

	dash := ""
	if e.IsReturn() {
		dash = ` stroke-dasharray="4 3"`
	}
	fmt.Fprintf(buf, `  <line id="edge-%s" class="edge" x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"%s marker-end="url(#arrow-%s)" data-details="%s"/>`+"\n",
		escapeXML(e.ID), x1, y1, x2, y2, r.palette.Color(tok), dash, tok, escapeXML(e.Details))

	if r.edgeLabels && e.Label != "" {
		mx, my := (x1+x2)/2, (y1+y2)/2
		fmt.Fprintf(buf, `  <text class="label" x="%.1f" y="%.1f" font-size="%g" fill="%s" text-anchor="middle">%s</text>`+"\n",
			mx, my-3, edgeFontSize, r.palette.Color(theme.TokenEdgeLabel), escapeXML(e.Label))
	}
}

func (r renderer) renderNode(buf *bytes.Buffer, f frame, n *graph.Node) {
	if n.Pos == nil {
		return
	}
	x, y := f.at(*n.Pos)
	radius := max(n.Size/2, 2)
	fmt.Fprintf(buf, `  <circle id="node-%s" class="node" cx="%.1f" cy="%.1f" r="%.1f" fill="%s" data-details="%s"/>`+"\n",
		escapeXML(n.ID), x, y, radius, r.palette.Color(n.Color), escapeXML(n.Details))
	fmt.Fprintf(buf, `  <text class="label" x="%.1f" y="%.1f" font-size="%g" fill="%s" text-anchor="middle">%s</text>`+"\n",
		x, y+radius+labelFontSize, labelFontSize, r.palette.Color(theme.TokenLabel), escapeXML(n.DisplayLabel()))
}

func (r renderer) renderTooltip(buf *bytes.Buffer) {
	p := r.palette
	fmt.Fprintf(buf, "  <style>%s\n  </style>\n", tooltipCSS)
	buf.WriteString(`  <g id="tooltip" visibility="hidden">` + "\n")
	fmt.Fprintf(buf, `    <rect width="%g" height="%g" rx="4" fill="%s" stroke="%s"/>`+"\n",
		interact.DefaultBoxW, interact.DefaultBoxH, p.Color(theme.TokenTooltipBG), p.Color(theme.TokenTooltipBorder))
	fmt.Fprintf(buf, `    <text class="title" x="12" y="22" fill="%s"></text>`+"\n", p.Color(theme.TokenTooltipFG))
	fmt.Fprintf(buf, `    <line x1="12" y1="30" x2="%g" y2="30" stroke="%s"/>`+"\n",
		interact.DefaultBoxW-12, p.Color(theme.TokenTooltipDivider))
	fmt.Fprintf(buf, `    <text class="body" x="12" y="48" fill="%s"></text>`+"\n", p.Color(theme.TokenTooltipFG))
	buf.WriteString("  </g>\n")

	fmt.Fprintf(buf, "  <script type=\"text/javascript\"><![CDATA[%s\n  ]]></script>\n",
		fmt.Sprintf(tooltipJS, interact.DefaultOffset, interact.DefaultMargin,
			interact.DefaultBoxW, interact.DefaultBoxH, lineHeight, interact.NoInformation))
}

// shorten pulls (x2, y2) back toward (x1, y1) by d so arrowheads stop at
// the target's rim.
func shorten(x1, y1, x2, y2, d float64) (float64, float64) {
	dx, dy := x2-x1, y2-y1
	l := math.Hypot(dx, dy)
	if l <= d || l == 0 {
		return x2, y2
	}
	k := (l - d) / l
	return x1 + dx*k, y1 + dy*k
}

func escapeXML(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}
