// Package render holds the output renderers for transaction graphs.
//
// # Overview
//
// Every renderer consumes a graph that the layout engine has already
// positioned:
//
//   - [svg]: standalone SVG with an interactive tooltip overlay
//   - [nodelink]: Graphviz DOT, rendered in-process with pinned positions
//   - [term]: a terminal canvas that also implements interact.Renderer
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] convert any SVG to other formats using the external
// rsvg-convert tool (from librsvg):
//
//	out := svg.RenderSVG(g)
//	pdf, err := render.ToPDF(ctx, out)
//	png, err := render.ToPNG(ctx, out, 2.0)  // 2x scale
//
// [svg]: github.com/fraudy/flowgraph/pkg/render/svg
// [nodelink]: github.com/fraudy/flowgraph/pkg/render/nodelink
// [term]: github.com/fraudy/flowgraph/pkg/render/term
package render
