// Package nodelink renders transaction graphs through Graphviz.
//
// # Overview
//
// [ToDOT] emits DOT source with palette colors, amount labels and dashed
// return edges. [RenderSVG] runs it through an in-process Graphviz build.
//
// # Pinned layouts
//
// With Options.Pinned every positioned node gets a pos="x,y!" attribute, so
// the neato engine keeps the force layout and only routes edges and places
// labels:
//
//	dot := nodelink.ToDOT(g, nodelink.Options{Pinned: true})
//	svg, err := nodelink.RenderSVG(ctx, dot, nodelink.EngineNeato)
//
// Without pinning any engine may be used and Graphviz computes its own
// layout.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
