// Package pkg holds the libraries behind flowgraph, the transaction flow
// graph viewer used by the fraud dashboard.
//
// # Overview
//
// A search for an account address produces a small synthetic money-flow
// graph: the searched account, tiers of recipients and a few transfers
// that flow back to the source. The graph is positioned with a
// force-directed layout and handed to a renderer that reports hover events
// to an interaction controller, which shows a tooltip for the entity under
// the pointer.
//
//	address
//	   ↓
//	[builder]   synthetic graph, styled with [theme] tokens
//	   ↓
//	[layout]    ForceAtlas2 positions
//	   ↓
//	[render]    SVG, Graphviz, terminal canvas, [scene] JSON/YAML
//	   ↓
//	[interact]  hover state machine and tooltip overlay
//
// [session] ties the steps together for interactive views: each load tears
// down the previous renderer and controller before mounting the next.
// [pipeline] runs the same steps for batch output and caches artifacts
// through [cache]. [feed] streams addresses from a reader or a Redis
// channel.
//
// # Quick Start
//
//	g, _ := builder.NewSeeded(7).Build("GABC...XYZ", 2)
//	_, _ = layout.NewSeeded(7).Layout(ctx, g)
//	out := svg.RenderSVG(g, svg.WithPalette(theme.PaletteFor(theme.Dark)))
//
// # Observability
//
// Every stage reports to the hook registry in [observability]. The
// [observability/prom] package installs Prometheus-backed hooks.
//
// [builder]: https://pkg.go.dev/github.com/fraudy/flowgraph/pkg/builder
// [theme]: https://pkg.go.dev/github.com/fraudy/flowgraph/pkg/theme
// [layout]: https://pkg.go.dev/github.com/fraudy/flowgraph/pkg/layout
// [render]: https://pkg.go.dev/github.com/fraudy/flowgraph/pkg/render
// [scene]: https://pkg.go.dev/github.com/fraudy/flowgraph/pkg/scene
// [interact]: https://pkg.go.dev/github.com/fraudy/flowgraph/pkg/interact
// [session]: https://pkg.go.dev/github.com/fraudy/flowgraph/pkg/session
// [pipeline]: https://pkg.go.dev/github.com/fraudy/flowgraph/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/fraudy/flowgraph/pkg/cache
// [feed]: https://pkg.go.dev/github.com/fraudy/flowgraph/pkg/feed
// [observability]: https://pkg.go.dev/github.com/fraudy/flowgraph/pkg/observability
// [observability/prom]: https://pkg.go.dev/github.com/fraudy/flowgraph/pkg/observability/prom
package pkg
