// Package graph provides the in-memory transaction graph shared by the
// builder, the layout engine, the interaction controller and the renderers.
//
// # Overview
//
// A [Graph] holds address nodes and directed transfer edges. It owns node
// identity and metadata; it does not know how nodes are drawn. Colors are
// semantic tokens (see pkg/theme) and positions are plain graph-space
// coordinates written by the layout engine.
//
// # Basic Usage
//
// Create a graph with [New], add nodes with [Graph.AddNode] and edges with
// [Graph.AddEdge]. Edges may only reference nodes that already exist, so a
// graph built through this API can never contain a dangling edge:
//
//	g := graph.New()
//	g.AddNode(graph.Node{ID: "GABC", Depth: 0})
//	g.AddNode(graph.Node{ID: "GABC_T0_1", Depth: 1})
//	id, _ := g.AddEdge(graph.Edge{Source: "GABC", Target: "GABC_T0_1", Kind: graph.KindForward})
//
// Edge IDs are assigned by the graph ("e0", "e1", ...) and are what renderers
// report in hover events.
//
// # Invariants
//
//   - Node IDs are unique and non-empty
//   - Node depth is never negative
//   - Every edge endpoint references a node of the same graph
//   - Exactly one node has depth 0 once the graph is non-empty (the root)
//
// The first three are enforced on insertion; [Graph.Validate] checks all four.
//
// # Ordering
//
// [Graph.Nodes] returns nodes in insertion order and [Graph.Edges] returns
// edges in insertion order. The order carries no meaning; it exists so that a
// seeded layout run is reproducible.
//
// # Concurrency
//
// A Graph is not safe for concurrent use. Build it, lay it out, then hand it
// to exactly one renderer.
package graph
