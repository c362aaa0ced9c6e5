package graph_test

import (
	"fmt"

	"github.com/fraudy/flowgraph/pkg/graph"
)

func ExampleGraph_AddEdge() {
	g := graph.New()
	_ = g.AddNode(graph.Node{ID: "GSOURCE", Depth: 0})
	_ = g.AddNode(graph.Node{ID: "GSOURCE_T0_1", Depth: 1})

	id, err := g.AddEdge(graph.Edge{Source: "GSOURCE", Target: "GSOURCE_T0_1", Label: "42 XLM"})
	fmt.Println(id, err)

	_, err = g.AddEdge(graph.Edge{Source: "GSOURCE", Target: "GMISSING"})
	fmt.Println(err)
	// Output:
	// e0 <nil>
	// unknown target node
}

func ExampleGraph_EdgeAnchor() {
	g := graph.New()
	_ = g.AddNode(graph.Node{ID: "a", Pos: &graph.Position{X: 0, Y: 0}})
	_ = g.AddNode(graph.Node{ID: "b", Depth: 1, Pos: &graph.Position{X: 10, Y: 4}})
	id, _ := g.AddEdge(graph.Edge{Source: "a", Target: "b"})

	p, _ := g.EdgeAnchor(id)
	fmt.Printf("%.1f %.1f\n", p.X, p.Y)
	// Output:
	// 5.0 2.0
}
