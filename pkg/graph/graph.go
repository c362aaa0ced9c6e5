package graph

import (
	"errors"
	"slices"
	"strconv"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrNegativeDepth is returned by [Graph.AddNode] for a node with Depth < 0.
	ErrNegativeDepth = errors.New("node depth must not be negative")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the Source node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the Target node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrInvalidEdgeEndpoint is returned by [Graph.Validate] when an edge
	// references a node that doesn't exist. This indicates graph corruption.
	ErrInvalidEdgeEndpoint = errors.New("invalid edge endpoint")

	// ErrMissingRoot is returned by [Graph.Validate] when a non-empty graph
	// has no depth-0 node.
	ErrMissingRoot = errors.New("graph has no root node")

	// ErrMultipleRoots is returned by [Graph.Validate] when more than one
	// node has depth 0.
	ErrMultipleRoots = errors.New("graph has more than one root node")
)

// Graph is a directed multigraph of address nodes and transfer edges.
//
// The zero value is not usable - use New to create a valid Graph instance.
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	nodes    map[string]*Node
	order    []string // insertion order of node IDs
	edges    []Edge
	edgeIdx  map[string]int      // edge ID -> index into edges
	outgoing map[string][]string // node ID -> edge IDs leaving it
	incoming map[string][]string // node ID -> edge IDs entering it
	root     string
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		edgeIdx:  make(map[string]int),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
	}
}

// AddNode adds a node to the graph.
// Returns ErrInvalidNodeID if the node ID is empty, ErrDuplicateNodeID if a
// node with the same ID already exists, or ErrNegativeDepth for a negative
// depth. The first depth-0 node added becomes the root.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if n.Depth < 0 {
		return ErrNegativeDepth
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Pos != nil {
		p := *n.Pos
		n.Pos = &p
	}
	node := &n
	g.nodes[node.ID] = node
	g.order = append(g.order, node.ID)
	if node.Depth == 0 && g.root == "" {
		g.root = node.ID
	}
	return nil
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// AddEdge adds a directed edge between two existing nodes and returns the
// ID assigned to it. Returns ErrUnknownSourceNode or ErrUnknownTargetNode if
// an endpoint doesn't exist; in that case the graph is left unchanged.
func (g *Graph) AddEdge(e Edge) (string, error) {
	if _, ok := g.nodes[e.Source]; !ok {
		return "", ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return "", ErrUnknownTargetNode
	}
	e.ID = "e" + strconv.Itoa(len(g.edges))
	g.edgeIdx[e.ID] = len(g.edges)
	g.edges = append(g.edges, e)
	g.outgoing[e.Source] = append(g.outgoing[e.Source], e.ID)
	g.incoming[e.Target] = append(g.incoming[e.Target], e.ID)
	return e.ID, nil
}

// Node returns the node with the given ID and true, or nil and false if not found.
// The returned pointer refers to the node stored in the graph.
func (g *Graph) Node(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Edge returns a copy of the edge with the given ID.
func (g *Graph) Edge(id string) (Edge, bool) {
	i, ok := g.edgeIdx[id]
	if !ok {
		return Edge{}, false
	}
	return g.edges[i], true
}

// Root returns the source node (the first depth-0 node added).
func (g *Graph) Root() (*Node, bool) {
	if g.root == "" {
		return nil, false
	}
	return g.Node(g.root)
}

// Nodes returns all nodes in insertion order. The returned slice contains
// pointers to the stored nodes, so modifications affect the graph.
func (g *Graph) Nodes() []*Node {
	nodes := make([]*Node, 0, len(g.order))
	for _, id := range g.order {
		nodes = append(nodes, g.nodes[id])
	}
	return nodes
}

// NodeIDs returns all node IDs in insertion order.
func (g *Graph) NodeIDs() []string { return slices.Clone(g.order) }

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge { return slices.Clone(g.edges) }

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// OutEdges returns the IDs of edges leaving the node.
// The returned slice should not be modified.
func (g *Graph) OutEdges(id string) []string { return g.outgoing[id] }

// InEdges returns the IDs of edges entering the node.
// The returned slice should not be modified.
func (g *Graph) InEdges(id string) []string { return g.incoming[id] }

// Degree returns the number of edges incident to the node, counting both
// directions. Returns 0 if the node doesn't exist.
func (g *Graph) Degree(id string) int {
	return len(g.outgoing[id]) + len(g.incoming[id])
}

// MaxDepth returns the largest node depth, or 0 for an empty graph.
func (g *Graph) MaxDepth() int {
	d := 0
	for _, n := range g.nodes {
		d = max(d, n.Depth)
	}
	return d
}

// SetPosition sets the graph-space position of a node.
// It reports false if the node doesn't exist.
func (g *Graph) SetPosition(id string, p Position) bool {
	n, ok := g.nodes[id]
	if !ok {
		return false
	}
	n.Pos = &p
	return true
}

// Positions returns the positions of all placed nodes.
// Nodes without a position are omitted.
func (g *Graph) Positions() map[string]Position {
	out := make(map[string]Position, len(g.nodes))
	for id, n := range g.nodes {
		if n.Pos != nil {
			out[id] = *n.Pos
		}
	}
	return out
}

// NodeAnchor returns a node's position. It reports false when the node
// doesn't exist or isn't positioned yet.
func (g *Graph) NodeAnchor(id string) (Position, bool) {
	n, ok := g.nodes[id]
	if !ok || n.Pos == nil {
		return Position{}, false
	}
	return *n.Pos, true
}

// EdgeAnchor returns the midpoint of an edge's endpoints. Node and edge IDs
// live in separate namespaces, so an account named like an edge never
// shadows it.
func (g *Graph) EdgeAnchor(id string) (Position, bool) {
	e, ok := g.Edge(id)
	if !ok {
		return Position{}, false
	}
	src, okS := g.NodeAnchor(e.Source)
	dst, okD := g.NodeAnchor(e.Target)
	if !okS || !okD {
		return Position{}, false
	}
	return src.Midpoint(dst), true
}

// Bounds returns the bounding box of all placed nodes and false if no node
// has a position.
func (g *Graph) Bounds() (Bounds, bool) {
	var b Bounds
	found := false
	for _, id := range g.order {
		p := g.nodes[id].Pos
		if p == nil {
			continue
		}
		if !found {
			b = Bounds{MinX: p.X, MinY: p.Y, MaxX: p.X, MaxY: p.Y}
			found = true
			continue
		}
		b.MinX, b.MaxX = min(b.MinX, p.X), max(b.MaxX, p.X)
		b.MinY, b.MaxY = min(b.MinY, p.Y), max(b.MaxY, p.Y)
	}
	return b, found
}

// Validate checks graph integrity and returns nil if valid.
// It verifies that every edge connects existing nodes and that a non-empty
// graph has exactly one depth-0 node.
func (g *Graph) Validate() error {
	for _, e := range g.edges {
		_, okS := g.nodes[e.Source]
		_, okT := g.nodes[e.Target]
		if !okS || !okT {
			return ErrInvalidEdgeEndpoint
		}
	}
	if len(g.nodes) == 0 {
		return nil
	}
	roots := 0
	for _, n := range g.nodes {
		if n.Depth == 0 {
			roots++
		}
	}
	switch {
	case roots == 0:
		return ErrMissingRoot
	case roots > 1:
		return ErrMultipleRoots
	}
	return nil
}
