package pipeline

import (
	"fmt"

	"github.com/fraudy/flowgraph/pkg/builder"
	ferrors "github.com/fraudy/flowgraph/pkg/errors"
	"github.com/fraudy/flowgraph/pkg/graph"
)

// Build synthesizes the transaction graph for opts.Address from opts.Seed.
// The caller must have resolved a non-zero seed.
func Build(opts Options) (*graph.Graph, error) {
	b := builder.NewSeeded(opts.Seed,
		builder.WithOptions(opts.Shape),
		builder.WithLogger(opts.Logger))
	g, err := b.Build(opts.Address, opts.MaxDepth)
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeInvalidAddress, err, "build %s", opts.Address)
	}
	if err := g.Validate(); err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeInternal, err, "built graph is inconsistent")
	}
	if d := g.MaxDepth(); d > opts.MaxDepth {
		return nil, ferrors.New(ferrors.ErrCodeInternal, "graph depth %d exceeds limit %d", d, opts.MaxDepth)
	}
	return g, nil
}

// describe is used in log lines.
func describe(g *graph.Graph) string {
	return fmt.Sprintf("%d nodes, %d edges", g.NodeCount(), g.EdgeCount())
}
