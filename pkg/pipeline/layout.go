package pipeline

import (
	"context"

	ferrors "github.com/fraudy/flowgraph/pkg/errors"
	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/layout"
)

// layoutSalt decorrelates the layout generator from the builder's when both
// are derived from one request seed.
const layoutSalt = 0x5f3759df

// Layout positions every node of g in place.
func Layout(ctx context.Context, g *graph.Graph, opts Options) error {
	e := layout.NewSeeded(opts.Seed^layoutSalt,
		layout.WithParams(opts.Params()),
		layout.WithIterations(opts.Iterations),
		layout.WithLogger(opts.Logger))
	if _, err := e.Layout(ctx, g); err != nil {
		if ctx.Err() != nil {
			return err
		}
		return ferrors.Wrap(ferrors.ErrCodeInvalidOptions, err, "layout")
	}
	return nil
}
