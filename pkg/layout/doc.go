// Package layout computes force-directed positions for transaction graphs.
//
// # Overview
//
// The solver is a ForceAtlas2 variant with linear attraction:
//
//   - every pair of nodes repels with scalingRatio * m1 * m2 / d
//   - every edge pulls its endpoints together in proportion to their distance
//     times the edge weight
//   - gravity pulls every node toward the centroid with strength gravity * m
//
// Node mass is 1 + degree, so hubs push their neighbours further out. Each
// node moves with its own adaptive speed: nodes that oscillate between
// iterations slow down, nodes that move consistently speed up. SlowDown
// divides every displacement.
//
// # Usage
//
//	eng := layout.NewSeeded(42, layout.WithIterations(200))
//	pos, err := eng.Layout(ctx, g)
//
// [Engine.Layout] writes positions into the graph only after the whole run
// completes. For finer control, drive a [Solver] directly:
//
//	s, _ := layout.NewSolver(g, layout.DefaultParams(), 10, rng)
//	for !done {
//	    s.Step(10)
//	    draw(s.Positions())
//	}
//
// # Guarantees
//
// Positions are always finite: a step that would produce NaN or Inf is
// dropped for that node. For a seeded generator, a fixed graph and a fixed
// iteration count the result is deterministic.
package layout
