package builder

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestBuildInvariants checks the structural guarantees of Build for
// arbitrary seeds and depths.
func TestBuildInvariants(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("depth stays within [0, maxDepth]", prop.ForAll(
		func(seed uint64, maxDepth int) bool {
			g, err := NewSeeded(seed).Build("ADDR", maxDepth)
			if err != nil {
				return false
			}
			for _, n := range g.Nodes() {
				if n.Depth < 0 || n.Depth > maxDepth {
					return false
				}
			}
			return true
		},
		gen.UInt64(),
		gen.IntRange(0, 5),
	))

	properties.Property("root is the unique depth-0 node", prop.ForAll(
		func(seed uint64, maxDepth int) bool {
			g, err := NewSeeded(seed).Build("ADDR", maxDepth)
			if err != nil {
				return false
			}
			roots := 0
			for _, n := range g.Nodes() {
				if n.Depth == 0 {
					roots++
					if n.ID != "ADDR" {
						return false
					}
				}
			}
			return roots == 1
		},
		gen.UInt64(),
		gen.IntRange(0, 5),
	))

	properties.Property("no dangling edges", prop.ForAll(
		func(seed uint64, maxDepth int) bool {
			g, err := NewSeeded(seed).Build("ADDR", maxDepth)
			if err != nil {
				return false
			}
			for _, e := range g.Edges() {
				if !g.HasNode(e.Source) || !g.HasNode(e.Target) {
					return false
				}
			}
			return g.Validate() == nil
		},
		gen.UInt64(),
		gen.IntRange(0, 5),
	))

	properties.Property("first level always expands", prop.ForAll(
		func(seed uint64, maxDepth int) bool {
			g, err := NewSeeded(seed).Build("ADDR", maxDepth)
			if err != nil {
				return false
			}
			return len(g.OutEdges("ADDR")) >= DefaultMinBranch
		},
		gen.UInt64(),
		gen.IntRange(1, 5),
	))

	properties.TestingRun(t)
}
