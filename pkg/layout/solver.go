package layout

import (
	"math"
	"math/rand/v2"

	"github.com/fraudy/flowgraph/pkg/graph"
)

// jitter is the magnitude of the random offset used to separate coincident
// nodes, which otherwise exert no repulsion on each other.
const jitter = 1e-3

type body struct {
	x, y         float64
	dx, dy       float64
	oldDx, oldDy float64
	mass         float64
	convergence  float64
}

type spring struct {
	a, b   int
	weight float64
}

// Solver is the stepwise ForceAtlas2 integrator behind [Engine].
//
// Use it directly to interleave iterations with other work; [Engine.Layout]
// is the batch-and-yield driver around it. A Solver keeps its own copy of the
// positions and never writes into the graph it was created from.
type Solver struct {
	ids     []string
	index   map[string]int
	bodies  []body
	springs []spring
	params  Params
	rng     *rand.Rand
	iter    int
}

// NewSolver prepares a solver for g. Nodes that already carry a position
// start from it; all others get a uniform random position in
// [0, extent) x [0, extent) drawn from rng.
func NewSolver(g *graph.Graph, p Params, extent float64, rng *rand.Rand) (*Solver, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if extent <= 0 || math.IsNaN(extent) || math.IsInf(extent, 0) {
		extent = DefaultSeedExtent
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	nodes := g.Nodes()
	s := &Solver{
		ids:    make([]string, len(nodes)),
		index:  make(map[string]int, len(nodes)),
		bodies: make([]body, len(nodes)),
		params: p,
		rng:    rng,
	}
	for i, n := range nodes {
		s.ids[i] = n.ID
		s.index[n.ID] = i
		b := body{mass: 1 + float64(g.Degree(n.ID)), convergence: 1}
		if n.Pos != nil && n.Pos.IsFinite() {
			b.x, b.y = n.Pos.X, n.Pos.Y
		} else {
			b.x, b.y = rng.Float64()*extent, rng.Float64()*extent
		}
		s.bodies[i] = b
	}
	for _, e := range g.Edges() {
		a, okA := s.index[e.Source]
		b, okB := s.index[e.Target]
		if !okA || !okB || a == b {
			continue
		}
		s.springs = append(s.springs, spring{a: a, b: b, weight: e.EffectiveWeight()})
	}
	return s, nil
}

// Iterations returns the number of iterations performed so far.
func (s *Solver) Iterations() int { return s.iter }

// Len returns the number of nodes being laid out.
func (s *Solver) Len() int { return len(s.bodies) }

// Step runs n iterations. Non-positive n is a no-op.
func (s *Solver) Step(n int) {
	if len(s.bodies) == 0 {
		s.iter += max(n, 0)
		return
	}
	for range max(n, 0) {
		s.iterate()
		s.iter++
	}
}

// Positions returns the current position of every node.
func (s *Solver) Positions() map[string]graph.Position {
	out := make(map[string]graph.Position, len(s.bodies))
	for i, b := range s.bodies {
		out[s.ids[i]] = graph.Position{X: b.x, Y: b.y}
	}
	return out
}

func (s *Solver) iterate() {
	bodies := s.bodies
	for i := range bodies {
		b := &bodies[i]
		b.oldDx, b.oldDy = b.dx, b.dy
		b.dx, b.dy = 0, 0
	}

	s.repulse()
	s.gravitate()
	s.attract()
	s.integrate()
}

// repulse applies scalingRatio * m1 * m2 / d between every pair of nodes.
func (s *Solver) repulse() {
	bodies := s.bodies
	k := s.params.ScalingRatio
	for i := 0; i < len(bodies); i++ {
		n1 := &bodies[i]
		for j := i + 1; j < len(bodies); j++ {
			n2 := &bodies[j]
			xd, yd := n1.x-n2.x, n1.y-n2.y
			d2 := xd*xd + yd*yd
			if d2 == 0 {
				xd = (s.rng.Float64() - 0.5) * jitter
				yd = (s.rng.Float64() - 0.5) * jitter
				d2 = xd*xd + yd*yd
				if d2 == 0 {
					continue
				}
			}
			f := k * n1.mass * n2.mass / d2
			n1.dx += xd * f
			n1.dy += yd * f
			n2.dx -= xd * f
			n2.dy -= yd * f
		}
	}
}

// gravitate pulls every node toward the centroid with gravity * mass.
func (s *Solver) gravitate() {
	bodies := s.bodies
	var cx, cy float64
	for _, b := range bodies {
		cx += b.x
		cy += b.y
	}
	cx /= float64(len(bodies))
	cy /= float64(len(bodies))

	g := s.params.Gravity
	for i := range bodies {
		b := &bodies[i]
		xd, yd := b.x-cx, b.y-cy
		d := math.Sqrt(xd*xd + yd*yd)
		if d == 0 {
			continue
		}
		f := g * b.mass / d
		b.dx -= xd * f
		b.dy -= yd * f
	}
}

// attract pulls the endpoints of every edge together, linearly in distance
// and scaled by edge weight.
func (s *Solver) attract() {
	bodies := s.bodies
	for _, sp := range s.springs {
		n1, n2 := &bodies[sp.a], &bodies[sp.b]
		xd, yd := n1.x-n2.x, n1.y-n2.y
		f := -sp.weight
		n1.dx += xd * f
		n1.dy += yd * f
		n2.dx -= xd * f
		n2.dy -= yd * f
	}
}

// integrate moves every node by its force times an adaptive local speed.
// Oscillating nodes (high swing) slow down; nodes moving consistently
// (high traction) speed up. A move that would leave a non-finite coordinate
// is dropped.
func (s *Solver) integrate() {
	slow := s.params.SlowDown
	for i := range s.bodies {
		b := &s.bodies[i]
		swing := b.mass * math.Sqrt(sq(b.oldDx-b.dx)+sq(b.oldDy-b.dy))
		traction := math.Sqrt(sq(b.oldDx+b.dx)+sq(b.oldDy+b.dy)) / 2
		speed := b.convergence * math.Log1p(traction) / (1 + math.Sqrt(swing))
		conv := math.Min(1, math.Sqrt(speed*(sq(b.dx)+sq(b.dy))/(1+math.Sqrt(swing))))

		nx := b.x + b.dx*(speed/slow)
		ny := b.y + b.dy*(speed/slow)
		if !finite(nx) || !finite(ny) || !finite(conv) {
			b.dx, b.dy = 0, 0
			continue
		}
		b.x, b.y = nx, ny
		b.convergence = conv
	}
}

func sq(v float64) float64 { return v * v }

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
