package layout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fraudy/flowgraph/pkg/graph"
)

// ErrInvalidParams is returned when solver parameters or the iteration count
// are out of range.
var ErrInvalidParams = errors.New("invalid layout parameters")

// Defaults matching the dashboard's layout settings.
const (
	DefaultIterations   = 200
	DefaultGravity      = 0.1
	DefaultScalingRatio = 10.0
	DefaultSlowDown     = 1.0
	DefaultBatchSize    = 50
	DefaultSeedExtent   = 10.0
)

// Params are the ForceAtlas2 tuning parameters.
type Params struct {
	Gravity      float64 `json:"gravity"`       // Pull toward the centroid, >= 0
	ScalingRatio float64 `json:"scaling_ratio"` // Repulsion strength, > 0
	SlowDown     float64 `json:"slow_down"`     // Divides every displacement, > 0
}

// DefaultParams returns gravity 0.1, scaling ratio 10, slowdown 1.
func DefaultParams() Params {
	return Params{
		Gravity:      DefaultGravity,
		ScalingRatio: DefaultScalingRatio,
		SlowDown:     DefaultSlowDown,
	}
}

// Validate returns an error wrapping ErrInvalidParams if any parameter is
// out of range.
func (p Params) Validate() error {
	switch {
	case math.IsNaN(p.Gravity) || math.IsInf(p.Gravity, 0) || p.Gravity < 0:
		return fmt.Errorf("%w: gravity %v", ErrInvalidParams, p.Gravity)
	case !(p.ScalingRatio > 0) || math.IsInf(p.ScalingRatio, 0):
		return fmt.Errorf("%w: scaling ratio %v", ErrInvalidParams, p.ScalingRatio)
	case !(p.SlowDown > 0) || math.IsInf(p.SlowDown, 0):
		return fmt.Errorf("%w: slowdown %v", ErrInvalidParams, p.SlowDown)
	}
	return nil
}

// Option configures an Engine.
type Option func(*Engine)

// WithParams sets the solver parameters.
func WithParams(p Params) Option { return func(e *Engine) { e.params = p } }

// WithIterations sets the total number of iterations per run.
func WithIterations(n int) Option { return func(e *Engine) { e.iterations = n } }

// WithBatchSize sets how many iterations run between cancellation checks.
// Non-positive values select DefaultBatchSize.
func WithBatchSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchSize = n
		}
	}
}

// WithSeedExtent sets the side of the square that unplaced nodes are
// scattered in before the first iteration.
func WithSeedExtent(v float64) Option {
	return func(e *Engine) {
		if v > 0 {
			e.extent = v
		}
	}
}

// WithLogger sets the logger used for layout diagnostics.
func WithLogger(l *log.Logger) Option { return func(e *Engine) { e.logger = l } }

// Engine runs ForceAtlas2 over a graph and writes the resulting positions
// back into it. An Engine owns its random generator and is not safe for
// concurrent use.
type Engine struct {
	params     Params
	iterations int
	batchSize  int
	extent     float64
	rng        *rand.Rand
	logger     *log.Logger
}

// New creates an Engine drawing initial positions from rng. A nil rng is
// seeded from entropy.
func New(rng *rand.Rand, opts ...Option) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	e := &Engine{
		params:     DefaultParams(),
		iterations: DefaultIterations,
		batchSize:  DefaultBatchSize,
		extent:     DefaultSeedExtent,
		rng:        rng,
		logger:     log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewSeeded creates an Engine with a deterministic generator.
func NewSeeded(seed uint64, opts ...Option) *Engine {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), opts...)
}

// Params returns the solver parameters.
func (e *Engine) Params() Params { return e.params }

// Iterations returns the configured iteration count.
func (e *Engine) Iterations() int { return e.iterations }

// Layout positions every node of g.
//
// Iterations run in batches; between batches the context is checked and the
// goroutine yields. On cancellation the context error is returned and the
// graph is left untouched. On success every node's Pos is set and the same
// positions are returned. An empty graph yields an empty map.
func (e *Engine) Layout(ctx context.Context, g *graph.Graph) (map[string]graph.Position, error) {
	if e.iterations < 0 {
		return nil, fmt.Errorf("%w: iterations %d", ErrInvalidParams, e.iterations)
	}
	if err := e.params.Validate(); err != nil {
		return nil, err
	}
	if g == nil || g.NodeCount() == 0 {
		return map[string]graph.Position{}, nil
	}

	start := time.Now()
	s, err := NewSolver(g, e.params, e.extent, e.rng)
	if err != nil {
		return nil, err
	}

	for done := 0; done < e.iterations; {
		if err := ctx.Err(); err != nil {
			e.logger.Debug("layout cancelled", "iterations", done)
			return nil, err
		}
		n := min(e.batchSize, e.iterations-done)
		s.Step(n)
		done += n
		runtime.Gosched()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pos := s.Positions()
	for id, p := range pos {
		g.SetPosition(id, p)
	}
	e.logger.Debug("layout complete",
		"nodes", s.Len(),
		"iterations", s.Iterations(),
		"duration", time.Since(start))
	return pos, nil
}
