// Package builder synthesizes plausible multi-hop transaction graphs.
//
// Given a source address, [Builder.Build] produces a [graph.Graph] rooted at
// that address by expanding it breadth-first: every expanded node sends funds
// to a small random number of recipients, some of which are expanded in turn,
// and some of which send part of the amount back. Expansion stops at the
// requested depth, so termination never depends on the random draws.
//
// The data is synthetic. Nothing here talks to a ledger.
//
// # Determinism
//
// All randomness comes from the generator passed to [New]. Use [NewSeeded]
// in tests to get the same graph for the same seed:
//
//	b := builder.NewSeeded(42)
//	g, err := b.Build("GABC...XYZ", 3)
package builder

import (
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/theme"
)

// ErrEmptyAddress is returned by Build when the source address is empty.
var ErrEmptyAddress = errors.New("source address must not be empty")

// Defaults for Options.
const (
	DefaultMaxDepth     = 3
	DefaultMinBranch    = 2
	DefaultMaxBranch    = 4
	DefaultContinueProb = 0.7
	DefaultReturnProb   = 0.3
	DefaultMaxAmount    = 100
	DefaultCurrency     = "XLM"
	DefaultMinNodeSize  = 4.0
)

const (
	rootSize      = 30.0
	childBaseSize = 22.0
	sizeStep      = 3.0
	historyWindow = 30 * 24 * time.Hour
	dateLayout    = "2006-01-02"
)

// Options tunes the shape of synthesized graphs. The probabilities are
// presentation parameters, not a model of real fund flows.
type Options struct {
	MinBranch    int     // Minimum children per expanded node
	MaxBranch    int     // Maximum children per expanded node
	ContinueProb float64 // Probability that a child is expanded further
	ReturnProb   float64 // Probability of a return edge (never from the root's children)
	FlagProb     float64 // Probability that a non-root forward edge is coloured as suspicious
	MaxAmount    int     // Forward amounts are drawn from [1, MaxAmount]
	Currency     string  // Unit appended to amounts
	MinNodeSize  float64 // Floor for the depth-decreasing node size
}

// DefaultOptions returns the options matching the dashboard's mock data.
func DefaultOptions() Options {
	return Options{
		MinBranch:    DefaultMinBranch,
		MaxBranch:    DefaultMaxBranch,
		ContinueProb: DefaultContinueProb,
		ReturnProb:   DefaultReturnProb,
		MaxAmount:    DefaultMaxAmount,
		Currency:     DefaultCurrency,
		MinNodeSize:  DefaultMinNodeSize,
	}
}

// normalize fills zero fields with defaults and repairs inconsistent ranges.
func (o Options) normalize() Options {
	d := DefaultOptions()
	if o.MinBranch <= 0 {
		o.MinBranch = d.MinBranch
	}
	if o.MaxBranch < o.MinBranch {
		o.MaxBranch = max(o.MinBranch, d.MaxBranch)
	}
	o.ContinueProb = clampProb(o.ContinueProb)
	o.ReturnProb = clampProb(o.ReturnProb)
	o.FlagProb = clampProb(o.FlagProb)
	if o.MaxAmount <= 0 {
		o.MaxAmount = d.MaxAmount
	}
	if o.Currency == "" {
		o.Currency = d.Currency
	}
	if o.MinNodeSize <= 0 {
		o.MinNodeSize = d.MinNodeSize
	}
	return o
}

func clampProb(p float64) float64 {
	if math.IsNaN(p) {
		return 0
	}
	return max(0, min(p, 1))
}

// Option configures a Builder.
type Option func(*Builder)

// WithOptions replaces the graph shape options.
func WithOptions(o Options) Option { return func(b *Builder) { b.opts = o.normalize() } }

// WithLogger sets the logger used for build diagnostics.
func WithLogger(l *log.Logger) Option { return func(b *Builder) { b.logger = l } }

// WithClock sets the time source used for the dates in node and edge details.
func WithClock(now func() time.Time) Option { return func(b *Builder) { b.now = now } }

// Builder synthesizes transaction graphs. A Builder keeps no reference to
// the graphs it returns; it is not safe for concurrent use because it owns
// its random generator.
type Builder struct {
	rng    *rand.Rand
	opts   Options
	logger *log.Logger
	now    func() time.Time
}

// New creates a Builder drawing from rng. A nil rng is seeded from entropy.
func New(rng *rand.Rand, opts ...Option) *Builder {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	b := &Builder{
		rng:    rng,
		opts:   DefaultOptions(),
		logger: log.NewWithOptions(io.Discard, log.Options{}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewSeeded creates a Builder with a deterministic generator.
func NewSeeded(seed uint64, opts ...Option) *Builder {
	return New(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), opts...)
}

// Options returns the effective graph shape options.
func (b *Builder) Options() Options { return b.opts }

type workItem struct {
	id    string
	depth int
}

// Build synthesizes a graph rooted at address.
//
// Every node has 0 <= Depth <= maxDepth and the root is the only depth-0
// node. A negative maxDepth is clamped to 0, which yields a single isolated
// root. Returns ErrEmptyAddress for an empty address.
func (b *Builder) Build(address string, maxDepth int) (*graph.Graph, error) {
	if address == "" {
		return nil, ErrEmptyAddress
	}
	if maxDepth < 0 {
		b.logger.Warn("negative depth clamped", "max_depth", maxDepth)
		maxDepth = 0
	}

	g := graph.New()
	root := graph.Node{
		ID:    address,
		Label: "Source: " + shorten(address) + "...",
		Depth: 0,
		Size:  rootSize,
		Color: theme.TokenSource,
	}
	if err := g.AddNode(root); err != nil {
		return nil, fmt.Errorf("add root: %w", err)
	}

	queue := []workItem{{id: address, depth: 0}}
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if item.depth >= maxDepth {
			continue
		}
		next, err := b.expand(g, item, maxDepth)
		if err != nil {
			return nil, err
		}
		queue = append(queue, next...)
	}

	b.describeRoot(g, address)
	b.logger.Debug("built graph",
		"address", address,
		"max_depth", maxDepth,
		"nodes", g.NodeCount(),
		"edges", g.EdgeCount())
	return g, nil
}

// expand adds the children of one node and returns those selected for
// further expansion.
func (b *Builder) expand(g *graph.Graph, parent workItem, maxDepth int) ([]workItem, error) {
	o := b.opts
	branches := o.MinBranch + b.rng.IntN(o.MaxBranch-o.MinBranch+1)
	childDepth := parent.depth + 1

	var next []workItem
	for i := 1; i <= branches; i++ {
		childID := fmt.Sprintf("%s_T%d_%d", parent.id, parent.depth, i)
		amount := 1 + b.rng.IntN(o.MaxAmount)

		if !g.HasNode(childID) {
			if err := g.AddNode(b.childNode(childID, parent.depth, i)); err != nil {
				return nil, fmt.Errorf("add node %s: %w", childID, err)
			}
		}

		color := theme.TokenEdge
		if parent.depth > 0 && o.FlagProb > 0 && b.rng.Float64() < o.FlagProb {
			color = theme.TokenReversal
		}

		fwd := graph.Edge{
			Source: parent.id,
			Target: childID,
			Label:  b.amount(float64(amount)),
			Kind:   graph.KindForward,
			Color:  color,
			Amount: float64(amount),
			Details: strings.Join([]string{
				"Transfer",
				"From: " + parent.id,
				"To: " + childID,
				"Amount: " + b.amount(float64(amount)),
				"Date: " + b.now().Format(dateLayout),
			}, "\n"),
		}
		if _, err := g.AddEdge(fwd); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", parent.id, childID, err)
		}

		if childDepth < maxDepth && b.rng.Float64() < o.ContinueProb {
			next = append(next, workItem{id: childID, depth: childDepth})
		}

		if parent.depth > 0 && b.rng.Float64() < o.ReturnProb {
			back := float64(amount / 2)
			ret := graph.Edge{
				Source: childID,
				Target: parent.id,
				Label:  b.amount(back),
				Kind:   graph.KindReturn,
				Color:  theme.TokenReversal,
				Amount: back,
				Details: strings.Join([]string{
					"Return Transaction",
					"From: " + childID,
					"To: " + parent.id,
					"Amount: " + b.amount(back),
				}, "\n"),
			}
			if _, err := g.AddEdge(ret); err != nil {
				return nil, fmt.Errorf("add return edge %s->%s: %w", childID, parent.id, err)
			}
		}
	}
	return next, nil
}

func (b *Builder) childNode(id string, parentDepth, branch int) graph.Node {
	o := b.opts
	label := fmt.Sprintf("Node %d-%d", parentDepth, branch)
	if parentDepth == 0 {
		label = fmt.Sprintf("Recipient %d", branch)
	}
	received := 50 + b.rng.IntN(200)
	sent := b.rng.IntN(150)
	firstTx := b.now().Add(-time.Duration(b.rng.Int64N(int64(historyWindow))))

	return graph.Node{
		ID:    id,
		Label: label,
		Depth: parentDepth + 1,
		Size:  max(childBaseSize-sizeStep*float64(parentDepth), o.MinNodeSize),
		Color: theme.TierToken(parentDepth + 1),
		Details: strings.Join([]string{
			label,
			"Address: " + id,
			"Total Received: " + b.amount(float64(received)),
			"Total Sent: " + b.amount(float64(sent)),
			"First Tx: " + firstTx.Format(dateLayout),
		}, "\n"),
	}
}

// describeRoot fills the root details from the edges synthesized around it.
func (b *Builder) describeRoot(g *graph.Graph, address string) {
	root, ok := g.Node(address)
	if !ok {
		return
	}
	var sent, received float64
	for _, id := range g.OutEdges(address) {
		if e, ok := g.Edge(id); ok {
			sent += e.Amount
		}
	}
	for _, id := range g.InEdges(address) {
		if e, ok := g.Edge(id); ok {
			received += e.Amount
		}
	}
	root.Details = strings.Join([]string{
		"Main Account",
		"Address: " + address,
		"Total Sent: " + b.amount(sent),
		"Total Received: " + b.amount(received),
	}, "\n")
}

func (b *Builder) amount(v float64) string {
	return fmt.Sprintf("%g %s", v, b.opts.Currency)
}

func shorten(address string) string {
	r := []rune(address)
	if len(r) <= 6 {
		return address
	}
	return string(r[:6])
}
