// Package session manages the mount/unmount cycle of an interactive graph
// view.
//
// A [Session] owns at most one [View] at a time: the graph for the current
// address, the renderer it is mounted on and the interaction controller
// listening to that renderer. Loading a new address tears the previous view
// down completely (controller closed, renderer destroyed, graph dropped)
// before anything is built for the new one. There is no incremental update.
//
// # Usage
//
//	s, err := session.New(mount,
//	    session.WithBuilder(builder.NewSeeded(seed)),
//	    session.WithEngine(layout.NewSeeded(seed)),
//	)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	v, err := s.Load(ctx, "GABC...XYZ")
//	// v.Controller receives hover events from v.Renderer
//
// An empty address clears the view without building anything.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/fraudy/flowgraph/pkg/builder"
	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/interact"
	"github.com/fraudy/flowgraph/pkg/layout"
	"github.com/fraudy/flowgraph/pkg/observability"
)

// Sentinel errors for session operations.
var (
	// ErrNoMount is returned by New when no mount function is given.
	ErrNoMount = errors.New("no mount target")

	// ErrClosed is returned by Load after Close.
	ErrClosed = errors.New("session closed")
)

// Mount acquires a rendering surface for a positioned graph. It must fail
// loudly (for example with term.ErrNoSurface) rather than return a renderer
// that draws nothing.
type Mount func(g *graph.Graph) (interact.Renderer, error)

// View is one mounted graph.
type View struct {
	ID         string
	Address    string
	Graph      *graph.Graph
	Renderer   interact.Renderer
	Controller *interact.Controller
	LoadedAt   time.Time
}

// Option configures a Session.
type Option func(*Session)

// WithBuilder sets the graph builder. Defaults to an entropy-seeded builder.
func WithBuilder(b *builder.Builder) Option { return func(s *Session) { s.builder = b } }

// WithEngine sets the layout engine. Defaults to an entropy-seeded engine.
func WithEngine(e *layout.Engine) Option { return func(s *Session) { s.engine = e } }

// WithDepth sets the expansion depth for every load.
func WithDepth(d int) Option { return func(s *Session) { s.depth = d } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(s *Session) { s.logger = l } }

// WithControllerOptions passes options to every controller the session creates.
func WithControllerOptions(opts ...interact.Option) Option {
	return func(s *Session) { s.ctrlOpts = append(s.ctrlOpts, opts...) }
}

// Session drives one view surface through successive addresses.
// It is not safe for concurrent use; call it from the UI loop.
type Session struct {
	ID string

	mount    Mount
	builder  *builder.Builder
	engine   *layout.Engine
	depth    int
	logger   *log.Logger
	ctrlOpts []interact.Option

	current *View
	closed  bool
}

// New creates a session that mounts graphs with mount.
func New(mount Mount, opts ...Option) (*Session, error) {
	if mount == nil {
		return nil, ErrNoMount
	}
	s := &Session{
		ID:     uuid.NewString(),
		mount:  mount,
		depth:  builder.DefaultMaxDepth,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.builder == nil {
		s.builder = builder.New(nil, builder.WithLogger(s.logger))
	}
	if s.engine == nil {
		s.engine = layout.New(nil, layout.WithLogger(s.logger))
	}
	return s, nil
}

// Current returns the mounted view, or nil when nothing is mounted.
func (s *Session) Current() *View { return s.current }

// Load tears down the current view and mounts a freshly built graph for
// address.
//
// An empty address only tears down and returns a nil view. When building,
// laying out or mounting fails (including context cancellation), the error
// is returned and the session is left with no view; a partial result is
// never mounted.
func (s *Session) Load(ctx context.Context, address string) (*View, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.teardown(ctx); err != nil {
		s.logger.Warn("teardown failed", "error", err)
	}
	if address == "" {
		s.logger.Debug("empty address, nothing mounted")
		return nil, nil
	}

	g, err := s.builder.Build(address, s.depth)
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}
	if _, err := s.engine.Layout(ctx, g); err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}

	r, err := s.mount(g)
	if err != nil {
		return nil, fmt.Errorf("mount: %w", err)
	}
	if r == nil {
		return nil, ErrNoMount
	}
	c, err := interact.New(r, g, append([]interact.Option{interact.WithLogger(s.logger)}, s.ctrlOpts...)...)
	if err != nil {
		_ = r.Destroy()
		return nil, err
	}
	if err := c.Attach(); err != nil {
		_ = c.Close()
		return nil, err
	}

	s.current = &View{
		ID:         uuid.NewString(),
		Address:    address,
		Graph:      g,
		Renderer:   r,
		Controller: c,
		LoadedAt:   time.Now(),
	}
	observability.Session().OnMount(ctx, address, g.NodeCount())
	s.logger.Debug("mounted", "address", address, "nodes", g.NodeCount(), "edges", g.EdgeCount())
	return s.current, nil
}

func (s *Session) teardown(ctx context.Context) error {
	v := s.current
	if v == nil {
		return nil
	}
	s.current = nil
	observability.Session().OnTeardown(ctx, v.Address)
	s.logger.Debug("teardown", "address", v.Address)
	return v.Controller.Close()
}

// Close tears down the current view. It is safe to call more than once.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.teardown(context.Background())
}
