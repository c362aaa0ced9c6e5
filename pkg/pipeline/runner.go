package pipeline

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fraudy/flowgraph/pkg/cache"
	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/observability"
)

// Runner executes the pipeline with caching, logging and observability
// hooks.
//
// The Runner keeps no per-run state: every Execute builds its own graph, so
// one Runner can serve concurrent requests as long as its Cache can.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
	TTL    time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		TTL:    DefaultTTL,
	}
}

// Execute runs build → layout → render.
//
// Seeded requests are served from the cache when every requested format is
// cached. A cancelled context aborts the run and no artifacts are returned.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	cacheable := cache.Cacheable(opts.Seed)
	if !cacheable {
		opts.Seed = rand.Uint64() | 1
	}
	result := &Result{
		Seed:      opts.Seed,
		CacheInfo: CacheInfo{Cacheable: cacheable},
	}

	if cacheable && !opts.Refresh {
		if artifacts, ok := r.cached(ctx, opts); ok {
			result.Artifacts = artifacts
			result.CacheInfo.RenderHit = true
			r.Logger.Debug("served from cache", "address", opts.Address, "formats", opts.Formats)
			return result, nil
		}
	}

	// Stage 1: Build
	g, err := r.build(ctx, opts, result)
	if err != nil {
		return nil, err
	}
	result.Graph = g

	// Stage 2: Layout
	if err := r.layout(ctx, g, opts, result); err != nil {
		return nil, err
	}

	// Stage 3: Render
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnRenderStart(ctx, opts.Formats)
	artifacts, err := Render(ctx, g, opts)
	result.Stats.RenderTime = time.Since(start)
	hooks.OnRenderComplete(ctx, opts.Formats, result.Stats.RenderTime, err)
	if err != nil {
		return nil, err
	}
	result.Artifacts = artifacts
	r.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	if cacheable {
		r.store(ctx, opts, artifacts)
	}
	return result, nil
}

// Graph runs build and layout only, for hosts that render themselves (the
// terminal explorer).
func (r *Runner) Graph(ctx context.Context, opts Options) (*graph.Graph, uint64, error) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, 0, err
	}
	if !cache.Cacheable(opts.Seed) {
		opts.Seed = rand.Uint64() | 1
	}
	var res Result
	g, err := r.build(ctx, opts, &res)
	if err != nil {
		return nil, 0, err
	}
	if err := r.layout(ctx, g, opts, &res); err != nil {
		return nil, 0, err
	}
	return g, opts.Seed, nil
}

func (r *Runner) build(ctx context.Context, opts Options, res *Result) (*graph.Graph, error) {
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnBuildStart(ctx, opts.Address, opts.MaxDepth)
	g, err := Build(opts)
	res.Stats.BuildTime = time.Since(start)
	if err != nil {
		hooks.OnBuildComplete(ctx, opts.Address, 0, 0, res.Stats.BuildTime, err)
		return nil, err
	}
	hooks.OnBuildComplete(ctx, opts.Address, g.NodeCount(), g.EdgeCount(), res.Stats.BuildTime, nil)

	res.Stats.NodeCount = g.NodeCount()
	res.Stats.EdgeCount = g.EdgeCount()
	res.Stats.MaxDepth = g.MaxDepth()
	r.Logger.Info("built graph",
		"address", opts.Address,
		"graph", describe(g),
		"seed", opts.Seed,
		"duration", res.Stats.BuildTime)
	return g, nil
}

func (r *Runner) layout(ctx context.Context, g *graph.Graph, opts Options, res *Result) error {
	hooks := observability.Pipeline()
	start := time.Now()
	hooks.OnLayoutStart(ctx, g.NodeCount(), opts.Iterations)
	err := Layout(ctx, g, opts)
	res.Stats.LayoutTime = time.Since(start)
	hooks.OnLayoutComplete(ctx, res.Stats.LayoutTime, err)
	if err != nil {
		return err
	}
	r.Logger.Info("computed layout",
		"iterations", opts.Iterations,
		"duration", res.Stats.LayoutTime)
	return nil
}

// cached returns artifacts only when every requested format is cached.
func (r *Runner) cached(ctx context.Context, opts Options) (map[string][]byte, bool) {
	hooks := observability.Cache()
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		key := r.Keyer.ArtifactKey(opts.Address, opts.Seed, opts.ArtifactKeyOpts(format))
		data, hit, err := r.Cache.Get(ctx, key)
		if err != nil {
			r.Logger.Warn("cache read failed", "format", format, "error", err)
		}
		if err != nil || !hit {
			hooks.OnCacheMiss(ctx, cache.KeyTypeArtifact)
			return nil, false
		}
		hooks.OnCacheHit(ctx, cache.KeyTypeArtifact)
		artifacts[format] = data
	}
	return artifacts, true
}

func (r *Runner) store(ctx context.Context, opts Options, artifacts map[string][]byte) {
	for format, data := range artifacts {
		key := r.Keyer.ArtifactKey(opts.Address, opts.Seed, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, key, data, r.TTL); err != nil {
			r.Logger.Warn("cache write failed", "format", format, "error", err)
			continue
		}
		observability.Cache().OnCacheSet(ctx, cache.KeyTypeArtifact, len(data))
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}
