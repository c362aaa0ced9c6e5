// Package pipeline runs the build → layout → render cycle that turns an
// account address into transaction-graph artifacts.
//
// The CLI, the HTTP server and the address watcher all go through a
// [Runner], so defaults, validation, logging and caching behave the same
// way at every entry point.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Build: Synthesize the transaction graph around the address
//  2. Layout: Run ForceAtlas2 to give every node a position
//  3. Render: Generate output in the requested formats
//
// Each stage can also be run on its own.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.DefaultOptions()
//	opts.Address = "GABC...XYZ"
//	opts.Seed = 42
//	opts.Formats = []string{pipeline.FormatSVG, pipeline.FormatJSON}
//	result, err := runner.Execute(ctx, opts)
//	if err != nil {
//	    return err
//	}
//	svg := result.Artifacts["svg"]
//
// # Caching
//
// A graph is random unless seeded. Artifacts are cached only for requests
// with a non-zero Seed; unseeded requests draw a fresh seed, report it in
// [Result.Seed] and never touch the cache.
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/fraudy/flowgraph/pkg/builder"
	"github.com/fraudy/flowgraph/pkg/cache"
	ferrors "github.com/fraudy/flowgraph/pkg/errors"
	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/layout"
	"github.com/fraudy/flowgraph/pkg/render/nodelink"
	"github.com/fraudy/flowgraph/pkg/theme"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI, API, and Watcher
// =============================================================================

const (
	// DefaultMaxDepth is how many hops the builder expands from the source.
	DefaultMaxDepth = builder.DefaultMaxDepth

	// MaxDepthLimit bounds user-supplied depths. Expansion is exponential in
	// depth, so deeper requests are rejected rather than clamped.
	MaxDepthLimit = 8

	// DefaultIterations is the number of ForceAtlas2 iterations.
	DefaultIterations = layout.DefaultIterations

	// MaxIterationsLimit bounds user-supplied iteration counts.
	MaxIterationsLimit = 5000

	// DefaultWidth is the SVG viewport width in pixels.
	DefaultWidth = 1200.0

	// DefaultTTL is how long cached artifacts live.
	DefaultTTL = 24 * time.Hour
)

// Format constants for output formats.
const (
	FormatSVG      = "svg"      // interactive SVG with hover tooltips
	FormatJSON     = "json"     // scene description for browser renderers
	FormatYAML     = "yaml"     // scene description, YAML
	FormatDOT      = "dot"      // Graphviz source with pinned positions
	FormatGraphviz = "graphviz" // static SVG drawn by Graphviz
	FormatPNG      = "png"      // Graphviz drawing rasterized by rsvg-convert
	FormatPDF      = "pdf"      // Graphviz drawing converted by rsvg-convert
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:      true,
	FormatJSON:     true,
	FormatYAML:     true,
	FormatDOT:      true,
	FormatGraphviz: true,
	FormatPNG:      true,
	FormatPDF:      true,
}

// ContentTypes maps formats to HTTP content types.
var ContentTypes = map[string]string{
	FormatSVG:      "image/svg+xml",
	FormatJSON:     "application/json",
	FormatYAML:     "application/yaml",
	FormatDOT:      "text/vnd.graphviz",
	FormatGraphviz: "image/svg+xml",
	FormatPNG:      "image/png",
	FormatPDF:      "application/pdf",
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for one pipeline run.
// This struct supports JSON serialization for API requests.
//
// Zero depth and zero iterations are meaningful (root only, unlaid-out
// seed positions), so start from DefaultOptions rather than a zero value.
type Options struct {
	// Build options
	Address  string          `json:"address"`
	MaxDepth int             `json:"max_depth" validate:"gte=0,lte=8"`
	Seed     uint64          `json:"seed,omitempty"`
	Shape    builder.Options `json:"-" validate:"-"`

	// Layout options
	Iterations   int     `json:"iterations" validate:"gte=0,lte=5000"`
	Gravity      float64 `json:"gravity" validate:"gte=0"`
	ScalingRatio float64 `json:"scaling_ratio" validate:"gt=0"`
	SlowDown     float64 `json:"slow_down" validate:"gt=0"`

	// Render options
	Formats  []string `json:"formats" validate:"required,min=1,dive,oneof=svg json yaml dot graphviz png pdf"`
	Theme    string   `json:"theme" validate:"omitempty,oneof=light dark"`
	Engine   string   `json:"engine,omitempty" validate:"omitempty,oneof=dot neato fdp sfdp twopi"`
	Width    float64  `json:"width,omitempty" validate:"gte=0"`
	Tooltips bool     `json:"tooltips"`

	// Refresh bypasses cache reads; fresh results are still written.
	Refresh bool `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-" validate:"-"`
}

// DefaultOptions returns options matching the dashboard's defaults.
func DefaultOptions() Options {
	p := layout.DefaultParams()
	return Options{
		MaxDepth:     DefaultMaxDepth,
		Shape:        builder.DefaultOptions(),
		Iterations:   DefaultIterations,
		Gravity:      p.Gravity,
		ScalingRatio: p.ScalingRatio,
		SlowDown:     p.SlowDown,
		Formats:      []string{FormatSVG},
		Theme:        string(theme.DefaultMode),
		Width:        DefaultWidth,
		Tooltips:     true,
	}
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the positioned graph. It is nil when every artifact came
	// from the cache.
	Graph *graph.Graph

	// Seed reproduces this result when passed back in Options.Seed.
	Seed uint64

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks whether the artifacts came from the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodeCount  int
	EdgeCount  int
	MaxDepth   int
	BuildTime  time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo reports cache usage for a run.
type CacheInfo struct {
	Cacheable bool // Whether the request was seeded
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return ferrors.New(ferrors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: svg, json, yaml, dot, graphviz, png, pdf)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// Validate checks every field. The address rules come from
// errors.ValidateAddress; the rest from struct tags.
func (o *Options) Validate() error {
	if err := ferrors.ValidateAddress(o.Address); err != nil {
		return err
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := ferrors.ValidateStruct(o); err != nil {
		return err
	}
	if _, err := theme.ParseMode(o.Theme); err != nil {
		return ferrors.Wrap(ferrors.ErrCodeInvalidTheme, err, "theme")
	}
	return nil
}

// SetDefaults fills fields whose zero value is never valid. MaxDepth,
// Iterations, Gravity and Seed are left alone because zero means something
// for each of them.
func (o *Options) SetDefaults() {
	d := DefaultOptions()
	if len(o.Formats) == 0 {
		o.Formats = d.Formats
	}
	if o.Theme == "" {
		o.Theme = d.Theme
	}
	if o.ScalingRatio == 0 {
		o.ScalingRatio = d.ScalingRatio
	}
	if o.SlowDown == 0 {
		o.SlowDown = d.SlowDown
	}
	if o.Width == 0 {
		o.Width = d.Width
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateAndSetDefaults applies defaults, then validates.
func (o *Options) ValidateAndSetDefaults() error {
	o.SetDefaults()
	return o.Validate()
}

// Params returns the solver parameters.
func (o *Options) Params() layout.Params {
	return layout.Params{Gravity: o.Gravity, ScalingRatio: o.ScalingRatio, SlowDown: o.SlowDown}
}

// Palette returns the palette for the configured theme.
func (o *Options) Palette() theme.Palette {
	m, err := theme.ParseMode(o.Theme)
	if err != nil {
		m = theme.DefaultMode
	}
	return theme.PaletteFor(m)
}

// GraphvizEngine returns the configured engine, neato by default.
func (o *Options) GraphvizEngine() nodelink.Engine {
	e, err := nodelink.ParseEngine(o.Engine)
	if err != nil {
		return nodelink.EngineNeato
	}
	return e
}

// ArtifactKeyOpts returns cache key options for one rendered format.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{
		Depth:      o.MaxDepth,
		Iterations: o.Iterations,
		Gravity:    o.Gravity,
		Scaling:    o.ScalingRatio,
		SlowDown:   o.SlowDown,
		Format:     format,
		Theme:      o.Theme,
		Shape:      fmt.Sprintf("%+v", o.Shape),
	}
	switch format {
	case FormatSVG:
		k.Width = o.Width
		if !o.Tooltips {
			k.Engine = "static"
		}
	case FormatDOT, FormatGraphviz, FormatPNG, FormatPDF:
		k.Engine = string(o.GraphvizEngine())
	}
	return k
}

// String summarizes the options for logs.
func (o Options) String() string {
	return fmt.Sprintf("address=%s depth=%d iterations=%d seed=%d formats=%v",
		o.Address, o.MaxDepth, o.Iterations, o.Seed, o.Formats)
}
