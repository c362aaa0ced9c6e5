// Package config loads flowgraph settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/flowgraph/config.toml (falling back to
// ~/.config). A missing file yields Default(); CLI flags override whatever
// the file says.
//
//	[graph]
//	max_depth = 3
//	return_prob = 0.3
//
//	[layout]
//	iterations = 200
//
//	[theme]
//	mode = "dark"
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/fraudy/flowgraph/pkg/builder"
	"github.com/fraudy/flowgraph/pkg/cache"
	ferrors "github.com/fraudy/flowgraph/pkg/errors"
	"github.com/fraudy/flowgraph/pkg/feed"
	"github.com/fraudy/flowgraph/pkg/layout"
	"github.com/fraudy/flowgraph/pkg/pipeline"
	"github.com/fraudy/flowgraph/pkg/theme"
)

// AppName names the config and cache directories.
const AppName = "flowgraph"

// Config holds flowgraph configuration.
type Config struct {
	Graph  GraphConfig  `toml:"graph"`
	Layout LayoutConfig `toml:"layout"`
	Theme  ThemeConfig  `toml:"theme"`
	Server ServerConfig `toml:"server"`
	Redis  RedisConfig  `toml:"redis"`
	Cache  CacheConfig  `toml:"cache"`
}

// GraphConfig shapes synthesized graphs.
type GraphConfig struct {
	MaxDepth     int     `toml:"max_depth"`
	MinBranch    int     `toml:"min_branch"`
	MaxBranch    int     `toml:"max_branch"`
	ContinueProb float64 `toml:"continue_prob"`
	ReturnProb   float64 `toml:"return_prob"`
	FlagProb     float64 `toml:"flag_prob"`
	MaxAmount    int     `toml:"max_amount"`
	Currency     string  `toml:"currency"`
}

// LayoutConfig tunes ForceAtlas2.
type LayoutConfig struct {
	Iterations   int     `toml:"iterations"`
	Gravity      float64 `toml:"gravity"`
	ScalingRatio float64 `toml:"scaling_ratio"`
	SlowDown     float64 `toml:"slow_down"`
	BatchSize    int     `toml:"batch_size"`
}

// ThemeConfig selects the palette.
type ThemeConfig struct {
	Mode string `toml:"mode"` // "light" or "dark"
}

// ServerConfig configures `flowgraph serve`.
type ServerConfig struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
}

// RedisConfig configures the artifact cache and the address feed.
type RedisConfig struct {
	Addr     string   `toml:"addr"` // empty disables Redis
	Channel  string   `toml:"channel"`
	CacheTTL Duration `toml:"cache_ttl"`
	Prefix   string   `toml:"prefix"`
}

// CacheConfig configures the local artifact cache.
type CacheConfig struct {
	Enabled bool `toml:"enabled"`
}

// Duration is a time.Duration written as a string ("24h") in TOML.
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the default configuration.
func Default() *Config {
	shape := builder.DefaultOptions()
	p := layout.DefaultParams()
	return &Config{
		Graph: GraphConfig{
			MaxDepth:     builder.DefaultMaxDepth,
			MinBranch:    shape.MinBranch,
			MaxBranch:    shape.MaxBranch,
			ContinueProb: shape.ContinueProb,
			ReturnProb:   shape.ReturnProb,
			FlagProb:     shape.FlagProb,
			MaxAmount:    shape.MaxAmount,
			Currency:     shape.Currency,
		},
		Layout: LayoutConfig{
			Iterations:   layout.DefaultIterations,
			Gravity:      p.Gravity,
			ScalingRatio: p.ScalingRatio,
			SlowDown:     p.SlowDown,
			BatchSize:    layout.DefaultBatchSize,
		},
		Theme:  ThemeConfig{Mode: string(theme.DefaultMode)},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration{10 * time.Second},
			WriteTimeout: Duration{30 * time.Second},
		},
		Redis: RedisConfig{
			Channel:  feed.DefaultChannel,
			CacheTTL: Duration{pipeline.DefaultTTL},
			Prefix:   cache.DefaultRedisPrefix,
		},
		Cache: CacheConfig{Enabled: true},
	}
}

// Dir returns the flowgraph config directory.
func Dir() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, AppName)
}

// DefaultPath returns the config file path.
func DefaultPath() string { return filepath.Join(Dir(), "config.toml") }

// Load reads the config at path ("" for DefaultPath) over Default().
// A missing file is not an error. Unknown keys are rejected so typos do
// not silently fall back to defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.decode(string(data)); err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeInvalidConfig, err, "%s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeInvalidConfig, err, "%s", path)
	}
	return cfg, nil
}

func (c *Config) decode(doc string) error {
	md, err := toml.Decode(doc, c)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// Save writes cfg to path ("" for DefaultPath).
func Save(cfg *Config, path string) error {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Encode returns cfg as TOML.
func (c *Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	err := toml.NewEncoder(&buf).Encode(c)
	return buf.Bytes(), err
}

// Set assigns one dotted key ("graph.max_depth") from its string form and
// validates the result. On error c is unchanged.
func (c *Config) Set(key, value string) error {
	section, name, ok := strings.Cut(key, ".")
	if !ok || section == "" || name == "" || strings.Contains(name, ".") {
		return ferrors.New(ferrors.ErrCodeInvalidConfig, "key must look like section.name, got %q", key)
	}
	next := *c
	doc := fmt.Sprintf("[%s]\n%s = %s\n", section, name, literal(value))
	if err := next.decode(doc); err != nil {
		return ferrors.Wrap(ferrors.ErrCodeInvalidConfig, err, "set %s", key)
	}
	if err := next.Validate(); err != nil {
		return ferrors.Wrap(ferrors.ErrCodeInvalidConfig, err, "set %s", key)
	}
	*c = next
	return nil
}

// literal renders a CLI value as a TOML literal: numbers and booleans as-is,
// everything else quoted.
func literal(v string) string {
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return v
	}
	if v == "true" || v == "false" {
		return v
	}
	return strconv.Quote(v)
}

// Validate checks ranges that the pipeline would reject anyway, so a bad
// file fails at load time.
func (c *Config) Validate() error {
	if _, err := theme.ParseMode(c.Theme.Mode); err != nil {
		return err
	}
	if c.Graph.MaxDepth < 0 || c.Graph.MaxDepth > pipeline.MaxDepthLimit {
		return fmt.Errorf("graph.max_depth must be in [0, %d]", pipeline.MaxDepthLimit)
	}
	if !isProb(c.Graph.ContinueProb) || !isProb(c.Graph.ReturnProb) || !isProb(c.Graph.FlagProb) {
		return errors.New("graph probabilities must be in [0, 1]")
	}
	if c.Layout.Iterations < 0 || c.Layout.Iterations > pipeline.MaxIterationsLimit {
		return fmt.Errorf("layout.iterations must be in [0, %d]", pipeline.MaxIterationsLimit)
	}
	if err := c.Params().Validate(); err != nil {
		return err
	}
	if c.Layout.BatchSize < 0 {
		return errors.New("layout.batch_size must not be negative")
	}
	return nil
}

func isProb(p float64) bool { return p >= 0 && p <= 1 }

// Shape returns the builder options.
func (c *Config) Shape() builder.Options {
	return builder.Options{
		MinBranch:    c.Graph.MinBranch,
		MaxBranch:    c.Graph.MaxBranch,
		ContinueProb: c.Graph.ContinueProb,
		ReturnProb:   c.Graph.ReturnProb,
		FlagProb:     c.Graph.FlagProb,
		MaxAmount:    c.Graph.MaxAmount,
		Currency:     c.Graph.Currency,
	}
}

// Params returns the layout parameters.
func (c *Config) Params() layout.Params {
	return layout.Params{
		Gravity:      c.Layout.Gravity,
		ScalingRatio: c.Layout.ScalingRatio,
		SlowDown:     c.Layout.SlowDown,
	}
}

// PipelineOptions returns pipeline options seeded from the config.
func (c *Config) PipelineOptions() pipeline.Options {
	o := pipeline.DefaultOptions()
	o.MaxDepth = c.Graph.MaxDepth
	o.Shape = c.Shape()
	o.Iterations = c.Layout.Iterations
	o.Gravity = c.Layout.Gravity
	o.ScalingRatio = c.Layout.ScalingRatio
	o.SlowDown = c.Layout.SlowDown
	o.Theme = c.Theme.Mode
	return o
}
