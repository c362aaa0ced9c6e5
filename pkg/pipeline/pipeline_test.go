package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fraudy/flowgraph/pkg/cache"
	ferrors "github.com/fraudy/flowgraph/pkg/errors"
	"github.com/fraudy/flowgraph/pkg/observability"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"json", false},
		{"yaml", false},
		{"dot", false},
		{"graphviz", false},
		{"png", false},
		{"pdf", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !ferrors.Is(err, ferrors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %q", tt.format, ferrors.GetCode(err))
		}
	}
}

func TestOptionsValidate(t *testing.T) {
	valid := func() Options {
		o := DefaultOptions()
		o.Address = "ADDR1"
		return o
	}
	tests := []struct {
		name   string
		modify func(*Options)
		code   ferrors.Code
	}{
		{"defaults", func(*Options) {}, ""},
		{"depth zero", func(o *Options) { o.MaxDepth = 0 }, ""},
		{"iterations zero", func(o *Options) { o.Iterations = 0 }, ""},
		{"no gravity", func(o *Options) { o.Gravity = 0 }, ""},
		{"empty address", func(o *Options) { o.Address = "" }, ferrors.ErrCodeInvalidAddress},
		{"bad address", func(o *Options) { o.Address = "a/b" }, ferrors.ErrCodeInvalidAddress},
		{"negative depth", func(o *Options) { o.MaxDepth = -1 }, ferrors.ErrCodeInvalidOptions},
		{"too deep", func(o *Options) { o.MaxDepth = MaxDepthLimit + 1 }, ferrors.ErrCodeInvalidOptions},
		{"too many iterations", func(o *Options) { o.Iterations = MaxIterationsLimit + 1 }, ferrors.ErrCodeInvalidOptions},
		{"negative gravity", func(o *Options) { o.Gravity = -1 }, ferrors.ErrCodeInvalidOptions},
		{"zero slowdown", func(o *Options) { o.SlowDown = 0 }, ferrors.ErrCodeInvalidOptions},
		{"unknown format", func(o *Options) { o.Formats = []string{"svg", "gif"} }, ferrors.ErrCodeInvalidFormat},
		{"no formats", func(o *Options) { o.Formats = nil }, ferrors.ErrCodeInvalidOptions},
		{"unknown theme", func(o *Options) { o.Theme = "sepia" }, ferrors.ErrCodeInvalidOptions},
		{"unknown engine", func(o *Options) { o.Engine = "osage" }, ferrors.ErrCodeInvalidOptions},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := valid()
			tt.modify(&o)
			err := o.Validate()
			if got := ferrors.GetCode(err); got != tt.code {
				t.Errorf("Validate() = %v, want code %q", err, tt.code)
			}
		})
	}
}

func TestSetDefaults(t *testing.T) {
	o := Options{Address: "ADDR1"}
	o.SetDefaults()

	if o.MaxDepth != 0 || o.Iterations != 0 || o.Gravity != 0 {
		t.Errorf("meaningful zeros overwritten: depth=%d iterations=%d gravity=%v", o.MaxDepth, o.Iterations, o.Gravity)
	}
	if len(o.Formats) != 1 || o.Formats[0] != FormatSVG {
		t.Errorf("Formats = %v", o.Formats)
	}
	if o.ScalingRatio == 0 || o.SlowDown == 0 || o.Width == 0 || o.Theme == "" || o.Logger == nil {
		t.Errorf("defaults not applied: %+v", o)
	}
	if err := o.Validate(); err != nil {
		t.Errorf("defaulted options invalid: %v", err)
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	o := DefaultOptions()
	if o.ArtifactKeyOpts(FormatSVG) == o.ArtifactKeyOpts(FormatJSON) {
		t.Error("formats share a cache key")
	}
	dark, light := o, o
	dark.Theme, light.Theme = "dark", "light"
	if dark.ArtifactKeyOpts(FormatSVG) == light.ArtifactKeyOpts(FormatSVG) {
		t.Error("themes share a cache key")
	}
	shaped := o
	shaped.Shape.MaxBranch = 9
	if shaped.ArtifactKeyOpts(FormatSVG) == o.ArtifactKeyOpts(FormatSVG) {
		t.Error("graph shape not part of the cache key")
	}
}

// memCache is an in-memory Cache that counts operations.
type memCache struct {
	mu         sync.Mutex
	data       map[string][]byte
	gets, sets int
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	d, ok := c.data[key]
	return d, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.data[key] = data
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

func seeded(address string, seed uint64, formats ...string) Options {
	o := DefaultOptions()
	o.Address = address
	o.Seed = seed
	o.Iterations = 30
	o.Formats = formats
	return o
}

func TestExecute(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	res, err := r.Execute(context.Background(), seeded("ADDR1", 7, FormatSVG, FormatJSON, FormatYAML, FormatDOT))
	if err != nil {
		t.Fatal(err)
	}

	for _, f := range []string{FormatSVG, FormatJSON, FormatYAML, FormatDOT} {
		if len(res.Artifacts[f]) == 0 {
			t.Errorf("missing %s artifact", f)
		}
	}
	if !bytes.HasPrefix(bytes.TrimSpace(res.Artifacts[FormatDOT]), []byte("digraph")) {
		t.Errorf("dot artifact does not start with digraph")
	}
	if !bytes.Contains(res.Artifacts[FormatSVG], []byte(`id="node-ADDR1"`)) {
		t.Error("svg has no root node element")
	}

	var doc struct {
		Address string `json:"address"`
		Seed    uint64 `json:"seed"`
		Nodes   []struct{ ID string } `json:"nodes"`
	}
	if err := json.Unmarshal(res.Artifacts[FormatJSON], &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Address != "ADDR1" || doc.Seed != 7 || len(doc.Nodes) != res.Stats.NodeCount {
		t.Errorf("scene header = %+v, stats = %+v", doc, res.Stats)
	}

	g := res.Graph
	if g == nil || len(g.Positions()) != g.NodeCount() {
		t.Fatal("result graph not fully positioned")
	}
	if res.Stats.MaxDepth > DefaultMaxDepth {
		t.Errorf("depth %d exceeds %d", res.Stats.MaxDepth, DefaultMaxDepth)
	}
	if res.CacheInfo.RenderHit || !res.CacheInfo.Cacheable {
		t.Errorf("CacheInfo = %+v", res.CacheInfo)
	}
}

func TestExecuteDeterministic(t *testing.T) {
	r := NewRunner(nil, nil, nil)
	a, err := r.Execute(context.Background(), seeded("ADDR1", 99, FormatJSON))
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Execute(context.Background(), seeded("ADDR1", 99, FormatJSON))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a.Artifacts[FormatJSON], b.Artifacts[FormatJSON]) {
		t.Error("same seed produced different scenes")
	}
}

func TestExecuteDepthZero(t *testing.T) {
	o := seeded("ADDR1", 3, FormatJSON)
	o.MaxDepth = 0
	res, err := NewRunner(nil, nil, nil).Execute(context.Background(), o)
	if err != nil {
		t.Fatal(err)
	}
	if res.Stats.NodeCount != 1 || res.Stats.EdgeCount != 0 {
		t.Errorf("depth 0 built %d nodes, %d edges", res.Stats.NodeCount, res.Stats.EdgeCount)
	}
}

func TestExecuteCaching(t *testing.T) {
	ctx := context.Background()
	c := newMemCache()
	r := NewRunner(c, nil, nil)

	first, err := r.Execute(ctx, seeded("ADDR1", 5, FormatSVG, FormatJSON))
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.RenderHit || c.sets != 2 {
		t.Fatalf("first run: hit=%v sets=%d", first.CacheInfo.RenderHit, c.sets)
	}

	second, err := r.Execute(ctx, seeded("ADDR1", 5, FormatSVG, FormatJSON))
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.RenderHit || second.Graph != nil {
		t.Errorf("second run: hit=%v graph=%v", second.CacheInfo.RenderHit, second.Graph != nil)
	}
	if !bytes.Equal(first.Artifacts[FormatSVG], second.Artifacts[FormatSVG]) {
		t.Error("cached svg differs")
	}

	refresh := seeded("ADDR1", 5, FormatSVG)
	refresh.Refresh = true
	gets := c.gets
	res, err := r.Execute(ctx, refresh)
	if err != nil {
		t.Fatal(err)
	}
	if res.CacheInfo.RenderHit || c.gets != gets {
		t.Error("refresh read from the cache")
	}
}

func TestExecuteUnseededBypassesCache(t *testing.T) {
	c := newMemCache()
	r := NewRunner(c, nil, nil)
	res, err := r.Execute(context.Background(), seeded("ADDR1", 0, FormatJSON))
	if err != nil {
		t.Fatal(err)
	}
	if c.gets != 0 || c.sets != 0 {
		t.Errorf("unseeded run used the cache: %d gets, %d sets", c.gets, c.sets)
	}
	if res.Seed == 0 || res.CacheInfo.Cacheable {
		t.Errorf("Seed = %d, Cacheable = %v", res.Seed, res.CacheInfo.Cacheable)
	}

	// The reported seed reproduces the run.
	again, err := r.Execute(context.Background(), seeded("ADDR1", res.Seed, FormatJSON))
	if err != nil {
		t.Fatal(err)
	}
	if again.Stats.NodeCount != res.Stats.NodeCount || again.Stats.EdgeCount != res.Stats.EdgeCount {
		t.Error("reported seed does not reproduce the graph")
	}
}

func TestExecuteErrors(t *testing.T) {
	r := NewRunner(nil, nil, nil)

	_, err := r.Execute(context.Background(), seeded("", 1, FormatSVG))
	if !ferrors.Is(err, ferrors.ErrCodeInvalidAddress) {
		t.Errorf("empty address: %v", err)
	}

	o := seeded("ADDR1", 1, FormatSVG)
	o.MaxDepth = -2
	if _, err := r.Execute(context.Background(), o); !ferrors.Is(err, ferrors.ErrCodeInvalidOptions) {
		t.Errorf("negative depth: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := r.Execute(ctx, seeded("ADDR1", 1, FormatSVG))
	if !errors.Is(err, context.Canceled) || res != nil {
		t.Errorf("cancelled: res=%v err=%v", res, err)
	}
	if ferrors.HTTPStatus(err) != 499 {
		t.Errorf("cancelled status = %d", ferrors.HTTPStatus(err))
	}
}

func TestRunnerGraph(t *testing.T) {
	g, seed, err := NewRunner(nil, nil, nil).Graph(context.Background(), seeded("ADDR2", 11))
	if err != nil {
		t.Fatal(err)
	}
	if seed != 11 {
		t.Errorf("seed = %d", seed)
	}
	root, ok := g.Root()
	if !ok || root.ID != "ADDR2" || !strings.HasPrefix(root.Label, "Source") {
		t.Errorf("root = %+v", root)
	}
}

type pipelineRecorder struct {
	observability.NoopPipelineHooks
	events []string
}

func (p *pipelineRecorder) OnBuildStart(context.Context, string, int) {
	p.events = append(p.events, "build")
}

func (p *pipelineRecorder) OnLayoutComplete(_ context.Context, _ time.Duration, err error) {
	p.events = append(p.events, "layout")
}

func (p *pipelineRecorder) OnRenderComplete(_ context.Context, formats []string, _ time.Duration, _ error) {
	p.events = append(p.events, "render:"+strings.Join(formats, ","))
}

func TestExecuteHooks(t *testing.T) {
	rec := &pipelineRecorder{}
	observability.SetPipelineHooks(rec)
	t.Cleanup(observability.Reset)

	if _, err := NewRunner(nil, nil, nil).Execute(context.Background(), seeded("ADDR1", 2, FormatSVG)); err != nil {
		t.Fatal(err)
	}
	want := []string{"build", "layout", "render:svg"}
	if strings.Join(rec.events, " ") != strings.Join(want, " ") {
		t.Errorf("events = %v, want %v", rec.events, want)
	}
}

var _ cache.Cache = (*memCache)(nil)
