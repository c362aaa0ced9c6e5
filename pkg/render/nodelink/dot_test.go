package nodelink

import (
	"context"
	"strings"
	"testing"

	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/theme"
)

func sample(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New()
	_ = g.AddNode(graph.Node{ID: "A", Label: "Source: A...", Size: 30, Color: theme.TokenSource, Details: "Main Account", Pos: &graph.Position{X: 1, Y: 2}})
	_ = g.AddNode(graph.Node{ID: "B", Label: "Recipient 1", Depth: 1, Size: 22, Color: theme.TokenTier1, Pos: &graph.Position{X: 4, Y: -1}})
	if _, err := g.AddEdge(graph.Edge{Source: "A", Target: "B", Label: "42 XLM", Color: theme.TokenEdge}); err != nil {
		t.Fatal(err)
	}
	if _, err := g.AddEdge(graph.Edge{Source: "B", Target: "A", Kind: graph.KindReturn, Color: theme.TokenReversal}); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sample(t), Options{})

	for _, want := range []string{
		"digraph G",
		`"A" [label="Source: A..."`,
		`fillcolor="#ff9800"`,
		`"A" -> "B" [color="#888888", label="42 XLM"]`,
		`"B" -> "A" [color="#f44336", style=dashed]`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() output missing %q\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "pos=") {
		t.Error("unpinned DOT contains positions")
	}
}

func TestToDOTPinned(t *testing.T) {
	dot := ToDOT(sample(t), Options{Pinned: true, Scale: 10, Detailed: true})
	for _, want := range []string{
		"inputscale=72",
		`pos="10.00,-20.00!"`,
		`pos="40.00,10.00!"`,
		`tooltip="Main Account"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("pinned DOT missing %q", want)
		}
	}
}

func TestToDOTPaletteHex(t *testing.T) {
	dot := ToDOT(sample(t), Options{Palette: theme.PaletteFor(theme.Light)})
	if strings.Contains(dot, "rgba(") {
		t.Error("DOT contains rgba() colors Graphviz cannot parse")
	}
}

func TestParseEngine(t *testing.T) {
	tests := []struct {
		in      string
		want    Engine
		wantErr bool
	}{
		{"", EngineNeato, false},
		{"DOT", EngineDot, false},
		{"sfdp", EngineSFDP, false},
		{"circo9", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEngine(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseEngine(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestNormalizeViewBox(t *testing.T) {
	tests := []struct {
		name string
		svg  string
		want string
	}{
		{"no viewBox", `<svg width="10"></svg>`, `<svg width="10"></svg>`},
		{"zero size", `<svg viewBox="0 0 0 0"></svg>`, `<svg viewBox="0 0 0 0"></svg>`},
		{
			"rewritten",
			`<svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00"></svg>`,
			`<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" viewBox="0 0 62.00 116.00" width="62" height="116"></svg>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(normalizeViewBox([]byte(tt.svg))); got != tt.want {
				t.Errorf("normalizeViewBox() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRenderSVG(t *testing.T) {
	svg, err := RenderSVG(context.Background(), ToDOT(sample(t), Options{Pinned: true}), EngineNeato)
	if err != nil {
		t.Fatalf("RenderSVG() error: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Error("RenderSVG() output missing <svg> tag")
	}
}

func TestRenderSVGInvalidDOT(t *testing.T) {
	if _, err := RenderSVG(context.Background(), `not valid DOT {{{`, EngineDot); err == nil {
		t.Error("RenderSVG() should return error for invalid DOT")
	}
}
