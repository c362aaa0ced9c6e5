package builder

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/theme"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }

func TestBuildDepthZero(t *testing.T) {
	g, err := NewSeeded(1).Build("ADDR1", 0)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.NodeCount() != 1 || g.EdgeCount() != 0 {
		t.Errorf("got %d nodes, %d edges, want 1, 0", g.NodeCount(), g.EdgeCount())
	}
	root, ok := g.Root()
	if !ok || root.ID != "ADDR1" || root.Depth != 0 {
		t.Errorf("Root() = %+v, %v", root, ok)
	}
}

func TestBuildNegativeDepthClamped(t *testing.T) {
	g, err := NewSeeded(1).Build("ADDR1", -5)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if g.NodeCount() != 1 || g.EdgeCount() != 0 {
		t.Errorf("got %d nodes, %d edges, want 1, 0", g.NodeCount(), g.EdgeCount())
	}
}

func TestBuildEmptyAddress(t *testing.T) {
	if _, err := NewSeeded(1).Build("", 3); !errors.Is(err, ErrEmptyAddress) {
		t.Errorf("Build(\"\") error = %v, want ErrEmptyAddress", err)
	}
}

func TestBuildDepthThree(t *testing.T) {
	for seed := uint64(0); seed < 25; seed++ {
		g, err := NewSeeded(seed).Build("ADDR1", 3)
		if err != nil {
			t.Fatalf("seed %d: Build: %v", seed, err)
		}
		if err := g.Validate(); err != nil {
			t.Fatalf("seed %d: Validate: %v", seed, err)
		}

		depth1 := 0
		for _, n := range g.Nodes() {
			if n.Depth < 0 || n.Depth > 3 {
				t.Errorf("seed %d: node %s depth %d out of range", seed, n.ID, n.Depth)
			}
			if n.Depth == 1 {
				depth1++
			}
		}
		if depth1 < DefaultMinBranch {
			t.Errorf("seed %d: %d nodes at depth 1, want >= %d", seed, depth1, DefaultMinBranch)
		}
	}
}

func TestBuildDeterministic(t *testing.T) {
	a, _ := NewSeeded(7, WithClock(fixedNow)).Build("ADDR1", 4)
	b, _ := NewSeeded(7, WithClock(fixedNow)).Build("ADDR1", 4)

	if a.NodeCount() != b.NodeCount() || a.EdgeCount() != b.EdgeCount() {
		t.Fatalf("same seed produced %d/%d and %d/%d nodes/edges",
			a.NodeCount(), a.EdgeCount(), b.NodeCount(), b.EdgeCount())
	}
	ea, eb := a.Edges(), b.Edges()
	for i := range ea {
		if ea[i] != eb[i] {
			t.Fatalf("edge %d differs: %+v vs %+v", i, ea[i], eb[i])
		}
	}
	na, nb := a.Nodes(), b.Nodes()
	for i := range na {
		if na[i].ID != nb[i].ID || na[i].Details != nb[i].Details {
			t.Fatalf("node %d differs: %s vs %s", i, na[i].ID, nb[i].ID)
		}
	}
}

func TestBuildChildIDs(t *testing.T) {
	g, err := NewSeeded(3).Build("ROOT", 2)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range g.Edges() {
		if e.Kind != graph.KindForward {
			continue
		}
		src, _ := g.Node(e.Source)
		prefix := e.Source + "_T"
		if !strings.HasPrefix(e.Target, prefix) {
			t.Errorf("child %s does not derive from parent %s", e.Target, e.Source)
		}
		dst, _ := g.Node(e.Target)
		if dst.Depth != src.Depth+1 {
			t.Errorf("child %s depth %d, parent depth %d", dst.ID, dst.Depth, src.Depth)
		}
	}
}

func TestBuildStyling(t *testing.T) {
	g, err := NewSeeded(11).Build("GSOURCEADDRESS", 3)
	if err != nil {
		t.Fatal(err)
	}
	root, _ := g.Root()
	if root.Label != "Source: GSOURC..." {
		t.Errorf("root label = %q", root.Label)
	}
	if root.Color != theme.TokenSource || root.Size != rootSize {
		t.Errorf("root styling = %v/%v", root.Color, root.Size)
	}
	for _, n := range g.Nodes() {
		if n.Depth == 0 {
			continue
		}
		if n.Color != theme.TierToken(n.Depth) {
			t.Errorf("node %s depth %d color %v", n.ID, n.Depth, n.Color)
		}
		if n.Size >= root.Size {
			t.Errorf("node %s size %v not below root size", n.ID, n.Size)
		}
		if n.Depth == 1 && !strings.HasPrefix(n.Label, "Recipient ") {
			t.Errorf("depth-1 label = %q", n.Label)
		}
	}
}

func TestBuildReturnEdges(t *testing.T) {
	opts := DefaultOptions()
	opts.ReturnProb = 1
	opts.ContinueProb = 1
	g, err := NewSeeded(5, WithOptions(opts)).Build("ADDR", 3)
	if err != nil {
		t.Fatal(err)
	}

	forward := map[[2]string]float64{}
	for _, e := range g.Edges() {
		if e.Kind == graph.KindForward {
			forward[[2]string{e.Source, e.Target}] = e.Amount
		}
	}

	returns := 0
	for _, e := range g.Edges() {
		if e.Kind != graph.KindReturn {
			continue
		}
		returns++
		if e.Target == "ADDR" {
			t.Errorf("return edge %s targets the root", e.ID)
		}
		amt, ok := forward[[2]string{e.Target, e.Source}]
		if !ok {
			t.Errorf("return edge %s has no matching forward edge", e.ID)
			continue
		}
		if e.Amount != float64(int(amt)/2) {
			t.Errorf("return amount %v for forward %v", e.Amount, amt)
		}
		if e.Color != theme.TokenReversal || !strings.HasPrefix(e.Details, "Return Transaction") {
			t.Errorf("return edge %s not flagged: %v %q", e.ID, e.Color, e.Details)
		}
	}
	if returns == 0 {
		t.Error("ReturnProb=1 produced no return edges")
	}
}

func TestBuildNoReturnEdgesWhenDisabled(t *testing.T) {
	opts := DefaultOptions()
	opts.ReturnProb = 0
	g, _ := NewSeeded(5, WithOptions(opts)).Build("ADDR", 4)
	for _, e := range g.Edges() {
		if e.IsReturn() {
			t.Fatalf("unexpected return edge %+v", e)
		}
	}
}

func TestBuildFlaggedForwardEdges(t *testing.T) {
	tests := []struct {
		name     string
		prob     float64
		wantFlag bool
	}{
		{"always", 1, true},
		{"never", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.FlagProb = tt.prob
			opts.ContinueProb = 1
			g, err := NewSeeded(11, WithOptions(opts)).Build("ADDR", 3)
			if err != nil {
				t.Fatal(err)
			}
			for _, e := range g.Edges() {
				if e.Kind != graph.KindForward {
					continue
				}
				want := theme.TokenEdge
				if tt.wantFlag && e.Source != "ADDR" {
					want = theme.TokenReversal
				}
				if e.Color != want {
					t.Errorf("edge %s->%s color = %v, want %v", e.Source, e.Target, e.Color, want)
				}
				if !strings.HasPrefix(e.Details, "Transfer") {
					t.Errorf("edge %s details = %q", e.ID, e.Details)
				}
			}
		})
	}
}

func TestBuildRootDetails(t *testing.T) {
	g, _ := NewSeeded(9, WithClock(fixedNow)).Build("ADDR", 1)
	root, _ := g.Root()

	var sent float64
	for _, id := range g.OutEdges("ADDR") {
		e, _ := g.Edge(id)
		sent += e.Amount
	}
	lines := strings.Split(root.Details, "\n")
	if lines[0] != "Main Account" {
		t.Errorf("title = %q", lines[0])
	}
	want := "Total Sent: " + NewSeeded(0).amount(sent)
	if lines[2] != want {
		t.Errorf("details line = %q, want %q", lines[2], want)
	}
}

func TestBuilderKeepsNoGraph(t *testing.T) {
	b := NewSeeded(2)
	first, _ := b.Build("ADDR1", 2)
	second, _ := b.Build("ADDR2", 2)
	for _, n := range second.Nodes() {
		if strings.HasPrefix(n.ID, "ADDR1") {
			t.Fatalf("node %s from the first graph leaked into the second", n.ID)
		}
	}
	if first.HasNode("ADDR2") {
		t.Fatal("second build mutated the first graph")
	}
}

func TestOptionsNormalize(t *testing.T) {
	o := Options{MinBranch: 5, MaxBranch: 1, ContinueProb: 3, ReturnProb: -1, FlagProb: math.NaN()}.normalize()
	if o.MaxBranch < o.MinBranch {
		t.Errorf("MaxBranch %d < MinBranch %d", o.MaxBranch, o.MinBranch)
	}
	if o.ContinueProb != 1 || o.ReturnProb != 0 || o.FlagProb != 0 {
		t.Errorf("probabilities not clamped: %v %v %v", o.ContinueProb, o.ReturnProb, o.FlagProb)
	}
	if o.Currency != DefaultCurrency || o.MaxAmount != DefaultMaxAmount {
		t.Errorf("defaults not applied: %+v", o)
	}
}

func TestShorten(t *testing.T) {
	tests := map[string]string{
		"":          "",
		"ABC":       "ABC",
		"ABCDEF":    "ABCDEF",
		"ABCDEFGHI": "ABCDEF",
	}
	for in, want := range tests {
		if got := shorten(in); got != want {
			t.Errorf("shorten(%q) = %q, want %q", in, got, want)
		}
	}
}
