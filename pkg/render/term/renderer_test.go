package term

import (
	"errors"
	"strings"
	"testing"

	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/interact"
	"github.com/fraudy/flowgraph/pkg/theme"
)

// line returns A at cell (3, 5) and B at cell (37, 5) on a 40x10 surface.
func line(t *testing.T) (*graph.Graph, string) {
	t.Helper()
	g := graph.New()
	_ = g.AddNode(graph.Node{ID: "A", Label: "Source", Color: theme.TokenSource, Details: "Main Account\nAddress: A", Pos: &graph.Position{X: 0, Y: 0}})
	_ = g.AddNode(graph.Node{ID: "B", Label: "Recipient 1", Depth: 1, Color: theme.TokenTier1, Pos: &graph.Position{X: 10, Y: 0}})
	id, err := g.AddEdge(graph.Edge{Source: "A", Target: "B", Label: "5 XLM", Color: theme.TokenEdge, Details: "Transfer"})
	if err != nil {
		t.Fatal(err)
	}
	return g, id
}

type recorder struct{ events []interact.Event }

func (rec *recorder) attach(r *Renderer) {
	for _, k := range interact.EventKinds {
		r.On(k, func(ev interact.Event) { rec.events = append(rec.events, ev) })
	}
}

func TestNewErrors(t *testing.T) {
	g, _ := line(t)
	if _, err := New(g, interact.Size{W: 0, H: 10}); !errors.Is(err, ErrNoSurface) {
		t.Errorf("zero width: error = %v, want ErrNoSurface", err)
	}
	if _, err := New(nil, interact.Size{W: 10, H: 10}); !errors.Is(err, ErrNoGraph) {
		t.Errorf("nil graph: error = %v, want ErrNoGraph", err)
	}
}

func TestFitPlacesNodes(t *testing.T) {
	g, _ := line(t)
	r, err := New(g, interact.Size{W: 40, H: 10})
	if err != nil {
		t.Fatal(err)
	}
	a := r.Camera().GraphToViewport(graph.Position{})
	b := r.Camera().GraphToViewport(graph.Position{X: 10})
	if int(a.X+0.5) != 3 || int(b.X+0.5) != 37 || int(a.Y) != 5 {
		t.Errorf("A at %v, B at %v", a, b)
	}
}

func TestPointerEvents(t *testing.T) {
	g, eid := line(t)
	r, _ := New(g, interact.Size{W: 40, H: 10})
	rec := &recorder{}
	rec.attach(r)

	r.Pointer(interact.Point{X: 3, Y: 5})  // on A
	r.Pointer(interact.Point{X: 3, Y: 5})  // still A, no event
	r.Pointer(interact.Point{X: 20, Y: 5}) // on the edge
	r.Pointer(interact.Point{X: 20, Y: 1}) // empty space
	r.Pointer(interact.Point{X: 37, Y: 5}) // on B
	r.PointerLeft()

	want := []struct {
		kind interact.EventKind
		id   string
	}{
		{interact.EnterNode, "A"},
		{interact.LeaveNode, "A"},
		{interact.EnterEdge, eid},
		{interact.LeaveEdge, eid},
		{interact.EnterNode, "B"},
		{interact.LeaveNode, "B"},
	}
	if len(rec.events) != len(want) {
		t.Fatalf("got %d events %+v, want %d", len(rec.events), rec.events, len(want))
	}
	for i, w := range want {
		if rec.events[i].Kind != w.kind || rec.events[i].ID != w.id {
			t.Errorf("event %d = %v %q, want %v %q", i, rec.events[i].Kind, rec.events[i].ID, w.kind, w.id)
		}
	}
	if rec.events[0].Pointer == nil {
		t.Error("enter event without pointer")
	}
}

func TestViewWithController(t *testing.T) {
	g, _ := line(t)
	r, _ := New(g, interact.Size{W: 60, H: 12})
	c, err := interact.New(r, g, ControllerOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Attach(); err != nil {
		t.Fatal(err)
	}

	a := r.Camera().GraphToViewport(graph.Position{})
	r.Pointer(a)
	o, ok := c.Overlay(r.Camera().Viewport)
	if !ok {
		t.Fatal("no overlay after hovering A")
	}
	if o.Box.W != OverlayW {
		t.Errorf("overlay box %v not sized for the terminal", o.Box)
	}

	view := r.PlainView(&o)
	for _, want := range []string{"◉", "Main Account", "Address: A", "┌"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if lines := strings.Split(view, "\n"); len(lines) != 12 {
		t.Errorf("view has %d lines, want 12", len(lines))
	}
	if colored := r.View(nil); colored == "" {
		t.Error("View(nil) is empty")
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if !r.Destroyed() || r.View(nil) != "" {
		t.Error("renderer still drawing after controller Close")
	}
	r.Pointer(a)
}

func TestHoverHighlightKeyedByKind(t *testing.T) {
	g := graph.New()
	_ = g.AddNode(graph.Node{ID: "e0", Label: "Source", Pos: &graph.Position{X: 0, Y: 0}})
	_ = g.AddNode(graph.Node{ID: "B", Depth: 1, Pos: &graph.Position{X: 10, Y: 0}})
	eid, _ := g.AddEdge(graph.Edge{Source: "e0", Target: "B"})
	r, _ := New(g, interact.Size{W: 40, H: 10})

	r.Pointer(interact.Point{X: 20, Y: 5})
	if !r.hovering(interact.EnterEdge, eid) {
		t.Fatal("edge not hovered")
	}
	if r.hovering(interact.EnterNode, "e0") {
		t.Error("node sharing the edge id highlighted")
	}
}

func TestResize(t *testing.T) {
	g, _ := line(t)
	r, _ := New(g, interact.Size{W: 40, H: 10})
	if err := r.Resize(interact.Size{}); !errors.Is(err, ErrNoSurface) {
		t.Errorf("Resize(empty) error = %v", err)
	}
	if err := r.Resize(interact.Size{W: 80, H: 20}); err != nil {
		t.Errorf("Resize: %v", err)
	}
	_ = r.Destroy()
	if err := r.Resize(interact.Size{W: 80, H: 20}); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Resize after Destroy error = %v", err)
	}
}

func TestArrow(t *testing.T) {
	tests := []struct {
		dx, dy int
		want   rune
	}{
		{1, 0, '→'},
		{-1, 0, '←'},
		{0, 1, '↓'},
		{0, -1, '↑'},
		{1, 1, '↘'},
	}
	for _, tt := range tests {
		if got := arrow(tt.dx, tt.dy); got != tt.want {
			t.Errorf("arrow(%d, %d) = %c, want %c", tt.dx, tt.dy, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Main Account", 4); got != "Mai…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("ok", 4); got != "ok" {
		t.Errorf("truncate = %q", got)
	}
}
