package cli

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/fraudy/flowgraph/pkg/config"
	"github.com/fraudy/flowgraph/pkg/interact"
	"github.com/fraudy/flowgraph/pkg/render/term"
	"github.com/fraudy/flowgraph/pkg/theme"
)

func newTestExplorer(t *testing.T, address string) *exploreModel {
	t.Helper()
	m, err := newExploreModel(context.Background(), exploreOptions{
		config:     config.Default(),
		depth:      2,
		iterations: 30,
		seed:       3,
		palette:    theme.PaletteFor(theme.Dark),
		address:    address,
		logger:     log.NewWithOptions(io.Discard, log.Options{}),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = m.session.Close() })
	return m
}

func keys(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

func TestExploreWaitsForSize(t *testing.T) {
	m := newTestExplorer(t, "ADDR1")
	if m.session.Current() != nil {
		t.Fatal("mounted before the terminal size was known")
	}
	if m.View() != "" {
		t.Error("view drawn before size")
	}

	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	v := m.session.Current()
	if v == nil || v.Address != "ADDR1" {
		t.Fatalf("current view = %+v, err %v", v, m.err)
	}
	if got := m.renderer().Camera().Viewport; got.H != 40-exploreHeaderRows-exploreFooterRows {
		t.Errorf("canvas height %v", got.H)
	}
}

func TestExploreNoSurface(t *testing.T) {
	m := newTestExplorer(t, "ADDR1")
	m.Update(tea.WindowSizeMsg{Width: 40, Height: 2})
	if !errors.Is(m.err, term.ErrNoSurface) {
		t.Errorf("err = %v, want ErrNoSurface", m.err)
	}
	if m.session.Current() != nil {
		t.Error("view mounted on an empty surface")
	}
}

func TestExploreHoverShowsTooltip(t *testing.T) {
	m := newTestExplorer(t, "ADDR1")
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	v := m.session.Current()
	root, _ := v.Graph.Root()
	pt := m.renderer().Camera().GraphToViewport(*root.Pos)

	m.Update(tea.MouseMsg{
		X:      int(math.Round(pt.X)),
		Y:      int(math.Round(pt.Y)) + exploreHeaderRows,
		Action: tea.MouseActionMotion,
	})
	if v.Controller.State() != interact.HoveringNode {
		t.Fatalf("state = %v after hovering the root", v.Controller.State())
	}
	if _, ok := v.Controller.Overlay(m.canvasSize()); !ok {
		t.Error("no overlay while hovering")
	}

	// Leaving the canvas clears the hover.
	m.Update(tea.MouseMsg{X: 0, Y: 0, Action: tea.MouseActionMotion})
	if v.Controller.State() != interact.Idle {
		t.Errorf("state = %v after leaving the canvas", v.Controller.State())
	}
}

func TestExploreSearchReplacesView(t *testing.T) {
	m := newTestExplorer(t, "ADDR1")
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	first := m.session.Current()
	firstRenderer := m.renderer()

	m.Update(keys("/"))
	if !m.input.Focused() {
		t.Fatal("search input not focused")
	}
	m.Update(keys("ADDR2"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	second := m.session.Current()
	if second == nil || second.Address != "ADDR2" {
		t.Fatalf("current = %+v, err %v", second, m.err)
	}
	if !first.Controller.Closed() || !firstRenderer.Destroyed() {
		t.Error("previous view not torn down")
	}
	if m.input.Focused() {
		t.Error("input still focused after search")
	}

	m.Update(keys("x"))
	if m.session.Current() != nil {
		t.Error("x did not clear the view")
	}
}

func TestExploreCameraKeys(t *testing.T) {
	m := newTestExplorer(t, "ADDR1")
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	cam := m.renderer().Camera()
	ratio, center := cam.Ratio, cam.Center

	m.Update(keys("+"))
	if cam.Ratio >= ratio {
		t.Errorf("zoom in: ratio %v -> %v", ratio, cam.Ratio)
	}
	m.Update(keys("l"))
	if cam.Center == center {
		t.Error("pan did not move the camera")
	}
	m.Update(keys("f"))
	if cam.Ratio != ratio || cam.Center != center {
		t.Error("fit did not restore the initial camera")
	}

	_, cmd := m.Update(keys("q"))
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}
