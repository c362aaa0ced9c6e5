package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/fraudy/flowgraph/pkg/builder"
	"github.com/fraudy/flowgraph/pkg/config"
	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/interact"
	"github.com/fraudy/flowgraph/pkg/layout"
	"github.com/fraudy/flowgraph/pkg/render/term"
	"github.com/fraudy/flowgraph/pkg/session"
	"github.com/fraudy/flowgraph/pkg/theme"
)

// Rows reserved around the graph canvas.
const (
	exploreHeaderRows = 1
	exploreFooterRows = 2
	panStep           = 3.0
	zoomStep          = 1.25
)

var (
	exploreBarStyle    = lipgloss.NewStyle().Foreground(colorGray)
	exploreTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorTeal)
	exploreErrorStyle  = lipgloss.NewStyle().Foreground(colorRed)
	exploreHintStyle   = lipgloss.NewStyle().Foreground(colorDim)
	exploreStatusStyle = lipgloss.NewStyle().Foreground(colorWhite)
)

// exploreCommand creates the interactive explorer.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		depth      int
		iterations int
		seed       uint64
		themeName  string
	)

	cmd := &cobra.Command{
		Use:   "explore [ADDRESS]",
		Short: "Explore transaction graphs interactively in the terminal",
		Long: `Explore transaction graphs interactively in the terminal.

Move the mouse over an account or a transfer to see its details. Press /
to search another address; the previous graph is torn down before the new
one is built.

Keys:
  /          search an address
  arrows     pan        + -   zoom        f   fit
  x          clear      q     quit`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.conf()
			if !cmd.Flags().Changed("depth") {
				depth = cfg.Graph.MaxDepth
			}
			if !cmd.Flags().Changed("iterations") {
				iterations = cfg.Layout.Iterations
			}
			if !cmd.Flags().Changed("theme") {
				themeName = cfg.Theme.Mode
			}
			mode, err := theme.ParseMode(themeName)
			if err != nil {
				return err
			}
			address := ""
			if len(args) == 1 {
				address = args[0]
			}

			m, err := newExploreModel(cmd.Context(), exploreOptions{
				config:     cfg,
				depth:      depth,
				iterations: iterations,
				seed:       seed,
				palette:    theme.PaletteFor(mode),
				address:    address,
				logger:     c.Logger,
			})
			if err != nil {
				return err
			}
			defer m.session.Close()

			p := tea.NewProgram(m,
				tea.WithContext(cmd.Context()),
				tea.WithAltScreen(),
				tea.WithMouseAllMotion())
			_, err = p.Run()
			if errors.Is(err, tea.ErrProgramKilled) && cmd.Context().Err() != nil {
				return cmd.Context().Err()
			}
			return err
		},
	}

	cmd.Flags().IntVarP(&depth, "depth", "d", builder.DefaultMaxDepth, "hops to expand from the source account")
	cmd.Flags().IntVarP(&iterations, "iterations", "i", layout.DefaultIterations, "ForceAtlas2 iterations")
	cmd.Flags().Uint64VarP(&seed, "seed", "s", 0, "seed for the session's generator (0 draws one)")
	cmd.Flags().StringVar(&themeName, "theme", string(theme.DefaultMode), "color theme: light, dark")

	return cmd
}

type exploreOptions struct {
	config     *config.Config
	depth      int
	iterations int
	seed       uint64
	palette    theme.Palette
	address    string
	logger     *log.Logger
}

// exploreModel is the bubbletea model for the explorer. It owns one
// session; every search goes through session.Load so the previous view is
// torn down before the next is mounted.
type exploreModel struct {
	ctx     context.Context
	session *session.Session
	palette theme.Palette
	input   textinput.Model

	width, height int
	pending       string // address to load once the terminal size is known
	status        string
	err           error
}

func newExploreModel(ctx context.Context, o exploreOptions) (*exploreModel, error) {
	m := &exploreModel{
		ctx:     ctx,
		palette: o.palette,
		pending: o.address,
	}

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "account address"
	ti.CharLimit = 128
	ti.Width = 48
	m.input = ti

	bopts := []builder.Option{builder.WithOptions(o.config.Shape()), builder.WithLogger(o.logger)}
	lopts := []layout.Option{
		layout.WithParams(o.config.Params()),
		layout.WithIterations(o.iterations),
		layout.WithBatchSize(o.config.Layout.BatchSize),
		layout.WithLogger(o.logger),
	}
	b, e := builder.New(nil, bopts...), layout.New(nil, lopts...)
	if o.seed != 0 {
		b, e = builder.NewSeeded(o.seed, bopts...), layout.NewSeeded(o.seed, lopts...)
	}

	s, err := session.New(m.mount,
		session.WithBuilder(b),
		session.WithEngine(e),
		session.WithDepth(o.depth),
		session.WithLogger(o.logger),
		session.WithControllerOptions(append(term.ControllerOptions(), interact.WithLogger(o.logger))...))
	if err != nil {
		return nil, err
	}
	m.session = s
	if m.pending == "" {
		m.input.Focus()
	}
	return m, nil
}

// canvasSize is the area left for the graph.
func (m *exploreModel) canvasSize() interact.Size {
	h := m.height - exploreHeaderRows - exploreFooterRows
	if h < 0 || m.width <= 0 {
		return interact.Size{}
	}
	return interact.Size{W: float64(m.width), H: float64(h)}
}

func (m *exploreModel) mount(g *graph.Graph) (interact.Renderer, error) {
	return term.New(g, m.canvasSize(), term.WithPalette(m.palette))
}

// renderer returns the mounted terminal renderer, if any.
func (m *exploreModel) renderer() *term.Renderer {
	v := m.session.Current()
	if v == nil {
		return nil
	}
	r, _ := v.Renderer.(*term.Renderer)
	return r
}

func (m *exploreModel) load(address string) {
	address = strings.TrimSpace(address)
	v, err := m.session.Load(m.ctx, address)
	m.err = err
	switch {
	case err != nil:
		m.status = ""
	case v == nil:
		m.status = "cleared"
	default:
		m.status = fmt.Sprintf("%s · %d accounts · %d transfers",
			address, v.Graph.NodeCount(), v.Graph.EdgeCount())
	}
}

func (m *exploreModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if r := m.renderer(); r != nil {
			if err := r.Resize(m.canvasSize()); err != nil {
				m.err = err
			}
		}
		if m.pending != "" {
			addr := m.pending
			m.pending = ""
			m.load(addr)
		}
		return m, nil

	case tea.MouseMsg:
		m.mouse(msg)
		return m, nil

	case tea.KeyMsg:
		if m.input.Focused() {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *exploreModel) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.input.Blur()
		m.load(m.input.Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *exploreModel) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	r := m.renderer()
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "/":
		m.input.SetValue("")
		return m, m.input.Focus()
	case "x":
		m.input.SetValue("")
		m.load("")
	}
	if r == nil {
		return m, nil
	}
	cam := r.Camera()
	switch msg.String() {
	case "left", "h":
		cam.Pan(panStep, 0)
	case "right", "l":
		cam.Pan(-panStep, 0)
	case "up", "k":
		cam.Pan(0, panStep)
	case "down", "j":
		cam.Pan(0, -panStep)
	case "+", "=":
		cam.ZoomAt(center(cam.Viewport), zoomStep)
	case "-":
		cam.ZoomAt(center(cam.Viewport), 1/zoomStep)
	case "f", "0":
		r.Fit()
	}
	return m, nil
}

// mouse forwards pointer motion to the renderer, which emits hover events
// for the controller.
func (m *exploreModel) mouse(msg tea.MouseMsg) {
	r := m.renderer()
	if r == nil {
		return
	}
	p := interact.Point{X: float64(msg.X), Y: float64(msg.Y - exploreHeaderRows)}
	size := m.canvasSize()
	if p.Y < 0 || p.Y >= size.H || p.X < 0 || p.X >= size.W {
		r.PointerLeft()
		return
	}
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		r.Camera().ZoomAt(p, zoomStep)
	case msg.Button == tea.MouseButtonWheelDown:
		r.Camera().ZoomAt(p, 1/zoomStep)
	case msg.Action == tea.MouseActionMotion || msg.Action == tea.MouseActionPress:
		r.Pointer(p)
	}
}

func center(s interact.Size) interact.Point {
	return interact.Point{X: s.W / 2, Y: s.H / 2}
}

func (m *exploreModel) View() string {
	if m.width == 0 {
		return ""
	}
	var b strings.Builder

	b.WriteString(exploreTitleStyle.Render("flowgraph"))
	b.WriteString("  ")
	if m.input.Focused() {
		b.WriteString(m.input.View())
	} else {
		b.WriteString(exploreHintStyle.Render("press / to search"))
	}
	b.WriteString("\n")

	size := m.canvasSize()
	v := m.session.Current()
	r := m.renderer()
	switch {
	case v != nil && r != nil:
		var overlay *interact.Overlay
		if o, ok := v.Controller.Overlay(size); ok {
			overlay = &o
		}
		b.WriteString(r.View(overlay))
	default:
		b.WriteString(lipgloss.Place(int(size.W), int(size.H), lipgloss.Center, lipgloss.Center,
			exploreHintStyle.Render("no graph mounted")))
	}
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(exploreErrorStyle.Render(iconError + " " + m.err.Error()))
	} else {
		b.WriteString(exploreStatusStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(exploreBarStyle.Render("arrows pan · +/- zoom · f fit · x clear · q quit"))
	return b.String()
}
