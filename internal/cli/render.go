package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fraudy/flowgraph/pkg/pipeline"
)

// renderFlags holds the flags shared by commands that run the pipeline.
type renderFlags struct {
	depth      int
	iterations int
	seed       uint64
	theme      string
	engine     string
	width      float64
	tooltips   bool
	noCache    bool
	refresh    bool
}

func (f *renderFlags) register(cmd *cobra.Command, defaults pipeline.Options) {
	f.depth = defaults.MaxDepth
	f.iterations = defaults.Iterations
	f.theme = defaults.Theme
	f.width = defaults.Width
	f.tooltips = defaults.Tooltips

	cmd.Flags().IntVarP(&f.depth, "depth", "d", f.depth, "hops to expand from the source account")
	cmd.Flags().IntVarP(&f.iterations, "iterations", "i", f.iterations, "ForceAtlas2 iterations")
	cmd.Flags().Uint64VarP(&f.seed, "seed", "s", 0, "random seed (0 draws one and disables caching)")
	cmd.Flags().StringVar(&f.theme, "theme", f.theme, "color theme: light, dark")
	cmd.Flags().StringVar(&f.engine, "engine", "", "graphviz engine for dot/graphviz/png/pdf: neato (default), fdp, sfdp, dot, twopi")
	cmd.Flags().Float64Var(&f.width, "width", f.width, "SVG width in pixels")
	cmd.Flags().BoolVar(&f.tooltips, "tooltips", f.tooltips, "embed hover tooltips in SVG output")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached artifacts and render again")
}

// apply overlays the flags that were set on the config-derived options.
func (f *renderFlags) apply(cmd *cobra.Command, opts *pipeline.Options) {
	changed := cmd.Flags().Changed
	if changed("depth") {
		opts.MaxDepth = f.depth
	}
	if changed("iterations") {
		opts.Iterations = f.iterations
	}
	if changed("theme") {
		opts.Theme = f.theme
	}
	if changed("width") {
		opts.Width = f.width
	}
	if changed("tooltips") {
		opts.Tooltips = f.tooltips
	}
	opts.Seed = f.seed
	opts.Engine = f.engine
	opts.Refresh = f.refresh
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var (
		flags      renderFlags
		formatsStr string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "render ADDRESS",
		Short: "Render the transaction graph around an address",
		Long: `Render the transaction graph around an address.

The graph is synthesized from the address, laid out with ForceAtlas2 and
written in every requested format:

  svg       interactive SVG with hover tooltips
  json      scene description for browser renderers
  yaml      scene description, YAML
  dot       Graphviz source with pinned positions
  graphviz  static SVG drawn by Graphviz
  png, pdf  the Graphviz drawing converted by rsvg-convert

Runs with --seed are reproducible and cached.`,
		Example: `  flowgraph render GABC123 -f svg,json --seed 42
  flowgraph render GABC123 -f dot -o flow.dot --depth 2`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := c.conf().PipelineOptions()
			flags.apply(cmd, &opts)
			opts.Address = args[0]
			opts.Formats = parseFormats(formatsStr)
			if err := pipeline.ValidateFormats(opts.Formats); err != nil {
				return err
			}
			return c.runRender(cmd, opts, output, flags.noCache)
		},
	}

	flags.register(cmd, pipeline.DefaultOptions())
	cmd.Flags().StringVarP(&formatsStr, "format", "f", "", "output format(s), comma-separated: svg (default), json, yaml, dot, graphviz, png, pdf")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (single format) or base path (multiple)")

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, opts pipeline.Options, output string, noCache bool) error {
	ctx := cmd.Context()
	out := newPrinter(cmd.OutOrStdout())
	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	sp := newSpinner(ctx, cmd.ErrOrStderr(), fmt.Sprintf("Rendering %s...", opts.Address))
	sp.start()
	result, err := runner.Execute(ctx, opts)
	sp.stop()
	if err != nil {
		out.failure("Render failed")
		return fmt.Errorf("render: %w", err)
	}

	paths := outputPaths(opts.Address, output, opts.Formats)
	out.success("Rendered %s", StyleHighlight.Render(opts.Address))
	out.graphStats(result.Stats.NodeCount, result.Stats.EdgeCount, result.CacheInfo.RenderHit)
	for _, f := range opts.Formats {
		if err := os.WriteFile(paths[f], result.Artifacts[f], 0o644); err != nil {
			return fmt.Errorf("write %s: %w", paths[f], err)
		}
		out.file(paths[f])
	}
	if !result.CacheInfo.Cacheable {
		out.detail("seed %d (pass --seed %d to reproduce)", result.Seed, result.Seed)
	}
	out.nextStep("Explore it interactively", "flowgraph explore "+opts.Address)
	return nil
}

// outputPaths picks a file per format. A single format writes to output as
// given; several formats treat output as a base path and add extensions.
// Without output, files are named after the address.
func outputPaths(address, output string, formats []string) map[string]string {
	paths := make(map[string]string, len(formats))
	base := output
	if base == "" {
		base = sanitizeFilename(address)
	} else if len(formats) == 1 {
		paths[formats[0]] = output
		return paths
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	for _, f := range formats {
		paths[f] = base + "." + extension(f)
	}
	return paths
}

func extension(format string) string {
	if format == pipeline.FormatGraphviz {
		return "graphviz.svg"
	}
	return format
}

// sanitizeFilename keeps address characters that are safe in file names.
func sanitizeFilename(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
	if s == "" {
		return "graph"
	}
	return s
}
