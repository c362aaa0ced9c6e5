package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/fraudy/flowgraph/pkg/builder"
	"github.com/fraudy/flowgraph/pkg/feed"
	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/interact"
	"github.com/fraudy/flowgraph/pkg/layout"
	"github.com/fraudy/flowgraph/pkg/pipeline"
	"github.com/fraudy/flowgraph/pkg/render/term"
	"github.com/fraudy/flowgraph/pkg/session"
	"github.com/fraudy/flowgraph/pkg/theme"
)

// watchOpts holds the flags for the watch command.
type watchOpts struct {
	input      string // file to read addresses from, "-" for stdin
	useRedis   bool
	channel    string
	cols, rows int
	outDir     string
	formats    string
	plain      bool
}

// watchCommand creates the address feed follower.
func (c *CLI) watchCommand() *cobra.Command {
	var opts watchOpts

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-render the graph each time a flagged address arrives",
		Long: `Re-render the graph each time a flagged address arrives.

Addresses are read one per line from --input (stdin by default) or, with
--redis, from the configured pub/sub channel. Lines may be bare addresses
or JSON objects with an "address" or "wallet_id" field.

Each new address tears the previous graph down and draws the new one to
stdout. With --out-dir the graph is also rendered to files.`,
		Example: `  tail -f flagged.log | flowgraph watch
  flowgraph watch --redis --out-dir ./graphs -f svg,json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "-", "file with one address per line (- for stdin)")
	cmd.Flags().BoolVar(&opts.useRedis, "redis", false, "subscribe to the Redis channel instead of reading input")
	cmd.Flags().StringVar(&opts.channel, "channel", "", "Redis channel (default from config)")
	cmd.Flags().IntVar(&opts.cols, "cols", 100, "drawing width in terminal cells")
	cmd.Flags().IntVar(&opts.rows, "rows", 30, "drawing height in terminal cells")
	cmd.Flags().StringVar(&opts.outDir, "out-dir", "", "also write rendered files to this directory")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "formats written to --out-dir (default svg)")
	cmd.Flags().BoolVar(&opts.plain, "plain", false, "draw without colors")

	cmd.AddCommand(c.publishCommand())
	return cmd
}

func (c *CLI) runWatch(cmd *cobra.Command, opts watchOpts) error {
	ctx := cmd.Context()
	cfg := c.conf()
	logger := loggerFromContext(ctx)

	src, err := c.openFeed(ctx, opts, cmd.InOrStdin())
	if err != nil {
		return err
	}
	defer src.Close()

	mode, err := theme.ParseMode(cfg.Theme.Mode)
	if err != nil {
		return err
	}
	size := interact.Size{W: float64(opts.cols), H: float64(opts.rows)}
	s, err := session.New(
		func(g *graph.Graph) (interact.Renderer, error) {
			return term.New(g, size, term.WithPalette(theme.PaletteFor(mode)))
		},
		session.WithBuilder(builder.New(nil, builder.WithOptions(cfg.Shape()), builder.WithLogger(logger))),
		session.WithEngine(layout.New(nil,
			layout.WithParams(cfg.Params()),
			layout.WithIterations(cfg.Layout.Iterations),
			layout.WithBatchSize(cfg.Layout.BatchSize),
			layout.WithLogger(logger))),
		session.WithDepth(cfg.Graph.MaxDepth),
		session.WithLogger(logger),
		session.WithControllerOptions(term.ControllerOptions()...))
	if err != nil {
		return err
	}
	defer s.Close()

	var runner *pipeline.Runner
	formats := parseFormats(opts.formats)
	if opts.outDir != "" {
		if err := pipeline.ValidateFormats(formats); err != nil {
			return err
		}
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return err
		}
		if runner, err = c.newRunner(ctx, true); err != nil {
			return err
		}
		defer runner.Close()
	}

	out := cmd.OutOrStdout()
	return feed.Watch(ctx, src, logger, func(ctx context.Context, address string) error {
		prog := newProgress(logger)
		v, err := s.Load(ctx, address)
		if err != nil {
			return err
		}
		if v == nil {
			return nil
		}
		r, ok := v.Renderer.(*term.Renderer)
		if !ok {
			return fmt.Errorf("unexpected renderer %T", v.Renderer)
		}
		drawing := r.View(nil)
		if opts.plain {
			drawing = r.PlainView(nil)
		}
		fmt.Fprintf(out, "%s\n%s\n", StyleTitle.Render(address), drawing)
		prog.done("Switched to "+address, "accounts", v.Graph.NodeCount(), "transfers", v.Graph.EdgeCount())

		if runner == nil {
			return nil
		}
		return writeWatchArtifacts(ctx, newPrinter(out), runner, cfg.PipelineOptions(), address, formats, opts.outDir)
	})
}

func writeWatchArtifacts(ctx context.Context, out printer, runner *pipeline.Runner, po pipeline.Options, address string, formats []string, dir string) error {
	po.Address = address
	po.Formats = formats
	res, err := runner.Execute(ctx, po)
	if err != nil {
		return err
	}
	for f, p := range outputPaths(address, "", formats) {
		path := filepath.Join(dir, p)
		if err := os.WriteFile(path, res.Artifacts[f], 0o644); err != nil {
			return err
		}
		out.file(path)
	}
	return nil
}

// openFeed opens the Redis subscription or the line reader.
func (c *CLI) openFeed(ctx context.Context, opts watchOpts, stdin io.Reader) (feed.Source, error) {
	if opts.useRedis {
		cfg := c.conf()
		if cfg.Redis.Addr == "" {
			return nil, errors.New("--redis needs [redis] addr in the config")
		}
		channel := opts.channel
		if channel == "" {
			channel = cfg.Redis.Channel
		}
		return feed.DialRedisSource(ctx, cfg.Redis.Addr, channel)
	}
	if opts.input == "" || opts.input == "-" {
		return feed.NewReaderSource(stdin), nil
	}
	f, err := os.Open(opts.input)
	if err != nil {
		return nil, err
	}
	return feed.NewReaderSource(f), nil
}

// publishCommand creates "watch publish", which pushes an address to the
// Redis channel that "watch --redis" follows.
func (c *CLI) publishCommand() *cobra.Command {
	var channel string
	cmd := &cobra.Command{
		Use:   "publish ADDRESS",
		Short: "Publish an address to the Redis feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.conf()
			if cfg.Redis.Addr == "" {
				return errors.New("publish needs [redis] addr in the config")
			}
			if channel == "" {
				channel = cfg.Redis.Channel
			}
			client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
			defer client.Close()
			if err := feed.Publish(cmd.Context(), client, channel, args[0]); err != nil {
				return err
			}
			newPrinter(cmd.OutOrStdout()).success("Published %s to %s", StyleHighlight.Render(args[0]), channel)
			return nil
		},
	}
	cmd.Flags().StringVar(&channel, "channel", "", "Redis channel (default from config)")
	return cmd
}
