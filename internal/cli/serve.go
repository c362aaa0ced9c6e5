package cli

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/fraudy/flowgraph/internal/server"
	"github.com/fraudy/flowgraph/pkg/observability/prom"
)

// serveCommand creates the HTTP host command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr      string
		noCache   bool
		noMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve transaction graphs over HTTP",
		Long: `Serve transaction graphs over HTTP.

Routes:
  GET /                       search page
  GET /healthz                liveness
  GET /api/graph/{address}    scene description (JSON)
  GET /graph/{address}.{ext}  svg, json, yaml, dot, graphviz, png, pdf
  GET /metrics                Prometheus metrics

Query parameters depth, iterations, seed, theme, engine, tooltips and
refresh override the configured defaults per request. Seeded requests are
cached in Redis when [redis] addr is set, on disk otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.conf()
			if !cmd.Flags().Changed("addr") {
				addr = cfg.Server.Addr
			}

			runner, err := c.newRunner(ctx, noCache)
			if err != nil {
				return err
			}
			defer runner.Close()

			opts := []server.Option{
				server.WithDefaults(cfg.PipelineOptions()),
				server.WithLogger(c.Logger),
				server.WithTimeouts(cfg.Server.ReadTimeout.Duration, cfg.Server.WriteTimeout.Duration),
			}
			if !noMetrics {
				reg := prometheus.NewRegistry()
				reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
				prom.New(reg).Register()
				opts = append(opts, server.WithMetrics(reg))
			}

			out := newPrinter(cmd.OutOrStdout())
			out.info("Serving on %s", StyleLink.Render(displayAddr(addr)))
			out.keyValue("cache", cacheLabel(cfg.Redis.Addr, noCache || !cfg.Cache.Enabled))
			out.keyValue("metrics", fmt.Sprint(!noMetrics))
			return server.New(runner, opts...).ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable artifact caching")
	cmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "do not expose /metrics")

	return cmd
}

func cacheLabel(redisAddr string, disabled bool) string {
	switch {
	case disabled:
		return "off"
	case redisAddr != "":
		return "redis " + redisAddr
	}
	return "local"
}

// displayAddr turns a listen address into a clickable URL.
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "http://localhost" + addr
	}
	return "http://" + addr
}
