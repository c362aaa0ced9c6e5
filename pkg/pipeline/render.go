package pipeline

import (
	"context"
	"errors"
	"fmt"

	ferrors "github.com/fraudy/flowgraph/pkg/errors"
	"github.com/fraudy/flowgraph/pkg/graph"
	"github.com/fraudy/flowgraph/pkg/render"
	"github.com/fraudy/flowgraph/pkg/render/nodelink"
	"github.com/fraudy/flowgraph/pkg/render/svg"
	"github.com/fraudy/flowgraph/pkg/scene"
)

// pngScale is the rasterization factor for PNG output.
const pngScale = 2.0

// Render generates artifacts for every format in opts.Formats from a
// positioned graph. The Graphviz drawing is shared between the graphviz,
// png and pdf formats.
func Render(ctx context.Context, g *graph.Graph, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	var static []byte

	for _, format := range opts.Formats {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data = svg.RenderSVG(g, svgOptions(opts)...)
		case FormatJSON:
			data, err = scene.RenderJSON(g, sceneOptions(opts)...)
		case FormatYAML:
			data, err = scene.RenderYAML(g, sceneOptions(opts)...)
		case FormatDOT:
			data = []byte(toDOT(g, opts))
		case FormatGraphviz, FormatPNG, FormatPDF:
			if static == nil {
				static, err = nodelink.RenderSVG(ctx, toDOT(g, opts), opts.GraphvizEngine())
				if err != nil {
					break
				}
			}
			switch format {
			case FormatGraphviz:
				data = static
			case FormatPNG:
				data, err = render.ToPNG(ctx, static, pngScale)
			case FormatPDF:
				data, err = render.ToPDF(ctx, static)
			}
		default:
			return nil, ValidateFormat(format)
		}

		if err != nil {
			return nil, wrapRender(format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

func wrapRender(format string, err error) error {
	if errors.Is(err, render.ErrNoConverter) {
		return ferrors.Wrap(ferrors.ErrCodeUnsupported, err, "render %s", format)
	}
	if ferrors.GetCode(err) != "" {
		return fmt.Errorf("render %s: %w", format, err)
	}
	return ferrors.Wrap(ferrors.ErrCodeInternal, err, "render %s", format)
}

func svgOptions(opts Options) []svg.Option {
	o := []svg.Option{
		svg.WithPalette(opts.Palette()),
		svg.WithWidth(opts.Width),
		svg.WithTitle("Transaction flow: " + opts.Address),
	}
	if !opts.Tooltips {
		o = append(o, svg.WithoutTooltips())
	}
	return o
}

func sceneOptions(opts Options) []scene.Option {
	return []scene.Option{
		scene.WithAddress(opts.Address),
		scene.WithPalette(opts.Palette()),
		scene.WithSeed(opts.Seed),
		scene.WithIterations(opts.Iterations),
	}
}

func toDOT(g *graph.Graph, opts Options) string {
	return nodelink.ToDOT(g, nodelink.Options{
		Palette:  opts.Palette(),
		Pinned:   opts.GraphvizEngine() == nodelink.EngineNeato,
		Detailed: opts.Tooltips,
	})
}
