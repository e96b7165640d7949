package pipeline

import (
	"context"
	"fmt"

	"github.com/matzehuels/memtower/pkg/errors"
	"github.com/matzehuels/memtower/pkg/render/scopetree"
	"github.com/matzehuels/memtower/pkg/render/sink"
	"github.com/matzehuels/memtower/pkg/timeline"
)

// Render produces one artifact per requested format.
func Render(ctx context.Context, l *timeline.Layout, opts Options) (map[string][]byte, error) {
	artifacts := make(map[string][]byte, len(opts.Formats))
	for _, format := range opts.Formats {
		if _, ok := artifacts[format]; ok {
			continue
		}
		data, err := RenderFormat(ctx, l, format, opts)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}
	return artifacts, nil
}

// RenderFormat produces a single artifact.
func RenderFormat(ctx context.Context, l *timeline.Layout, format string, opts Options) ([]byte, error) {
	switch format {
	case FormatSVG:
		return sink.RenderSVG(l, svgOptions(opts)...), nil
	case FormatPNG:
		return sink.RenderPNG(l, sink.WithPNGSVGOptions(svgOptions(opts)...), sink.WithScale(opts.Scale))
	case FormatPDF:
		return sink.RenderPDF(l, sink.WithPDFSVGOptions(svgOptions(opts)...))
	case FormatJSON:
		return sink.RenderJSON(l, sink.WithJSONSource(opts.Source), sink.WithJSONShapes())
	case FormatDOT:
		return []byte(scopetree.ToDOT(l.Scopes, scopetree.Options{Detailed: opts.Detailed})), nil
	case FormatScopes:
		return scopetree.RenderSVG(ctx, scopetree.ToDOT(l.Scopes, scopetree.Options{Detailed: opts.Detailed}))
	}
	return nil, errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q", format)
}

func svgOptions(opts Options) []sink.SVGOption {
	var out []sink.SVGOption
	if opts.Tooltips {
		out = append(out, sink.WithTooltips())
	}
	if opts.NoAccesses {
		out = append(out, sink.WithoutAccesses())
	}
	if opts.NoPolygon {
		out = append(out, sink.WithoutPolygon())
	}
	if opts.NoStats {
		out = append(out, sink.WithoutStats())
	}
	return out
}
