package sink

import (
	"github.com/matzehuels/memtower/pkg/render"
	"github.com/matzehuels/memtower/pkg/timeline"
)

// PNGOption configures PNG rendering.
type PNGOption func(*pngRenderer)

type pngRenderer struct {
	svgOpts []SVGOption
	scale   float64
}

// WithPNGSVGOptions passes options through to the underlying SVG renderer.
func WithPNGSVGOptions(opts ...SVGOption) PNGOption {
	return func(r *pngRenderer) { r.svgOpts = opts }
}

// WithScale sets the PNG scale factor. The chart is 10000 units wide, so
// the default of 0.2 yields a 2000-pixel-wide image.
func WithScale(s float64) PNGOption {
	return func(r *pngRenderer) { r.scale = s }
}

// RenderPNG renders the layout as PNG via SVG conversion.
func RenderPNG(l *timeline.Layout, opts ...PNGOption) ([]byte, error) {
	r := pngRenderer{scale: 0.2}
	for _, opt := range opts {
		opt(&r)
	}
	return render.ToPNG(RenderSVG(l, r.svgOpts...), r.scale)
}
