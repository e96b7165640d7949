// Package render turns a [timeline.Layout] into drawable shapes and output
// formats.
//
// # Overview
//
// The layout core has no notion of drawing. This package maps it onto a
// small tagged set of shapes that renderers switch over:
//
//   - [ContainerShape]: one allocation lifetime, with label, tooltip and color
//   - [AccessShape]: one read or write mark
//   - [ScopeShape]: one scope band below the time axis
//   - [AxisShape]: the time or the bytes axis
//
// [Shapes] builds them in drawing order. Every shape carries a GUID derived
// from its position in the layout, so repeated renders of the same trace
// produce identical identifiers.
//
// # Output Formats
//
// The [sink] subpackage writes SVG and JSON; PDF and PNG are produced from
// the SVG with [ToPDF] and [ToPNG], which shell out to rsvg-convert:
//
//	svg := sink.RenderSVG(l)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// The [scopetree] subpackage renders the scope nesting as a Graphviz graph.
//
// [sink]: github.com/matzehuels/memtower/pkg/render/sink
// [scopetree]: github.com/matzehuels/memtower/pkg/render/scopetree
package render
