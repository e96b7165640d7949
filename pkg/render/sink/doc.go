// Package sink provides output format renderers for access timelines.
//
// A "sink" transforms a computed [timeline.Layout] into a final output
// format:
//
//   - SVG: containers, access marks (reads dashed, writes solid), scope
//     bands, axes, the footprint outline and the median statistics
//   - JSON: the full layout model for external tools
//   - PDF: Print-ready output (requires rsvg-convert)
//   - PNG: Raster image output (requires rsvg-convert)
//
// Basic usage:
//
//	svg := sink.RenderSVG(l, sink.WithTooltips())
//	data, err := sink.RenderJSON(l)
//
// # Non-finite values
//
// Degenerate traces produce infinite or NaN scales. JSON output encodes
// such numbers as the strings "Infinity", "-Infinity" and "NaN"; SVG output
// skips elements whose geometry is not finite.
package sink
