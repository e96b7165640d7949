package sink

import (
	"bytes"
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/memtower/pkg/render"
	"github.com/matzehuels/memtower/pkg/timeline"
	"github.com/matzehuels/memtower/pkg/trace"
)

const (
	fontFamily    = `system-ui, -apple-system, "Segoe UI", Helvetica, Arial, sans-serif`
	statsFontSize = 24.0
	statsOffsetX  = 50.0
)

const interactionCSS = `
    .container { transition: stroke-width 0.2s ease; }
    .container:hover { stroke-width: 4; }
    .conditional { stroke-dasharray: 12 6; }
    .access.read { stroke-dasharray: 4 3; }
    .scope-text { pointer-events: none; }`

// SVGOption configures SVG rendering via [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	margin   float64
	tooltips bool
	accesses bool
	polygon  bool
	stats    bool
}

// WithMargin sets the blank border around the chart in layout units.
func WithMargin(m float64) SVGOption { return func(r *svgRenderer) { r.margin = m } }

// WithTooltips adds a <title> with the container statistics to every
// container.
func WithTooltips() SVGOption { return func(r *svgRenderer) { r.tooltips = true } }

// WithoutAccesses omits the access marks.
func WithoutAccesses() SVGOption { return func(r *svgRenderer) { r.accesses = false } }

// WithoutPolygon omits the footprint outline.
func WithoutPolygon() SVGOption { return func(r *svgRenderer) { r.polygon = false } }

// WithoutStats omits the median statistics next to the chart.
func WithoutStats() SVGOption { return func(r *svgRenderer) { r.stats = false } }

func newSVGRenderer(opts ...SVGOption) svgRenderer {
	r := svgRenderer{margin: 100, accesses: true, polygon: true, stats: true}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// RenderSVG draws the layout. The view box covers [timeline.Layout.Bounds]
// plus the margin, and room for the statistics to the right of the chart.
func RenderSVG(l *timeline.Layout, opts ...SVGOption) []byte {
	r := newSVGRenderer(opts...)

	vb := viewBox(l, r)
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="%.1f %.1f %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		vb.X, vb.Y, vb.Width, vb.Height, vb.Width, vb.Height)
	renderDefs(&buf)

	var accesses []render.AccessShape
	for _, s := range render.Shapes(l) {
		if !finite(s.Bounds()) {
			continue
		}
		switch s := s.(type) {
		case render.AxisShape:
			renderAxis(&buf, s)
		case render.ContainerShape:
			renderContainer(&buf, s, r.tooltips)
		case render.AccessShape:
			accesses = append(accesses, s)
		case render.ScopeShape:
			renderScope(&buf, s)
		}
	}
	if r.accesses {
		for _, a := range accesses {
			renderAccess(&buf, a)
		}
	}
	if r.polygon {
		renderPolygon(&buf, l.Polygon)
	}
	if r.stats {
		renderStats(&buf, l)
	}

	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", interactionCSS)
	buf.WriteString("</svg>\n")
	return buf.Bytes()
}

func viewBox(l *timeline.Layout, r svgRenderer) timeline.Rect {
	b := l.Bounds
	if !finite(b) {
		b = timeline.Rect{Width: 1, Height: 1}
	}
	extra := 0.0
	if r.stats {
		extra = statsOffsetX + statsFontSize*30
	}
	return timeline.Rect{
		X:      b.X - r.margin,
		Y:      b.Y - r.margin,
		Width:  b.Width + 2*r.margin + extra,
		Height: b.Height + 2*r.margin,
	}
}

func finite(b timeline.Rect) bool {
	for _, v := range []float64{b.X, b.Y, b.Width, b.Height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func renderDefs(buf *bytes.Buffer) {
	buf.WriteString(`  <defs>
    <marker id="arrow" viewBox="0 0 10 10" refX="10" refY="5" markerWidth="6" markerHeight="6" orient="auto-start-reverse">
      <path d="M 0 0 L 10 5 L 0 10 z" fill="black"/>
    </marker>
  </defs>
`)
}

func renderAxis(buf *bytes.Buffer, s render.AxisShape) {
	x2, y2 := s.Axis.Length, 0.0
	if !s.Axis.Horizontal {
		x2, y2 = 0, -s.Axis.Length
	}
	fmt.Fprintf(buf, `  <line id="%s" class="axis" x1="0" y1="0" x2="%.2f" y2="%.2f" stroke="black" stroke-width="2" marker-end="url(#arrow)"><title>%s</title></line>`+"\n",
		s.ID, x2, y2, render.EscapeXML(s.Label()))
}

func renderContainer(buf *bytes.Buffer, s render.ContainerShape, tooltips bool) {
	c := s.Container
	class := "container"
	if c.Conditional {
		class += " conditional"
	}
	fmt.Fprintf(buf, `  <rect id="%s" class="%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" fill-opacity="0.6" stroke="%s" stroke-width="1">`,
		s.ID, class, c.X, c.Y, c.Width, c.Height, s.Color, s.Color)
	if tooltips {
		fmt.Fprintf(buf, "<title>%s</title>", render.EscapeXML(strings.Join(s.Tooltip, "\n")))
	}
	buf.WriteString("</rect>\n")

	if c.Used && c.LastUseX > c.FirstUseX {
		fmt.Fprintf(buf, `  <rect class="container-use" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" fill-opacity="0.4" pointer-events="none"/>`+"\n",
			c.FirstUseX, c.Y, c.LastUseX-c.FirstUseX, c.Height, s.Color)
	}

	label := s.Label()
	size := render.FontSize(c.Width, c.Height, len(label))
	if c.Height < size || c.Width < size*3 {
		return
	}
	label = render.TruncateLabel(label, c.Width, size)
	fmt.Fprintf(buf, `  <text class="container-text" x="%.2f" y="%.2f" font-family='%s' font-size="%.1f" dominant-baseline="middle" pointer-events="none">%s</text>`+"\n",
		c.X+size/2, c.Y+c.Height/2, fontFamily, size, render.EscapeXML(label))
}

func renderAccess(buf *bytes.Buffer, s render.AccessShape) {
	a := s.Access
	class := "access write"
	if a.Mode == trace.ModeRead {
		class = "access read"
	}
	x := a.X + a.Width/2
	fmt.Fprintf(buf, `  <line id="%s" class="%s" data-container="%s" x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="black" stroke-width="%.2f">`,
		s.ID, class, s.ContainerID, x, a.Y, x, a.Y+a.Height, max(1, a.Width/4))
	if a.Subset != "" {
		fmt.Fprintf(buf, "<title>%s</title>", render.EscapeXML(a.Subset))
	}
	buf.WriteString("</line>\n")
}

func renderScope(buf *bytes.Buffer, s render.ScopeShape) {
	sc := s.Scope
	fmt.Fprintf(buf, `  <rect id="%s" class="scope scope-%s" x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s" fill-opacity="0.5"><title>%s</title></rect>`+"\n",
		s.ID, sc.Kind(), sc.X, sc.Y, sc.Width, sc.Height, s.Color, render.EscapeXML(sc.Label))
	size := render.FontSize(sc.Width, sc.Height, len(sc.Label))
	if sc.Width < size*3 {
		return
	}
	fmt.Fprintf(buf, `  <text class="scope-text" x="%.2f" y="%.2f" font-family='%s' font-size="%.1f" dominant-baseline="middle" fill="white">%s</text>`+"\n",
		sc.X+size/2, sc.Y+sc.Height/2, fontFamily, size, render.EscapeXML(render.TruncateLabel(sc.Label, sc.Width, size)))
}

func renderPolygon(buf *bytes.Buffer, pts []timeline.Point) {
	if len(pts) == 0 {
		return
	}
	coords := make([]string, 0, len(pts))
	for _, p := range pts {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsInf(p.X, 0) || math.IsInf(p.Y, 0) {
			return
		}
		coords = append(coords, fmt.Sprintf("%.2f,%.2f", p.X, p.Y))
	}
	fmt.Fprintf(buf, `  <polygon class="footprint" points="%s" fill="none" stroke="black" stroke-width="3"/>`+"\n", strings.Join(coords, " "))
}

func renderStats(buf *bytes.Buffer, l *timeline.Layout) {
	x := l.Bounds.X + l.Bounds.Width + statsOffsetX
	y := l.Bounds.Y
	if !finite(l.Bounds) {
		x, y = statsOffsetX, 0
	}
	lines := []string{
		"Median reuse distance: " + render.FormatNumber(l.MedianReuseDistance),
		"Median use / allocation ratio: " + render.FormatNumber(l.MedianUseRatio),
	}
	for i, line := range lines {
		fmt.Fprintf(buf, `  <text class="stats" x="%.2f" y="%.2f" font-family='%s' font-size="%.0f" dominant-baseline="hanging">%s</text>`+"\n",
			x, y+float64(i)*statsFontSize*1.25, fontFamily, statsFontSize, render.EscapeXML(line))
	}
}
