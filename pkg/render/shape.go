package render

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/matzehuels/memtower/pkg/timeline"
	"github.com/matzehuels/memtower/pkg/trace"
)

// Shape is one drawable element. The concrete types are [ContainerShape],
// [AccessShape], [ScopeShape] and [AxisShape].
type Shape interface {
	// GUID is a stable identifier for the element.
	GUID() string
	// Label is the short text shown for the element.
	Label() string
	// Bounds is the box the element occupies in layout units.
	Bounds() timeline.Rect

	isShape()
}

// ContainerShape draws an allocation lifetime.
type ContainerShape struct {
	ID        string
	Container *timeline.Container
	Color     string
	// Tooltip lines: label, role caption (if any), use ratio, reuse.
	Tooltip []string
}

// AccessShape draws one access mark inside its container.
type AccessShape struct {
	ID          string
	Access      *timeline.Access
	ContainerID string
}

// ScopeShape draws a scope band.
type ScopeShape struct {
	ID    string
	Scope timeline.Scope
	Color string
}

// AxisShape draws a chart axis starting at the origin.
type AxisShape struct {
	ID   string
	Axis timeline.Axis
}

func (s ContainerShape) GUID() string { return s.ID }
func (s AccessShape) GUID() string    { return s.ID }
func (s ScopeShape) GUID() string     { return s.ID }
func (s AxisShape) GUID() string      { return s.ID }

// Label is "name (size)", e.g. "A (1.5 KiB)".
func (s ContainerShape) Label() string { return ContainerLabel(s.Container) }

// Label is the access subset descriptor.
func (s AccessShape) Label() string { return s.Access.Subset }

func (s ScopeShape) Label() string { return s.Scope.Label }

func (s AxisShape) Label() string {
	if s.Axis.Horizontal {
		return "Chart axis (horizontal)"
	}
	return "Chart axis (vertical)"
}

func (s ContainerShape) Bounds() timeline.Rect { return s.Container.Rect }
func (s AccessShape) Bounds() timeline.Rect    { return s.Access.Rect }
func (s ScopeShape) Bounds() timeline.Rect     { return s.Scope.Rect }

// Bounds of the vertical axis extend upward from the origin.
func (s AxisShape) Bounds() timeline.Rect {
	if s.Axis.Horizontal {
		return timeline.Rect{Width: s.Axis.Length, Height: 1}
	}
	return timeline.Rect{Y: -s.Axis.Length, Width: 1, Height: s.Axis.Length}
}

func (ContainerShape) isShape() {}
func (AccessShape) isShape()    {}
func (ScopeShape) isShape()     {}
func (AxisShape) isShape()      {}

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/matzehuels/memtower"))

// GUID derives a deterministic identifier from a kind and an index path.
func GUID(kind string, parts ...any) string {
	key := kind
	for _, p := range parts {
		key += "/" + fmt.Sprint(p)
	}
	return uuid.NewSHA1(namespace, []byte(key)).String()
}

// Shapes returns the drawable elements of l in drawing order: axes,
// containers, reads, writes, scopes.
func Shapes(l *timeline.Layout) []Shape {
	n := 2 + len(l.Containers) + len(l.Reads) + len(l.Writes) + len(l.Scopes)
	out := make([]Shape, 0, n)

	x, y := l.Axes()
	out = append(out, AxisShape{ID: GUID("axis", "x"), Axis: x}, AxisShape{ID: GUID("axis", "y"), Axis: y})

	ids := make(map[*timeline.Container]string, len(l.Containers))
	for i, c := range l.Containers {
		id := ContainerID(i, c)
		ids[c] = id
		out = append(out, ContainerShape{
			ID:        id,
			Container: c,
			Color:     PaletteColor(i),
			Tooltip:   Tooltip(c),
		})
	}
	for _, a := range l.Reads {
		out = append(out, AccessShape{ID: AccessID(a), Access: a, ContainerID: ids[a.Container]})
	}
	for _, a := range l.Writes {
		out = append(out, AccessShape{ID: AccessID(a), Access: a, ContainerID: ids[a.Container]})
	}
	for i, s := range l.Scopes {
		out = append(out, ScopeShape{ID: ScopeID(i, s), Scope: s, Color: ScopeColor(s.Kind())})
	}
	return out
}

// ContainerID is the GUID of the i-th container.
func ContainerID(i int, c *timeline.Container) string { return GUID("container", i, c.Buffer) }

// AccessID is the GUID of an access. Timesteps are unique per access.
func AccessID(a *timeline.Access) string { return GUID("access", a.Timestep) }

// ScopeID is the GUID of the i-th scope.
func ScopeID(i int, s timeline.Scope) string { return GUID("scope", i, s.Label) }

// ContainerLabel formats "name (size)" with IEC byte units.
func ContainerLabel(c *timeline.Container) string {
	return c.Name + " (" + FormatBytes(c.Size) + ")"
}

// FormatBytes formats a byte count with IEC units, e.g. "100 B" or
// "1.5 KiB".
func FormatBytes(n float64) string {
	if n < 0 || math.IsNaN(n) {
		return FormatNumber(n) + " B"
	}
	return humanize.IBytes(uint64(n))
}

// FormatNumber prints a float in its shortest form, spelling out infinities.
func FormatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Tooltip returns the descriptive lines shown for a container.
func Tooltip(c *timeline.Container) []string {
	lines := []string{ContainerLabel(c)}
	if caption := c.Role().Caption(); caption != "" {
		lines = append(lines, caption)
	}
	lines = append(lines, "Use / Allocation time ratio: "+FormatNumber(c.Reuse.UseRatio)+"%")
	if c.Reuse.HasReuse() {
		lines = append(lines, "Mean reuse distance: "+FormatNumber(c.Reuse.MeanDistance))
	} else {
		lines = append(lines, "No reuse!")
	}
	return lines
}

// kellyColors is Kelly's list of maximally distinct colors, without white
// and black.
var kellyColors = []string{
	"#f3c300", "#875692", "#f38400", "#a1caf1", "#be0032",
	"#c2b280", "#848482", "#008856", "#e68fac", "#0067a5",
	"#f99379", "#604e97", "#f6a600", "#b3446c", "#dcd300",
	"#882d17", "#8db600", "#654522", "#e25822", "#2b3d26",
}

// PaletteColor returns the i-th container color, cycling through the
// palette.
func PaletteColor(i int) string {
	return kellyColors[i%len(kellyColors)]
}

// ScopeColor returns the band color for a scope kind.
func ScopeColor(k trace.ScopeKind) string {
	switch k {
	case trace.ScopeLoop:
		return "red"
	case trace.ScopeConditional:
		return "blue"
	case trace.ScopeParallel:
		return "green"
	}
	return "gray"
}
