package timeline

import (
	"strings"

	"github.com/matzehuels/memtower/pkg/roles"
	"github.com/matzehuels/memtower/pkg/trace"
)

// Point is a polygon vertex.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned box. Y grows downward, so the stacked containers
// have negative Y and scopes are drawn below the x axis.
type Rect struct {
	X, Y, Width, Height float64
}

// Container is the lifetime of one allocation.
type Container struct {
	// Name is the buffer name with the internal prefix removed.
	Name string
	// Buffer is the raw buffer name used in the trace.
	Buffer string
	Size   float64

	IsInput     bool
	IsOutput    bool
	Conditional bool

	AllocatedAt   int
	DeallocatedAt int

	Rect

	Accesses []*Access

	// FirstUseX and LastUseX bound the accesses along x; only valid when
	// Used is true.
	Used      bool
	FirstUseX float64
	LastUseX  float64

	Reuse Reuse

	closed bool
}

// Role returns the stacking partition of the container.
func (c *Container) Role() roles.Role {
	return roles.RoleOf(c.IsInput, c.IsOutput)
}

func (c *Container) register(a *Access) {
	c.Accesses = append(c.Accesses, a)
	if !c.Used || a.X < c.FirstUseX {
		c.FirstUseX = a.X
	}
	if !c.Used || a.X > c.LastUseX {
		c.LastUseX = a.X
	}
	c.Used = true
}

// Access is one read or write of a live container.
type Access struct {
	Mode        trace.Mode
	Subset      string
	Timestep    int
	Conditional bool
	Container   *Container

	Rect
}

// Scope is a closed scope interval.
type Scope struct {
	Label string
	// Type is the recorded kind, empty when the trace did not name one.
	Type  trace.ScopeKind
	Depth int
	Start int
	End   int

	Rect
}

// Kind returns Type, or derives the kind from the label when Type is empty.
// Labels that name none of the known kinds are reported as
// [trace.ScopeFunc].
func (s Scope) Kind() trace.ScopeKind {
	if s.Type != "" {
		return s.Type
	}
	switch {
	case strings.HasPrefix(s.Label, "Loop"):
		return trace.ScopeLoop
	case strings.HasPrefix(s.Label, "Conditional"):
		return trace.ScopeConditional
	case strings.HasPrefix(s.Label, "Parallel"):
		return trace.ScopeParallel
	}
	return trace.ScopeFunc
}

// Axis describes one chart axis.
type Axis struct {
	Horizontal bool
	// Max is the largest value on the axis (events or bytes).
	Max float64
	// Length is Max in layout units.
	Length float64
}

// Layout is the complete, immutable result of [Build].
type Layout struct {
	Shape        trace.Shape
	EventCount   int
	MaxFootprint float64
	ScaleX       float64
	ScaleY       float64
	Totals       Totals

	Containers []*Container
	Reads      []*Access
	Writes     []*Access
	Scopes     []Scope
	Polygon    []Point

	// Bounds spans the stacked containers above the x axis and the scope
	// bands below it.
	Bounds Rect

	MedianReuseDistance float64
	MedianUseRatio      float64

	// Warnings counts the recoverable inconsistencies met while building.
	Warnings int
}

// Axes returns the horizontal (time) and vertical (bytes) axes.
func (l *Layout) Axes() (x, y Axis) {
	n := float64(l.EventCount)
	x = Axis{Horizontal: true, Max: n, Length: n * l.ScaleX}
	y = Axis{Max: l.MaxFootprint, Length: l.MaxFootprint * l.ScaleY}
	return x, y
}

// EndTime is the logical time after the last access.
func (l *Layout) EndTime() int {
	return l.EventCount
}
