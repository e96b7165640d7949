package sink

import (
	"encoding/json"
	"math"

	"github.com/matzehuels/memtower/pkg/render"
	"github.com/matzehuels/memtower/pkg/timeline"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	source string
	shapes bool
}

// WithJSONSource records the trace file name in the output.
func WithJSONSource(name string) JSONOption { return func(r *jsonRenderer) { r.source = name } }

// WithJSONShapes adds the GUID and color that [render.Shapes] assigns to
// every element.
func WithJSONShapes() JSONOption { return func(r *jsonRenderer) { r.shapes = true } }

// number encodes non-finite floats as strings.
type number float64

func (n number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(f)
}

type jsonRect struct {
	X      number `json:"x"`
	Y      number `json:"y"`
	Width  number `json:"width"`
	Height number `json:"height"`
}

func rect(r timeline.Rect) jsonRect {
	return jsonRect{number(r.X), number(r.Y), number(r.Width), number(r.Height)}
}

type jsonOutput struct {
	Source       string     `json:"source,omitempty"`
	Shape        string     `json:"shape"`
	EventCount   int        `json:"event_count"`
	MaxFootprint number     `json:"max_footprint"`
	ScaleX       number     `json:"scale_x"`
	ScaleY       number     `json:"scale_y"`
	Totals       jsonTotals `json:"totals"`
	Bounds       jsonRect   `json:"bounds"`

	MedianReuseDistance number `json:"median_reuse_distance"`
	MedianUseRatio      number `json:"median_use_ratio"`
	Warnings            int    `json:"warnings"`

	Containers []jsonContainer `json:"containers"`
	Accesses   []jsonAccess    `json:"accesses"`
	Scopes     []jsonScope     `json:"scopes"`
	Polygon    [][2]number     `json:"polygon"`
}

type jsonTotals struct {
	InputOnly   number `json:"input_only"`
	InputOutput number `json:"input_output"`
	OutputOnly  number `json:"output_only"`
	Other       number `json:"other"`
}

type jsonContainer struct {
	Index         int       `json:"index"`
	ID            string    `json:"id,omitempty"`
	Name          string    `json:"name"`
	Buffer        string    `json:"buffer"`
	Label         string    `json:"label"`
	Size          number    `json:"size"`
	Role          string    `json:"role"`
	Conditional   bool      `json:"conditional,omitempty"`
	AllocatedAt   int       `json:"allocated_at"`
	DeallocatedAt int       `json:"deallocated_at"`
	Color         string    `json:"color,omitempty"`
	FirstUseX     *number   `json:"first_use_x,omitempty"`
	LastUseX      *number   `json:"last_use_x,omitempty"`
	Reuse         jsonReuse `json:"reuse"`
	jsonRect
}

type jsonReuse struct {
	Distances    []int  `json:"distances"`
	UseRatio     number `json:"use_ratio"`
	MeanDistance number `json:"mean_distance"`
}

type jsonAccess struct {
	ID          string `json:"id,omitempty"`
	Container   int    `json:"container"`
	Mode        string `json:"mode"`
	Subset      string `json:"subset,omitempty"`
	Timestep    int    `json:"timestep"`
	Conditional bool   `json:"conditional,omitempty"`
	jsonRect
}

type jsonScope struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label"`
	Kind  string `json:"kind"`
	Depth int    `json:"depth"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Color string `json:"color,omitempty"`
	jsonRect
}

// RenderJSON exports the layout as a pretty-printed JSON document. Accesses
// are listed in time order and refer to their container by index.
func RenderJSON(l *timeline.Layout, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		Source:       r.source,
		Shape:        string(l.Shape),
		EventCount:   l.EventCount,
		MaxFootprint: number(l.MaxFootprint),
		ScaleX:       number(l.ScaleX),
		ScaleY:       number(l.ScaleY),
		Totals: jsonTotals{
			InputOnly:   number(l.Totals.InputOnly),
			InputOutput: number(l.Totals.InputOutput),
			OutputOnly:  number(l.Totals.OutputOnly),
			Other:       number(l.Totals.Other),
		},
		Bounds:              rect(l.Bounds),
		MedianReuseDistance: number(l.MedianReuseDistance),
		MedianUseRatio:      number(l.MedianUseRatio),
		Warnings:            l.Warnings,
		Containers:          make([]jsonContainer, 0, len(l.Containers)),
		Accesses:            make([]jsonAccess, 0, len(l.Reads)+len(l.Writes)),
		Scopes:              make([]jsonScope, 0, len(l.Scopes)),
		Polygon:             make([][2]number, 0, len(l.Polygon)),
	}

	index := make(map[*timeline.Container]int, len(l.Containers))
	for i, c := range l.Containers {
		index[c] = i
		jc := jsonContainer{
			Index:         i,
			Name:          c.Name,
			Buffer:        c.Buffer,
			Label:         render.ContainerLabel(c),
			Size:          number(c.Size),
			Role:          c.Role().String(),
			Conditional:   c.Conditional,
			AllocatedAt:   c.AllocatedAt,
			DeallocatedAt: c.DeallocatedAt,
			Reuse: jsonReuse{
				Distances:    c.Reuse.Distances,
				UseRatio:     number(c.Reuse.UseRatio),
				MeanDistance: number(c.Reuse.MeanDistance),
			},
			jsonRect: rect(c.Rect),
		}
		if jc.Reuse.Distances == nil {
			jc.Reuse.Distances = []int{}
		}
		if c.Used {
			first, last := number(c.FirstUseX), number(c.LastUseX)
			jc.FirstUseX, jc.LastUseX = &first, &last
		}
		if r.shapes {
			jc.ID = render.ContainerID(i, c)
			jc.Color = render.PaletteColor(i)
		}
		out.Containers = append(out.Containers, jc)
	}

	for _, a := range mergeAccesses(l.Reads, l.Writes) {
		ja := jsonAccess{
			Container:   index[a.Container],
			Mode:        string(a.Mode),
			Subset:      a.Subset,
			Timestep:    a.Timestep,
			Conditional: a.Conditional,
			jsonRect:    rect(a.Rect),
		}
		if r.shapes {
			ja.ID = render.AccessID(a)
		}
		out.Accesses = append(out.Accesses, ja)
	}

	for i, s := range l.Scopes {
		js := jsonScope{
			Label:    s.Label,
			Kind:     string(s.Kind()),
			Depth:    s.Depth,
			Start:    s.Start,
			End:      s.End,
			jsonRect: rect(s.Rect),
		}
		if r.shapes {
			js.ID = render.ScopeID(i, s)
			js.Color = render.ScopeColor(s.Kind())
		}
		out.Scopes = append(out.Scopes, js)
	}

	for _, p := range l.Polygon {
		out.Polygon = append(out.Polygon, [2]number{number(p.X), number(p.Y)})
	}

	return json.MarshalIndent(out, "", "  ")
}

// mergeAccesses interleaves reads and writes by timestep. Each access
// occupies its own timestep, so the order is total.
func mergeAccesses(reads, writes []*timeline.Access) []*timeline.Access {
	out := make([]*timeline.Access, 0, len(reads)+len(writes))
	i, j := 0, 0
	for i < len(reads) || j < len(writes) {
		if j >= len(writes) || (i < len(reads) && reads[i].Timestep < writes[j].Timestep) {
			out = append(out, reads[i])
			i++
		} else {
			out = append(out, writes[j])
			j++
		}
	}
	return out
}
