package pipeline

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"

	"github.com/matzehuels/memtower/pkg/timeline"
	"github.com/matzehuels/memtower/pkg/trace"
)

// Float is a float64 whose JSON form spells non-finite values as the
// strings "NaN", "Infinity" and "-Infinity".
type Float float64

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"Infinity"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Infinity"`), nil
	}
	return json.Marshal(v)
}

func (f *Float) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		switch s {
		case "NaN":
			*f = Float(math.NaN())
		case "Infinity":
			*f = Float(math.Inf(1))
		case "-Infinity":
			*f = Float(math.Inf(-1))
		default:
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return err
			}
			*f = Float(v)
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = Float(v)
	return nil
}

// Summary condenses a layout into the numbers shown by the stats command
// and endpoint.
type Summary struct {
	Source       string `json:"source,omitempty"`
	Shape        string `json:"shape"`
	EventCount   int    `json:"event_count"`
	Skipped      int    `json:"skipped_events"`
	MaxFootprint Float  `json:"max_footprint"`

	Containers int `json:"containers"`
	Reads      int `json:"reads"`
	Writes     int `json:"writes"`
	Scopes     int `json:"scopes"`

	InputOnly   Float `json:"input_only"`
	InputOutput Float `json:"input_output"`
	OutputOnly  Float `json:"output_only"`
	Other       Float `json:"other"`

	MedianReuseDistance Float `json:"median_reuse_distance"`
	MedianUseRatio      Float `json:"median_use_ratio"`
	Warnings            int   `json:"warnings"`

	Buffers []BufferSummary `json:"buffers"`
}

// BufferSummary describes one container.
type BufferSummary struct {
	Name          string `json:"name"`
	Size          Float  `json:"size"`
	Role          string `json:"role"`
	Conditional   bool   `json:"conditional,omitempty"`
	AllocatedAt   int    `json:"allocated_at"`
	DeallocatedAt int    `json:"deallocated_at"`
	Accesses      int    `json:"accesses"`
	UseRatio      Float  `json:"use_ratio"`
	MeanReuse     Float  `json:"mean_reuse_distance"`
	Reused        bool   `json:"reused"`
}

// Summarize builds the summary of a layout. Buffers are listed largest
// first, ties in allocation order.
func Summarize(source string, tr *trace.Trace, l *timeline.Layout) *Summary {
	s := &Summary{
		Source:              source,
		Shape:               string(l.Shape),
		EventCount:          l.EventCount,
		MaxFootprint:        Float(l.MaxFootprint),
		Containers:          len(l.Containers),
		Reads:               len(l.Reads),
		Writes:              len(l.Writes),
		Scopes:              len(l.Scopes),
		InputOnly:           Float(l.Totals.InputOnly),
		InputOutput:         Float(l.Totals.InputOutput),
		OutputOnly:          Float(l.Totals.OutputOnly),
		Other:               Float(l.Totals.Other),
		MedianReuseDistance: Float(l.MedianReuseDistance),
		MedianUseRatio:      Float(l.MedianUseRatio),
		Warnings:            l.Warnings,
		Buffers:             make([]BufferSummary, 0, len(l.Containers)),
	}
	if tr != nil {
		s.Skipped = tr.Skipped
	}
	for _, c := range l.Containers {
		s.Buffers = append(s.Buffers, BufferSummary{
			Name:          c.Name,
			Size:          Float(c.Size),
			Role:          c.Role().String(),
			Conditional:   c.Conditional,
			AllocatedAt:   c.AllocatedAt,
			DeallocatedAt: c.DeallocatedAt,
			Accesses:      len(c.Accesses),
			UseRatio:      Float(c.Reuse.UseRatio),
			MeanReuse:     Float(c.Reuse.MeanDistance),
			Reused:        c.Reuse.HasReuse(),
		})
	}
	slices.SortStableFunc(s.Buffers, func(a, b BufferSummary) int {
		switch {
		case a.Size > b.Size:
			return -1
		case a.Size < b.Size:
			return 1
		}
		return 0
	})
	return s
}
