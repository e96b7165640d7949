package timeline

import (
	"math"

	"github.com/matzehuels/memtower/pkg/roles"
	"github.com/matzehuels/memtower/pkg/trace"
)

// Totals is the result of the aggregation pass.
type Totals struct {
	// EventCount is the number of access events.
	EventCount int
	// MaxFootprint is the peak number of live bytes.
	MaxFootprint float64

	InputOnly   float64
	InputOutput float64
	OutputOnly  float64
	Other       float64

	// Roles maps prefix-stripped buffer names to their partition. A name
	// allocated more than once keeps its last classification.
	Roles map[string]roles.Role

	// Warnings counts unparsable sizes.
	Warnings int
}

// Partition returns the total bytes allocated in role r over the whole run.
func (t Totals) Partition(r roles.Role) float64 {
	switch r {
	case roles.Input:
		return t.InputOnly
	case roles.InputOutput:
		return t.InputOutput
	case roles.Output:
		return t.OutputOnly
	}
	return t.Other
}

// Aggregate runs the first pass over events. Only [WithRules] and
// [WithLogger] are used.
func Aggregate(events []trace.Event, opts ...Option) Totals {
	cfg := newConfig(opts)
	t := Totals{Roles: make(map[string]roles.Role)}

	var current float64
	sizes := make(map[string]float64)
	for _, ev := range events {
		switch ev.Kind {
		case trace.KindAccess:
			t.EventCount++
		case trace.KindAllocation:
			for _, b := range ev.Buffers {
				size, err := b.Size.Bytes()
				if err != nil {
					cfg.logger.Warn("failed to parse allocation size", "buffer", b.Name, "size", b.Size.String())
					t.Warnings++
				}
				sizes[b.Name] = size
				current += size

				clean := roles.StripInternalPrefix(b.Name)
				role := cfg.rules.Role(clean)
				t.Roles[clean] = role
				switch role {
				case roles.InputOutput:
					t.InputOutput += size
				case roles.Input:
					t.InputOnly += size
				case roles.Output:
					t.OutputOnly += size
				default:
					t.Other += size
				}
			}
			if current > t.MaxFootprint {
				t.MaxFootprint = current
			}
		case trace.KindDeallocation:
			for _, b := range ev.Buffers {
				size, ok := sizes[b.Name]
				if !ok {
					cfg.logger.Debug("deallocation of untracked buffer", "buffer", b.Name)
					continue
				}
				current -= size
				delete(sizes, b.Name)
			}
		}
	}
	return t
}

// Scale holds the factors mapping logical time and bytes to layout units.
type Scale struct {
	X float64
	Y float64
}

// Scale derives the layout scales. The y scale never magnifies: it is
// min(MaxFootprint, heightCap) / MaxFootprint.
func (t Totals) Scale(targetWidth, heightCap float64) Scale {
	target := math.Min(t.MaxFootprint, heightCap)
	return Scale{
		X: targetWidth / float64(t.EventCount),
		Y: target / t.MaxFootprint,
	}
}

// baselines returns the initial stack top of every partition, indexed by
// role. Input-only starts at zero; each following partition starts where
// the scaled total of the one before it ends.
func (t Totals) baselines(scaleY float64) [4]float64 {
	var tops [4]float64
	tops[roles.Input] = 0
	tops[roles.InputOutput] = tops[roles.Input] - t.InputOnly*scaleY
	tops[roles.Output] = tops[roles.InputOutput] - t.InputOutput*scaleY
	tops[roles.Other] = tops[roles.Output] - t.OutputOnly*scaleY
	return tops
}
