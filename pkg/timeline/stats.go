package timeline

import (
	"errors"
	"math"
	"slices"
)

// ErrEmpty is returned by [Median] for an empty input.
var ErrEmpty = errors.New("median of empty list")

// Reuse summarizes how a container was used over its lifetime.
type Reuse struct {
	// Distances holds the time steps between consecutive accesses.
	Distances []int
	// UseRatio is the span between the first and last access as a
	// percentage of the allocation's lifetime.
	UseRatio float64
	// MeanDistance is the mean of Distances, +Inf when there are fewer than
	// two accesses.
	MeanDistance float64
}

// HasReuse reports whether the container was accessed more than once.
func (r Reuse) HasReuse() bool {
	return len(r.Distances) > 0
}

// ComputeReuse derives the reuse statistics of c from its accesses, which
// are in time order.
func ComputeReuse(c *Container) Reuse {
	var r Reuse
	for i := 1; i < len(c.Accesses); i++ {
		r.Distances = append(r.Distances, c.Accesses[i].Timestep-c.Accesses[i-1].Timestep)
	}

	var used float64
	if n := len(c.Accesses); n > 0 {
		used = float64(c.Accesses[n-1].Timestep - c.Accesses[0].Timestep)
	}
	lifetime := float64(c.DeallocatedAt - c.AllocatedAt)
	r.UseRatio = used / lifetime * 100

	r.MeanDistance = math.Inf(1)
	if len(r.Distances) > 0 {
		var sum int
		for _, d := range r.Distances {
			sum += d
		}
		r.MeanDistance = float64(sum) / float64(len(r.Distances))
	}
	return r
}

// Median returns the middle value of values, or the mean of the two middle
// values for an even count. Infinite values sort normally. values is not
// modified.
func Median(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, ErrEmpty
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	half := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[half], nil
	}
	return (sorted[half-1] + sorted[half]) / 2, nil
}
