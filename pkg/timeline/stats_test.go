package timeline

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func TestMedian(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"single", []float64{7}, 7},
		{"odd", []float64{1, 2, 3}, 2},
		{"even", []float64{1, 2, 3, 4}, 2.5},
		{"unsorted", []float64{4, 1, 3, 2}, 2.5},
		{"with inf", []float64{math.Inf(1), 1, 2}, 2},
		{"inf middle", []float64{1, math.Inf(1)}, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := append([]float64(nil), tt.values...)
			got, err := Median(tt.values)
			if err != nil {
				t.Fatalf("Median: %v", err)
			}
			if got != tt.want {
				t.Errorf("Median(%v) = %v, want %v", tt.values, got, tt.want)
			}
			for i := range orig {
				if orig[i] != tt.values[i] {
					t.Fatalf("Median modified its input")
				}
			}
		})
	}
}

func TestMedianEmpty(t *testing.T) {
	if _, err := Median(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Median(nil) error = %v, want ErrEmpty", err)
	}
}

func TestComputeReuse(t *testing.T) {
	mk := func(alloc, dealloc int, steps ...int) *Container {
		c := &Container{AllocatedAt: alloc, DeallocatedAt: dealloc}
		for _, s := range steps {
			c.register(&Access{Timestep: s})
		}
		return c
	}

	tests := []struct {
		name      string
		c         *Container
		distances []int
		ratio     float64
		mean      float64
	}{
		{"no access", mk(0, 10), nil, 0, math.Inf(1)},
		{"one access", mk(0, 10, 4), nil, 0, math.Inf(1)},
		{"regular", mk(0, 10, 1, 3, 5, 9), []int{2, 2, 4}, 80, 8.0 / 3},
		{"full span", mk(2, 4, 2, 4), []int{2}, 100, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ComputeReuse(tt.c)
			if fmt.Sprint(r.Distances) != fmt.Sprint(tt.distances) {
				t.Errorf("Distances = %v, want %v", r.Distances, tt.distances)
			}
			if !approx(r.UseRatio, tt.ratio) {
				t.Errorf("UseRatio = %v, want %v", r.UseRatio, tt.ratio)
			}
			if !approx(r.MeanDistance, tt.mean) {
				t.Errorf("MeanDistance = %v, want %v", r.MeanDistance, tt.mean)
			}
			if r.HasReuse() != (len(tt.distances) > 0) {
				t.Errorf("HasReuse() = %v", r.HasReuse())
			}
		})
	}
}

func ExampleMedian() {
	m, _ := Median([]float64{1, 2, 3, 4})
	fmt.Println(m)
	m, _ = Median([]float64{1, 2, 3})
	fmt.Println(m)
	// Output:
	// 2.5
	// 2
}
