package timeline

import (
	"math"
	"testing"

	"github.com/matzehuels/memtower/pkg/roles"
	"github.com/matzehuels/memtower/pkg/trace"
)

func TestAggregate(t *testing.T) {
	rules := &roles.Rules{
		In:  []roles.Matcher{roles.Literal("x")},
		Out: []roles.Matcher{roles.MustPattern(`^y`)},
	}
	events := []trace.Event{
		alloc("1_x", 100),
		trace.NewAllocation("y_out", trace.SizeString("50")),
		read("1_x"),
		free("1_x"),
		trace.NewAllocation("bad", trace.SizeString("lots")),
		alloc("z", 30),
		write("z"),
		free("nope"),
	}

	got := Aggregate(events, WithRules(rules))
	if got.EventCount != 2 {
		t.Errorf("EventCount = %d, want 2", got.EventCount)
	}
	if got.MaxFootprint != 150 {
		t.Errorf("MaxFootprint = %v, want 150", got.MaxFootprint)
	}
	if got.InputOnly != 100 || got.OutputOnly != 50 || got.Other != 30 || got.InputOutput != 0 {
		t.Errorf("partition totals = %+v", got)
	}
	if got.Warnings != 1 {
		t.Errorf("Warnings = %d, want 1", got.Warnings)
	}
	if got.Roles["x"] != roles.Input || got.Roles["y_out"] != roles.Output || got.Roles["bad"] != roles.Other {
		t.Errorf("Roles = %v", got.Roles)
	}
	if got.Partition(roles.Input) != 100 || got.Partition(roles.Other) != 30 {
		t.Errorf("Partition() mismatch")
	}
}

func TestScale(t *testing.T) {
	tests := []struct {
		name   string
		totals Totals
		wantX  float64
		wantY  float64
	}{
		{"small footprint", Totals{EventCount: 4, MaxFootprint: 100}, 2500, 1},
		{"large footprint", Totals{EventCount: 10000, MaxFootprint: 40000}, 1, 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.totals.Scale(DefaultTargetWidth, DefaultHeightCap)
			if s.X != tt.wantX || s.Y != tt.wantY {
				t.Errorf("Scale = %+v, want (%v, %v)", s, tt.wantX, tt.wantY)
			}
		})
	}

	s := Totals{}.Scale(DefaultTargetWidth, DefaultHeightCap)
	if !math.IsInf(s.X, 1) || !math.IsNaN(s.Y) {
		t.Errorf("empty Scale = %+v, want (+Inf, NaN)", s)
	}
}

func TestFlattenScopes(t *testing.T) {
	root := &trace.Scope{Label: "r", Start: 0, End: 10, Children: []trace.Scope{
		{Label: "a", Start: 0, End: 5, Children: []trace.Scope{{Label: "a1", Start: 1, End: 2}}},
		{Label: "b", Start: 5, End: 10},
	}}
	got := FlattenScopes(root, 10)
	want := []struct {
		label string
		depth int
		x, w  float64
	}{
		{"r", 0, 0, 100},
		{"a", 1, 0, 50},
		{"a1", 2, 10, 10},
		{"b", 1, 50, 50},
	}
	if len(got) != len(want) {
		t.Fatalf("FlattenScopes = %+v", got)
	}
	for i, w := range want {
		s := got[i]
		if s.Label != w.label || s.Depth != w.depth || s.X != w.x || s.Width != w.w {
			t.Errorf("scope %d = %+v, want %+v", i, s, w)
		}
		if s.Y != float64(w.depth+1)*ScopeBandHeight || s.Height != ScopeBandHeight {
			t.Errorf("scope %d band = (%v, %v)", i, s.Y, s.Height)
		}
	}
	if FlattenScopes(nil, 1) != nil {
		t.Error("FlattenScopes(nil) != nil")
	}
}
