package render

import (
	"math"
	"testing"

	"github.com/matzehuels/memtower/pkg/roles"
	"github.com/matzehuels/memtower/pkg/timeline"
	"github.com/matzehuels/memtower/pkg/trace"
)

func sampleLayout(t *testing.T) *timeline.Layout {
	t.Helper()
	tr := &trace.Trace{Shape: trace.ShapeStructured, Events: []trace.Event{
		trace.NewScopeEntry("0", trace.ScopeLoop, ""),
		trace.NewAllocation("A", trace.SizeOf(1536)),
		trace.NewAccess("A", trace.ModeWrite, "0"),
		trace.NewAccess("A", trace.ModeRead, "1"),
		trace.NewScopeExit("0"),
		trace.NewDeallocation("A"),
	}}
	l, err := timeline.Build(tr, timeline.WithRules(&roles.Rules{In: []roles.Matcher{roles.Literal("A")}}))
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestShapes(t *testing.T) {
	l := sampleLayout(t)
	shapes := Shapes(l)
	if len(shapes) != 6 {
		t.Fatalf("len(Shapes) = %d, want 6", len(shapes))
	}

	var counts [4]int
	seen := map[string]bool{}
	for _, s := range shapes {
		if seen[s.GUID()] {
			t.Errorf("duplicate GUID %s", s.GUID())
		}
		seen[s.GUID()] = true
		switch s := s.(type) {
		case AxisShape:
			counts[0]++
		case ContainerShape:
			counts[1]++
			if s.Label() != "A (1.5 KiB)" {
				t.Errorf("container label = %q", s.Label())
			}
			if s.Color != PaletteColor(0) {
				t.Errorf("container color = %q", s.Color)
			}
		case AccessShape:
			counts[2]++
			if s.ContainerID == "" {
				t.Error("access without container id")
			}
		case ScopeShape:
			counts[3]++
			if s.Color != "red" {
				t.Errorf("loop scope color = %q, want red", s.Color)
			}
		}
	}
	if counts != [4]int{2, 1, 2, 1} {
		t.Errorf("shape counts = %v", counts)
	}

	again := Shapes(sampleLayout(t))
	for i := range shapes {
		if shapes[i].GUID() != again[i].GUID() {
			t.Errorf("GUID %d not stable: %s vs %s", i, shapes[i].GUID(), again[i].GUID())
		}
	}
}

func TestTooltip(t *testing.T) {
	l := sampleLayout(t)
	got := Tooltip(l.Containers[0])
	want := []string{
		"A (1.5 KiB)",
		"Program Input",
		"Use / Allocation time ratio: 50%",
		"Mean reuse distance: 1",
	}
	if len(got) != len(want) {
		t.Fatalf("Tooltip = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tooltip[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	c := &timeline.Container{Name: "t", Size: 8, Reuse: timeline.Reuse{MeanDistance: math.Inf(1)}}
	lines := Tooltip(c)
	if lines[len(lines)-1] != "No reuse!" {
		t.Errorf("Tooltip without reuse = %q", lines)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0 B"},
		{100, "100 B"},
		{1536, "1.5 KiB"},
		{1 << 20, "1.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{2.5, "2.5"},
		{50, "50"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{math.NaN(), "NaN"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateLabel(t *testing.T) {
	if got := TruncateLabel("short", 1000, 10); got != "short" {
		t.Errorf("TruncateLabel kept = %q", got)
	}
	if got := TruncateLabel("a_rather_long_buffer_name", 40, 10); len(got) >= len("a_rather_long_buffer_name") {
		t.Errorf("TruncateLabel did not shorten: %q", got)
	}
}
