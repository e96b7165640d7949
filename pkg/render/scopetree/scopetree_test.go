package scopetree

import (
	"strings"
	"testing"

	"github.com/matzehuels/memtower/pkg/timeline"
)

func scopes() []timeline.Scope {
	// Structured layouts list scopes in closing order.
	return []timeline.Scope{
		{Label: "Loop 2", Depth: 1, Start: 1, End: 3},
		{Label: "Conditional 3", Depth: 1, Start: 3, End: 4},
		{Label: "Parallel 5", Depth: 2, Start: 3, End: 4},
		{Label: "Function main", Depth: 0, Start: 0, End: 4},
		{Label: "Function other", Depth: 0, Start: 4, End: 6},
	}
}

func TestBuild(t *testing.T) {
	roots := Build(scopes())
	if len(roots) != 2 {
		t.Fatalf("len(roots) = %d, want 2", len(roots))
	}
	main := roots[0]
	if main.Scope.Label != "Function main" || len(main.Children) != 2 {
		t.Fatalf("main = %+v", main)
	}
	if main.Children[0].Scope.Label != "Loop 2" || main.Children[1].Scope.Label != "Conditional 3" {
		t.Errorf("children out of order: %s, %s", main.Children[0].Scope.Label, main.Children[1].Scope.Label)
	}
	cond := main.Children[1]
	if len(cond.Children) != 1 || cond.Children[0].Scope.Label != "Parallel 5" {
		t.Errorf("conditional children = %+v", cond.Children)
	}
	if len(roots[1].Children) != 0 {
		t.Errorf("other has children: %+v", roots[1].Children)
	}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(scopes(), Options{Detailed: true})
	for _, want := range []string{
		"digraph scopes {",
		`label="Function main\n[0, 4)"`,
		`fillcolor="red"`,
		`fillcolor="blue"`,
		`fillcolor="green"`,
		`fillcolor="gray"`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if n := strings.Count(dot, "->"); n != 3 {
		t.Errorf("edge count = %d, want 3", n)
	}
}
