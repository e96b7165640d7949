package timeline

import (
	"strings"

	"github.com/matzehuels/memtower/pkg/trace"
)

// FlattenScopes flattens a scope tree depth-first, starting at depth 0 for
// the root. Start and end times are taken as given. Nodes with equal start
// and end are omitted, but their children are still visited.
func FlattenScopes(root *trace.Scope, scaleX float64) []Scope {
	if root == nil {
		return nil
	}
	var out []Scope
	var walk func(s *trace.Scope, depth int)
	walk = func(s *trace.Scope, depth int) {
		if s.Start != s.End {
			out = append(out, newScope(s.Label, legacyKind(s.Kind), depth, s.Start, s.End, scaleX))
		}
		for i := range s.Children {
			walk(&s.Children[i], depth+1)
		}
	}
	walk(root, 0)
	return out
}

// legacyKind maps the scope field of a legacy tree node onto a scope kind.
// Unrecognized values yield "", leaving the kind to the label.
func legacyKind(k string) trace.ScopeKind {
	switch strings.ToLower(k) {
	case "loop", "for", "while":
		return trace.ScopeLoop
	case "map", "consume", "parallel":
		return trace.ScopeParallel
	case "conditional", "if", "branch":
		return trace.ScopeConditional
	case "func", "function", "sdfg", "nested_sdfg":
		return trace.ScopeFunc
	}
	return ""
}
