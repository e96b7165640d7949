// Package scopetree renders the scope nesting of a layout as a Graphviz
// tree.
//
// Scopes are stored flat, each with a depth. [Build] recovers the tree: the
// parent of a scope is the nearest scope one level up whose interval
// contains it. Scopes that fit under no parent become roots.
//
//	dot := scopetree.ToDOT(l.Scopes, scopetree.Options{})
//	svg, err := scopetree.RenderSVG(ctx, dot)
package scopetree

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/memtower/pkg/render"
	"github.com/matzehuels/memtower/pkg/timeline"
)

// Node is a scope with its children.
type Node struct {
	ID       string
	Scope    timeline.Scope
	Children []*Node
}

// Build arranges scopes into a forest ordered by start time.
func Build(scopes []timeline.Scope) []*Node {
	nodes := make([]*Node, len(scopes))
	for i, s := range scopes {
		nodes[i] = &Node{ID: render.ScopeID(i, s), Scope: s}
	}
	sorted := slices.Clone(nodes)
	slices.SortStableFunc(sorted, func(a, b *Node) int {
		if c := cmp.Compare(a.Scope.Depth, b.Scope.Depth); c != 0 {
			return c
		}
		return cmp.Compare(a.Scope.Start, b.Scope.Start)
	})

	var roots []*Node
	for _, n := range sorted {
		if p := findParent(sorted, n); p != nil {
			p.Children = append(p.Children, n)
		} else {
			roots = append(roots, n)
		}
	}
	return roots
}

func findParent(nodes []*Node, n *Node) *Node {
	var best *Node
	for _, p := range nodes {
		s := p.Scope
		if s.Depth != n.Scope.Depth-1 || s.Start > n.Scope.Start || s.End < n.Scope.End {
			continue
		}
		// Prefer the tightest enclosing interval.
		if best == nil || s.End-s.Start < best.Scope.End-best.Scope.Start {
			best = p
		}
	}
	return best
}

// Options configures DOT output.
type Options struct {
	// Detailed adds the time interval to every node label.
	Detailed bool
}

// ToDOT converts scopes to Graphviz DOT format. Nodes are colored by scope
// kind.
func ToDOT(scopes []timeline.Scope, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph scopes {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fontcolor=white, fontsize=20, margin=\"0.2,0.1\"];\n")
	buf.WriteString("\n")

	var walk func(n *Node)
	walk = func(n *Node) {
		fmt.Fprintf(&buf, "  %q [label=%q, fillcolor=%q];\n", n.ID, nodeLabel(n.Scope, opts.Detailed), render.ScopeColor(n.Scope.Kind()))
		for _, c := range n.Children {
			fmt.Fprintf(&buf, "  %q -> %q;\n", n.ID, c.ID)
			walk(c)
		}
	}
	for _, root := range Build(scopes) {
		walk(root)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(s timeline.Scope, detailed bool) string {
	if !detailed {
		return s.Label
	}
	return fmt.Sprintf("%s\n[%d, %d)", s.Label, s.Start, s.End)
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}
