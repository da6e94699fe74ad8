package graph

import (
	"fmt"
	"slices"

	"github.com/google/go-cmp/cmp"
)

// Signature describes g by names instead of IDs: one line per node
// (kind, name, operator, attributes) followed by one line per edge. Two
// graphs that differ only in ID numbering have equal signatures.
func Signature(g *Graph) []string {
	label := func(id ID) string {
		n := g.nodes[id]
		if n.Name != "" {
			return n.Name
		}
		return fmt.Sprintf("#%d", id)
	}
	var nodes, edges []string
	for _, n := range g.Nodes() {
		switch n.Kind {
		case KindOp:
			nodes = append(nodes, fmt.Sprintf("op %s %s %v", label(n.ID), n.Op, map[string]any(n.Attrs)))
		default:
			nodes = append(nodes, fmt.Sprintf("data %s %v", label(n.ID), map[string]any(n.Attrs)))
		}
		for _, e := range g.outgoing[n.ID] {
			edges = append(edges, fmt.Sprintf("edge %s:%d -> %s:%d", label(e.From), e.Out, label(e.To), e.In))
		}
	}
	slices.Sort(nodes)
	slices.Sort(edges)
	return append(nodes, edges...)
}

// Equal reports whether a and b have the same form and signature.
func Equal(a, b *Graph) bool {
	return a.form == b.form && slices.Equal(Signature(a), Signature(b))
}

// Diff returns a human-readable difference between the signatures of a
// and b, or "" when they are equal.
func Diff(a, b *Graph) string {
	if a.form != b.form {
		return fmt.Sprintf("form: %s != %s", a.form, b.form)
	}
	return cmp.Diff(Signature(a), Signature(b))
}
