package transform

import (
	"github.com/sadolini/openvino/pkg/graph"
)

// isSink reports whether n is a graph output: a Result, a state write, or
// a node explicitly marked with the "keep" attribute.
func isSink(n *graph.Node) bool {
	return n.IsOp("Result", "Assign") || n.Attrs.Flag("keep")
}

// EliminateDead removes every node from which no sink is reachable and
// returns how many nodes were removed. A graph without any sink is left
// untouched; it is almost certainly a fragment still being built.
func EliminateDead(g *graph.Graph) (int, error) {
	var sinks []graph.ID
	for _, n := range g.Nodes() {
		if isSink(n) {
			sinks = append(sinks, n.ID)
		}
	}
	if len(sinks) == 0 {
		return 0, nil
	}
	live := make(map[graph.ID]bool, g.NodeCount())
	for _, id := range sinks {
		live[id] = true
	}
	for _, id := range g.Ancestors(sinks, nil) {
		live[id] = true
	}
	var dead []graph.ID
	for _, n := range g.Nodes() {
		if !live[n.ID] {
			dead = append(dead, n.ID)
		}
	}
	if len(dead) == 0 {
		return 0, nil
	}
	if err := g.RemoveNodes(dead...); err != nil {
		return 0, err
	}
	return len(dead), nil
}
