package transform

import (
	"github.com/sadolini/openvino/pkg/graph"
	"github.com/sadolini/openvino/pkg/pattern"
)

// resolve looks up the bound nodes of m by name. A node removed since the
// match was found yields INVALID_REWIRE.
func resolve(g *graph.Graph, m pattern.Match, names ...string) (map[string]*graph.Node, error) {
	nodes := make(map[string]*graph.Node, len(names))
	for _, name := range names {
		n, err := m.Node(g, name)
		if err != nil {
			return nil, err
		}
		nodes[name] = n
	}
	return nodes, nil
}

// pruneUnused removes the candidates whose outputs nobody reads, together
// with their unread output data nodes, repeating until removals stop
// exposing new ones. Sinks are kept.
func pruneUnused(g *graph.Graph, candidates []graph.ID) error {
	for changed := true; changed; {
		changed = false
		for _, id := range candidates {
			n, ok := g.Node(id)
			if !ok || isSink(n) {
				continue
			}
			doomed, ok := unread(g, id)
			if !ok {
				continue
			}
			if err := g.RemoveNodes(doomed...); err != nil {
				return err
			}
			changed = true
		}
	}
	return nil
}

// unread returns id and its output data nodes when none of them has a
// consumer.
func unread(g *graph.Graph, id graph.ID) ([]graph.ID, bool) {
	ids := []graph.ID{id}
	for _, e := range g.OutEdges(id) {
		to, _ := g.Node(e.To)
		if to.Kind != graph.KindData || len(g.OutEdges(e.To)) > 0 {
			return nil, false
		}
		ids = append(ids, e.To)
	}
	return ids, true
}
