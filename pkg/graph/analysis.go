package graph

import (
	"cmp"
	"slices"

	"github.com/sadolini/openvino/pkg/errors"
	gograph "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"
)

// directed builds a gonum view of the node and edge sets. Port indices
// are dropped; parallel edges collapse into one.
func (g *Graph) directed(reverse bool) *simple.DirectedGraph {
	dg := simple.NewDirectedGraph()
	for id := range g.nodes {
		dg.AddNode(simple.Node(id))
	}
	for id, es := range g.outgoing {
		if !g.Has(id) {
			continue
		}
		for _, e := range es {
			if e.From == e.To || !g.Has(e.To) {
				continue
			}
			from, to := simple.Node(e.From), simple.Node(e.To)
			if reverse {
				from, to = to, from
			}
			dg.SetEdge(dg.NewEdge(from, to))
		}
	}
	return dg
}

func byID(nodes []gograph.Node) {
	slices.SortFunc(nodes, func(a, b gograph.Node) int { return cmp.Compare(a.ID(), b.ID()) })
}

// Topological returns the node IDs in dependency order, breaking ties by
// ID. It fails with INVARIANT_VIOLATION when the graph has a cycle.
func (g *Graph) Topological() ([]ID, error) {
	sorted, err := topo.SortStabilized(g.directed(false), byID)
	if err != nil {
		return nil, g.cycleError()
	}
	ids := make([]ID, len(sorted))
	for i, n := range sorted {
		ids[i] = ID(n.ID())
	}
	return ids, nil
}

func (g *Graph) cycleError() error {
	if c := g.findCycle(); len(c) > 0 {
		return errors.New(errors.ErrCodeInvariantViolation, "cycle through %s", g.nodes[c[0]])
	}
	return errors.New(errors.ErrCodeInvariantViolation, "graph is not orderable")
}

// findCycle returns the members of one strongly connected component with
// more than one node, lowest ID first, or nil when the graph is acyclic.
func (g *Graph) findCycle() []ID {
	for _, scc := range topo.TarjanSCC(g.directed(false)) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]ID, len(scc))
		for i, n := range scc {
			ids[i] = ID(n.ID())
		}
		slices.Sort(ids)
		return ids
	}
	return nil
}

// Ancestors returns every node from which one of starts is reachable,
// ordered by ID. The walk does not enter nodes for which stop returns
// true, so they and everything only reachable through them are left out.
// The start nodes themselves are never included; unknown starts are
// ignored.
func (g *Graph) Ancestors(starts []ID, stop func(*Node) bool) []ID {
	return g.reach(starts, stop, true)
}

// Descendants is the forward counterpart of [Graph.Ancestors].
func (g *Graph) Descendants(starts []ID, stop func(*Node) bool) []ID {
	return g.reach(starts, stop, false)
}

func (g *Graph) reach(starts []ID, stop func(*Node) bool, reverse bool) []ID {
	dg := g.directed(reverse)
	found := make(map[ID]bool)
	bf := traverse.BreadthFirst{
		Traverse: func(e gograph.Edge) bool {
			return stop == nil || !stop(g.nodes[ID(e.To().ID())])
		},
		Visit: func(n gograph.Node) {
			found[ID(n.ID())] = true
		},
	}
	for _, s := range starts {
		if g.Has(s) {
			bf.Walk(dg, simple.Node(s), nil)
		}
	}
	for _, s := range starts {
		delete(found, s)
	}
	out := make([]ID, 0, len(found))
	for id := range found {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}
