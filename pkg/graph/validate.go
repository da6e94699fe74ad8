package graph

import (
	"github.com/sadolini/openvino/pkg/errors"
)

// Validate checks the structural invariants and returns the first
// violation found, walking nodes in ID order:
//
//  1. Every edge references live nodes.
//  2. Op input ports are contiguous (0..k-1) and each has one source.
//  3. Data nodes have at most one producer and never touch another data
//     node.
//  4. The graph matches its form: no data nodes in [FormOps], no op→op
//     edges in [FormData].
//  5. The graph is acyclic.
//
// All failures carry the INVARIANT_VIOLATION code and name the offending
// node or port.
func (g *Graph) Validate() error {
	for _, n := range g.Nodes() {
		if err := g.validateNode(n); err != nil {
			return err
		}
	}
	for id := range g.incoming {
		if !g.Has(id) && len(g.incoming[id]) > 0 {
			return errors.New(errors.ErrCodeInvariantViolation, "edges end at removed node %d", id)
		}
	}
	for id := range g.outgoing {
		if !g.Has(id) && len(g.outgoing[id]) > 0 {
			return errors.New(errors.ErrCodeInvariantViolation, "edges start at removed node %d", id)
		}
	}
	if cycle := g.findCycle(); len(cycle) > 0 {
		return errors.New(errors.ErrCodeInvariantViolation, "cycle through %s", g.nodes[cycle[0]])
	}
	return nil
}

func (g *Graph) validateNode(n *Node) error {
	violation := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeInvariantViolation, "%s: "+format, append([]any{n}, args...)...)
	}
	if n.Kind == KindData && g.form == FormOps {
		return violation("data node in an ops-form graph")
	}
	for i, e := range g.incoming[n.ID] {
		src, ok := g.nodes[e.From]
		if !ok {
			return violation("input port %d fed by removed node %d", e.In, e.From)
		}
		if e.In != i {
			if e.In < i {
				return violation("input port %d has more than one source", e.In)
			}
			return violation("input port %d has no source", i)
		}
		if src.Kind == KindData && n.Kind == KindData {
			return violation("fed by data node %s", src)
		}
		if g.form == FormData && src.Kind == KindOp && n.Kind == KindOp {
			return violation("fed directly by op %s in a data-form graph", src)
		}
	}
	if n.Kind == KindData && len(g.incoming[n.ID]) > 1 {
		return violation("%d producers", len(g.incoming[n.ID]))
	}
	for _, e := range g.outgoing[n.ID] {
		if !g.Has(e.To) {
			return violation("output port %d feeds removed node %d", e.Out, e.To)
		}
	}
	return nil
}
