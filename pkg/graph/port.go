package graph

import (
	"fmt"
	"slices"

	"github.com/sadolini/openvino/pkg/errors"
)

// InPort is an input slot of an op node.
type InPort struct {
	Node  ID
	Index int
}

// OutPort is an output slot of a node. Data nodes expose a single output
// port 0.
type OutPort struct {
	Node  ID
	Index int
}

func (p InPort) String() string  { return fmt.Sprintf("%d.in%d", p.Node, p.Index) }
func (p OutPort) String() string { return fmt.Sprintf("%d.out%d", p.Node, p.Index) }

// In returns input port i of n.
func (n *Node) In(i int) InPort { return InPort{Node: n.ID, Index: i} }

// Out returns output port i of n.
func (n *Node) Out(i int) OutPort { return OutPort{Node: n.ID, Index: i} }

// Rename assigns Name to node ID.
type Rename struct {
	ID   ID
	Name string
}

func (g *Graph) stale(op string, id ID) error {
	return errors.New(errors.ErrCodeInvalidRewire, "%s: node %d does not exist", op, id)
}

func (g *Graph) liveOp(op string, id ID) (*Node, error) {
	n, ok := g.nodes[id]
	if !ok {
		return nil, g.stale(op, id)
	}
	if n.Kind != KindOp {
		return nil, errors.New(errors.ErrCodeInvariantViolation, "%s: %s is not an op", op, n)
	}
	return n, nil
}

// Source returns the output port feeding in. In a data-form graph the
// data node in between is skipped and the producing op's port is returned;
// a boundary data node without producer is returned as its own port 0.
// The boolean is false when the port is unconnected.
func (g *Graph) Source(in InPort) (OutPort, bool, error) {
	if _, err := g.liveOp("source", in.Node); err != nil {
		return OutPort{}, false, err
	}
	e, ok := g.edgeInto(in.Node, in.Index)
	if !ok {
		return OutPort{}, false, nil
	}
	if g.nodes[e.From].Kind == KindData {
		if p, ok := g.edgeInto(e.From, 0); ok {
			return OutPort{Node: p.From, Index: p.Out}, true, nil
		}
	}
	return OutPort{Node: e.From, Index: e.Out}, true, nil
}

// InData returns the data node feeding in, for data-form graphs.
func (g *Graph) InData(in InPort) (ID, bool) {
	e, ok := g.edgeInto(in.Node, in.Index)
	if !ok || g.nodes[e.From].Kind != KindData {
		return 0, false
	}
	return e.From, true
}

// OutData returns the data node produced at out, for data-form graphs. A
// data node's own port resolves to itself.
func (g *Graph) OutData(out OutPort) (ID, bool) {
	n, ok := g.nodes[out.Node]
	if !ok {
		return 0, false
	}
	if n.Kind == KindData {
		return n.ID, true
	}
	for _, e := range g.outgoing[out.Node] {
		if e.Out == out.Index && g.nodes[e.To].Kind == KindData {
			return e.To, true
		}
	}
	return 0, false
}

// Destinations returns every op input port consuming the value produced
// at out, ordered by node then port.
func (g *Graph) Destinations(out OutPort) ([]InPort, error) {
	if !g.Has(out.Node) {
		return nil, g.stale("destinations", out.Node)
	}
	var ports []InPort
	if d, ok := g.OutData(out); ok && g.form == FormData {
		for _, e := range g.outgoing[d] {
			ports = append(ports, InPort{Node: e.To, Index: e.In})
		}
	} else {
		for _, e := range g.outgoing[out.Node] {
			if e.Out == out.Index {
				ports = append(ports, InPort{Node: e.To, Index: e.In})
			}
		}
	}
	slices.SortFunc(ports, func(a, b InPort) int {
		if a.Node != b.Node {
			return int(a.Node - b.Node)
		}
		return a.Index - b.Index
	})
	return ports, nil
}

// Connect feeds in from src. The input port must be free. In a data-form
// graph the value travels through src's data node, which is created when
// src has none yet.
func (g *Graph) Connect(src OutPort, in InPort) error {
	if _, err := g.liveOp("connect", in.Node); err != nil {
		return err
	}
	if !g.Has(src.Node) {
		return g.stale("connect", src.Node)
	}
	if _, busy := g.edgeInto(in.Node, in.Index); busy {
		return errors.New(errors.ErrCodeInvariantViolation, "connect: %s already has a source", in)
	}
	from := src
	if g.form == FormData {
		d, err := g.ensureData(src)
		if err != nil {
			return err
		}
		from = OutPort{Node: d}
	}
	return g.AddEdge(Edge{From: from.Node, Out: from.Index, To: in.Node, In: in.Index})
}

func (g *Graph) ensureData(src OutPort) (ID, error) {
	if d, ok := g.OutData(src); ok {
		return d, nil
	}
	prod := g.nodes[src.Node]
	d, err := g.AddData(g.UniqueName(fmt.Sprintf("%s/out%d", prod.Name, src.Index)), nil)
	if err != nil {
		return 0, err
	}
	if err := g.AddEdge(Edge{From: src.Node, Out: src.Index, To: d.ID}); err != nil {
		delete(g.nodes, d.ID)
		return 0, err
	}
	return d.ID, nil
}

// Disconnect removes whatever feeds in. It leaves the port without a
// source until the caller reconnects it.
func (g *Graph) Disconnect(in InPort) error {
	if _, err := g.liveOp("disconnect", in.Node); err != nil {
		return err
	}
	g.RemoveEdge(in.Node, in.Index)
	return nil
}

// SetSource rebinds in to src, replacing the previous source if any. The
// request is checked before anything changes, so a failure leaves the old
// edge in place.
func (g *Graph) SetSource(in InPort, src OutPort) error {
	if _, err := g.liveOp("set source", in.Node); err != nil {
		return err
	}
	if !g.Has(src.Node) {
		return g.stale("set source", src.Node)
	}
	if src.Node == in.Node {
		return errors.New(errors.ErrCodeInvariantViolation, "set source: %s would feed itself", in)
	}
	old, had := g.edgeInto(in.Node, in.Index)
	if had {
		g.deleteEdge(old)
	}
	if err := g.Connect(src, in); err != nil {
		if had {
			g.insertEdge(old)
		}
		return err
	}
	return nil
}

// RedirectDestinations moves every consumer of from over to to, keeping
// each consumer's input index. In a data-form graph the data node of from
// (with its name and shape) is handed to the new producer when to has
// none; otherwise its consumers join to's existing data node.
func (g *Graph) RedirectDestinations(from, to OutPort) error {
	if !g.Has(from.Node) {
		return g.stale("redirect", from.Node)
	}
	if !g.Has(to.Node) {
		return g.stale("redirect", to.Node)
	}
	if from == to {
		return nil
	}
	if g.form == FormOps {
		return g.redirectOps(from, to)
	}
	return g.redirectData(from, to)
}

func (g *Graph) redirectOps(from, to OutPort) error {
	var moved []Edge
	for _, e := range g.outgoing[from.Node] {
		if e.Out != from.Index {
			continue
		}
		if e.To == to.Node {
			return errors.New(errors.ErrCodeInvariantViolation, "redirect: %s would feed itself", to)
		}
		moved = append(moved, e)
	}
	for _, e := range moved {
		g.deleteEdge(e)
		e.From, e.Out = to.Node, to.Index
		g.insertEdge(e)
	}
	return nil
}

func (g *Graph) redirectData(from, to OutPort) error {
	d, ok := g.OutData(from)
	if !ok {
		return nil
	}
	for _, e := range g.outgoing[d] {
		if e.To == to.Node {
			return errors.New(errors.ErrCodeInvariantViolation, "redirect: %s would feed itself", to)
		}
	}
	if target, ok := g.OutData(to); ok {
		for _, e := range slices.Clone(g.outgoing[d]) {
			g.deleteEdge(e)
			e.From = target
			g.insertEdge(e)
		}
		return nil
	}
	if p, ok := g.edgeInto(d, 0); ok {
		g.deleteEdge(p)
	}
	g.insertEdge(Edge{From: to.Node, Out: to.Index, To: d, Meta: Metadata{}})
	return nil
}

// InsertOnEdge adds n and splices it into the connection feeding
// consumer input e.To/e.In: the old source now feeds input port in of the
// new node, and output port out of the new node feeds the consumer. In a
// data-form graph e may be the data→op edge; the consumer receives a fresh
// data node while the original data node keeps its other consumers.
func (g *Graph) InsertOnEdge(e Edge, n Node, in, out int) (*Node, error) {
	consumer := InPort{Node: e.To, Index: e.In}
	if _, err := g.liveOp("insert", e.To); err != nil {
		return nil, err
	}
	cur, ok := g.edgeInto(e.To, e.In)
	if !ok || cur.From != e.From {
		return nil, errors.New(errors.ErrCodeInvalidRewire, "insert: edge %s does not exist", e)
	}
	src, _, err := g.Source(consumer)
	if err != nil {
		return nil, err
	}
	if n.Kind != KindOp {
		return nil, errors.New(errors.ErrCodeInvalidInput, "insert: %q is not an op", n.Name)
	}
	node, err := g.AddNode(n)
	if err != nil {
		return nil, err
	}
	g.deleteEdge(cur)
	if err := g.Connect(src, node.In(in)); err != nil {
		return nil, g.undoInsert(node, cur, err)
	}
	if err := g.Connect(node.Out(out), consumer); err != nil {
		return nil, g.undoInsert(node, cur, err)
	}
	return node, nil
}

// undoInsert drops a half-wired node from InsertOnEdge, along with any data
// node created for its outputs, and puts the original edge back.
func (g *Graph) undoInsert(node *Node, orig Edge, cause error) error {
	drop := []ID{node.ID}
	for _, e := range g.outgoing[node.ID] {
		if g.nodes[e.To].Kind == KindData {
			drop = append(drop, e.To)
		}
	}
	if err := g.RemoveNodes(drop...); err != nil {
		return errors.Wrap(errors.ErrCodeInvariantViolation, err, "insert: roll back %s", node)
	}
	g.insertEdge(orig)
	return cause
}

// RenameNodes assigns all names at once. Every node must exist; otherwise
// nothing is renamed. Names handed out this way are reserved for
// [Graph.UniqueName] like any other.
func (g *Graph) RenameNodes(renames ...Rename) error {
	for _, r := range renames {
		if !g.Has(r.ID) {
			return g.stale("rename", r.ID)
		}
	}
	for _, r := range renames {
		g.nodes[r.ID].Name = r.Name
		if r.Name != "" {
			g.names[r.Name] = struct{}{}
		}
	}
	return nil
}
