package graph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/sadolini/openvino/pkg/errors"
)

// ID identifies a node within one graph. IDs start at 1 and are never
// reused, so zero is never a valid node.
type ID int64

// Kind distinguishes computation vertices from value vertices.
type Kind int

const (
	// KindOp is a computation tagged with an operator type.
	KindOp Kind = iota
	// KindData is a value produced by at most one op.
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindOp:
		return "op"
	case KindData:
		return "data"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Form tells whether ops connect directly or through data nodes.
type Form int

const (
	// FormOps graphs connect op output ports straight to op input ports.
	FormOps Form = iota
	// FormData graphs place a data node between every producer and its
	// consumers.
	FormData
)

func (f Form) String() string {
	switch f {
	case FormOps:
		return "ops"
	case FormData:
		return "data"
	}
	return fmt.Sprintf("form(%d)", int(f))
}

// ParseForm converts the textual form used by the importers.
func ParseForm(s string) (Form, error) {
	switch s {
	case "ops", "":
		return FormOps, nil
	case "data":
		return FormData, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown graph form %q", s)
}

// Metadata stores arbitrary key-value pairs attached to edges or the graph.
type Metadata map[string]any

// Node is a graph vertex. Op nodes carry Op and Attrs; data nodes usually
// carry only a name and, once inferred, a "shape" attribute.
//
// The ID is assigned by [Graph.AddNode]; any value set by the caller is
// ignored.
type Node struct {
	ID    ID
	Kind  Kind
	Name  string
	Op    string
	Attrs Attrs
}

// IsOp reports whether the node is an op tagged with any of the given
// operator types. With no types it only checks the kind.
func (n *Node) IsOp(types ...string) bool {
	if n.Kind != KindOp {
		return false
	}
	return len(types) == 0 || slices.Contains(types, n.Op)
}

func (n *Node) String() string {
	if n.Kind == KindData {
		return fmt.Sprintf("%s#%d", n.Name, n.ID)
	}
	return fmt.Sprintf("%s(%s)#%d", n.Name, n.Op, n.ID)
}

// Edge connects output port Out of From to input port In of To. Edges
// ending at a data node use In 0; edges leaving a data node use Out 0.
type Edge struct {
	From ID
	To   ID
	Out  int
	In   int
	Meta Metadata
}

func (e Edge) String() string {
	return fmt.Sprintf("%d:%d->%d:%d", e.From, e.Out, e.To, e.In)
}

// Graph is an IR graph of op and data nodes joined through indexed ports.
//
// The zero value is not usable; create graphs with [New]. Graph is not safe
// for concurrent use.
type Graph struct {
	form     Form
	nodes    map[ID]*Node
	incoming map[ID][]Edge // sorted by In
	outgoing map[ID][]Edge // sorted by Out, then To, then In
	nextID   ID
	names    map[string]struct{}
	meta     Metadata
}

// New creates an empty graph in the given form.
func New(form Form) *Graph {
	return &Graph{
		form:     form,
		nodes:    make(map[ID]*Node),
		incoming: make(map[ID][]Edge),
		outgoing: make(map[ID][]Edge),
		nextID:   1,
		names:    make(map[string]struct{}),
		meta:     Metadata{},
	}
}

// Form returns the graph's form.
func (g *Graph) Form() Form { return g.form }

// Meta returns the graph-level metadata map. It is never nil.
func (g *Graph) Meta() Metadata { return g.meta }

// AddNode inserts n and returns the stored node with its assigned ID.
// Data nodes are rejected in [FormOps] graphs. A nil Attrs is replaced by
// an empty map; the caller's map is otherwise kept as is.
func (g *Graph) AddNode(n Node) (*Node, error) {
	if n.Kind == KindData && g.form == FormOps {
		return nil, errors.New(errors.ErrCodeInvariantViolation, "data node %q in an ops-form graph", n.Name)
	}
	if n.Kind == KindOp && n.Op == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "op node %q has no operator type", n.Name)
	}
	if n.Attrs == nil {
		n.Attrs = Attrs{}
	}
	n.ID = g.nextID
	g.nextID++
	node := &n
	g.nodes[node.ID] = node
	if node.Name != "" {
		g.names[node.Name] = struct{}{}
	}
	return node, nil
}

// AddOp is shorthand for adding an op node.
func (g *Graph) AddOp(name, op string, attrs Attrs) (*Node, error) {
	return g.AddNode(Node{Kind: KindOp, Name: name, Op: op, Attrs: attrs})
}

// AddData is shorthand for adding a data node.
func (g *Graph) AddData(name string, attrs Attrs) (*Node, error) {
	return g.AddNode(Node{Kind: KindData, Name: name, Attrs: attrs})
}

// AddEdge connects two existing nodes. It fails with INVALID_REWIRE when an
// endpoint does not exist, and with INVARIANT_VIOLATION when the edge would
// give an input port or a data node a second source, join two data nodes,
// or otherwise break the graph's form.
func (g *Graph) AddEdge(e Edge) error {
	from, ok := g.nodes[e.From]
	if !ok {
		return errors.New(errors.ErrCodeInvalidRewire, "edge %s: source node %d does not exist", e, e.From)
	}
	to, ok := g.nodes[e.To]
	if !ok {
		return errors.New(errors.ErrCodeInvalidRewire, "edge %s: target node %d does not exist", e, e.To)
	}
	if err := g.checkEdge(from, to, e); err != nil {
		return err
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	g.insertEdge(e)
	return nil
}

func (g *Graph) checkEdge(from, to *Node, e Edge) error {
	violation := func(format string, args ...any) error {
		return errors.New(errors.ErrCodeInvariantViolation, "edge %s: "+format, append([]any{e}, args...)...)
	}
	switch {
	case e.From == e.To:
		return violation("self loop on %s", from)
	case e.Out < 0 || e.In < 0:
		return violation("negative port index")
	case from.Kind == KindData && to.Kind == KindData:
		return violation("data node %s feeds data node %s", from, to)
	case g.form == FormData && from.Kind == KindOp && to.Kind == KindOp:
		return violation("op %s feeds op %s directly in a data-form graph", from, to)
	case to.Kind == KindData && e.In != 0:
		return violation("data node %s has a single input port", to)
	case from.Kind == KindData && e.Out != 0:
		return violation("data node %s has a single output port", from)
	}
	if prev, ok := g.edgeInto(e.To, e.In); ok {
		if to.Kind == KindData {
			return violation("data node %s already produced by %d", to, prev.From)
		}
		return violation("input port %d of %s already fed by %d", e.In, to, prev.From)
	}
	if to.Kind == KindData {
		for _, o := range g.outgoing[e.From] {
			if o.Out == e.Out && g.nodes[o.To].Kind == KindData {
				return violation("output port %d of %s already has data node %d", e.Out, from, o.To)
			}
		}
	}
	return nil
}

func (g *Graph) insertEdge(e Edge) {
	in := append(g.incoming[e.To], e)
	slices.SortFunc(in, func(a, b Edge) int { return a.In - b.In })
	g.incoming[e.To] = in

	out := append(g.outgoing[e.From], e)
	slices.SortFunc(out, compareOut)
	g.outgoing[e.From] = out
}

func compareOut(a, b Edge) int {
	if a.Out != b.Out {
		return a.Out - b.Out
	}
	if a.To != b.To {
		return int(a.To - b.To)
	}
	return a.In - b.In
}

func (g *Graph) edgeInto(to ID, in int) (Edge, bool) {
	for _, e := range g.incoming[to] {
		if e.In == in {
			return e, true
		}
	}
	return Edge{}, false
}

// RemoveEdge removes the edge feeding input port in of node to. It
// reports whether such an edge existed.
func (g *Graph) RemoveEdge(to ID, in int) bool {
	e, ok := g.edgeInto(to, in)
	if !ok {
		return false
	}
	g.deleteEdge(e)
	return true
}

func (g *Graph) deleteEdge(e Edge) {
	same := func(o Edge) bool {
		return o.From == e.From && o.To == e.To && o.Out == e.Out && o.In == e.In
	}
	g.incoming[e.To] = slices.DeleteFunc(g.incoming[e.To], same)
	g.outgoing[e.From] = slices.DeleteFunc(g.outgoing[e.From], same)
}

// RemoveNodes deletes the given nodes together with every edge touching
// them. It refuses with INVARIANT_VIOLATION when a node outside the set
// still consumes a value produced inside it, since that consumer would be
// left with a dangling input. Unknown IDs fail with INVALID_REWIRE and
// nothing is removed.
func (g *Graph) RemoveNodes(ids ...ID) error {
	set := make(map[ID]bool, len(ids))
	for _, id := range ids {
		if _, ok := g.nodes[id]; !ok {
			return errors.New(errors.ErrCodeInvalidRewire, "remove: node %d does not exist", id)
		}
		set[id] = true
	}
	for _, id := range ids {
		for _, e := range g.outgoing[id] {
			if !set[e.To] {
				return errors.New(errors.ErrCodeInvariantViolation,
					"remove %s: still consumed by %s at port %d", g.nodes[id], g.nodes[e.To], e.In)
			}
		}
	}
	for _, id := range ids {
		for _, e := range slices.Clone(g.incoming[id]) {
			g.deleteEdge(e)
		}
		for _, e := range slices.Clone(g.outgoing[id]) {
			g.deleteEdge(e)
		}
		delete(g.incoming, id)
		delete(g.outgoing, id)
		delete(g.nodes, id)
	}
	return nil
}

// RemoveNode deletes a single node; see [Graph.RemoveNodes].
func (g *Graph) RemoveNode(id ID) error { return g.RemoveNodes(id) }

// SetAttr sets one attribute on an existing node.
func (g *Graph) SetAttr(id ID, key string, value any) error {
	n, ok := g.nodes[id]
	if !ok {
		return errors.New(errors.ErrCodeInvalidRewire, "set attribute %q: node %d does not exist", key, id)
	}
	n.Attrs[key] = value
	return nil
}

// Node returns the node with the given ID.
func (g *Graph) Node(id ID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Has reports whether id refers to a live node.
func (g *Graph) Has(id ID) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns all nodes ordered by ID. The pointers refer to the stored
// nodes; change names through [Graph.RenameNodes].
func (g *Graph) Nodes() []*Node {
	ids := slices.Sorted(maps.Keys(g.nodes))
	out := make([]*Node, len(ids))
	for i, id := range ids {
		out[i] = g.nodes[id]
	}
	return out
}

// NodesByOp returns the op nodes of the given type ordered by ID.
func (g *Graph) NodesByOp(op string) []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.IsOp(op) {
			out = append(out, n)
		}
	}
	return out
}

// NodeByName returns the lowest-ID node carrying name.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	for _, n := range g.Nodes() {
		if n.Name == name {
			return n, true
		}
	}
	return nil, false
}

// InEdges returns the edges ending at id, ordered by input port. The
// returned slice is a copy.
func (g *Graph) InEdges(id ID) []Edge { return slices.Clone(g.incoming[id]) }

// OutEdges returns the edges leaving id, ordered by output port. The
// returned slice is a copy.
func (g *Graph) OutEdges(id ID) []Edge { return slices.Clone(g.outgoing[id]) }

// Edges returns every edge ordered by source, then output port.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, n := range g.Nodes() {
		out = append(out, g.outgoing[n.ID]...)
	}
	return out
}

// NodeCount returns the number of live nodes.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, es := range g.outgoing {
		n += len(es)
	}
	return n
}

// UniqueName returns base if no node of this graph has ever carried it,
// otherwise the first free "base__N". The name is reserved immediately so
// two calls never return the same value.
func (g *Graph) UniqueName(base string) string {
	name := base
	for i := 1; ; i++ {
		if _, used := g.names[name]; !used {
			break
		}
		name = fmt.Sprintf("%s__%d", base, i)
	}
	g.names[name] = struct{}{}
	return name
}

// Copy returns a structurally independent deep copy. Node IDs, the ID
// counter and the set of used names are preserved.
func (g *Graph) Copy() *Graph {
	c := New(g.form)
	c.nextID = g.nextID
	maps.Copy(c.names, g.names)
	for k, v := range g.meta {
		c.meta[k] = cloneValue(v)
	}
	for id, n := range g.nodes {
		cp := *n
		cp.Attrs = n.Attrs.Clone()
		c.nodes[id] = &cp
	}
	for id, es := range g.incoming {
		c.incoming[id] = cloneEdges(es)
	}
	for id, es := range g.outgoing {
		c.outgoing[id] = cloneEdges(es)
	}
	return c
}

func cloneEdges(es []Edge) []Edge {
	out := make([]Edge, len(es))
	for i, e := range es {
		e.Meta = maps.Clone(e.Meta)
		out[i] = e
	}
	return out
}
