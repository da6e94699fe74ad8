package pattern

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/graph"
)

// Any leaves a port index unconstrained.
const Any = -1

// Pattern is an immutable partial subgraph specification.
type Pattern struct {
	name  string
	nodes []nodeSpec
	edges []edgeSpec
	index map[string]int
}

type nodeSpec struct {
	name  string
	kind  *graph.Kind
	ops   []string
	attrs []attrSpec
	where []func(*graph.Node) bool
}

type attrSpec struct {
	key   string
	value any
}

type edgeSpec struct {
	from, to int
	out, in  int
}

// NodeOption constrains a pattern node.
type NodeOption func(*nodeSpec)

// EdgeOption constrains a pattern edge.
type EdgeOption func(*edgeSpec)

// Op requires an op node whose operator type is one of types.
func Op(types ...string) NodeOption {
	return func(s *nodeSpec) {
		k := graph.KindOp
		s.kind = &k
		s.ops = append(s.ops, types...)
	}
}

// Kind requires a node of kind k.
func Kind(k graph.Kind) NodeOption {
	return func(s *nodeSpec) { s.kind = &k }
}

// Attr requires attribute key to equal value. Numbers compare by value
// regardless of their Go type.
func Attr(key string, value any) NodeOption {
	return func(s *nodeSpec) { s.attrs = append(s.attrs, attrSpec{key, value}) }
}

// Where adds an arbitrary predicate.
func Where(fn func(*graph.Node) bool) NodeOption {
	return func(s *nodeSpec) { s.where = append(s.where, fn) }
}

// Out pins the edge to output port i of its source.
func Out(i int) EdgeOption { return func(e *edgeSpec) { e.out = i } }

// In pins the edge to input port i of its target.
func In(i int) EdgeOption { return func(e *edgeSpec) { e.in = i } }

// Builder assembles a [Pattern]. Errors are collected and reported by
// [Builder.Build].
type Builder struct {
	p    *Pattern
	errs []error
}

// New starts a pattern with the given name.
func New(name string) *Builder {
	return &Builder{p: &Pattern{name: name, index: make(map[string]int)}}
}

// Node declares a pattern node.
func (b *Builder) Node(name string, opts ...NodeOption) *Builder {
	if name == "" {
		b.errs = append(b.errs, fmt.Errorf("node name must not be empty"))
		return b
	}
	if _, dup := b.p.index[name]; dup {
		b.errs = append(b.errs, fmt.Errorf("duplicate node %q", name))
		return b
	}
	spec := nodeSpec{name: name}
	for _, o := range opts {
		o(&spec)
	}
	b.p.index[name] = len(b.p.nodes)
	b.p.nodes = append(b.p.nodes, spec)
	return b
}

// Edge declares a pattern edge from one declared node to another.
func (b *Builder) Edge(from, to string, opts ...EdgeOption) *Builder {
	f, okF := b.p.index[from]
	t, okT := b.p.index[to]
	switch {
	case !okF:
		b.errs = append(b.errs, fmt.Errorf("edge %s->%s: unknown node %q", from, to, from))
		return b
	case !okT:
		b.errs = append(b.errs, fmt.Errorf("edge %s->%s: unknown node %q", from, to, to))
		return b
	case f == t:
		b.errs = append(b.errs, fmt.Errorf("edge %s->%s: self loop", from, to))
		return b
	}
	e := edgeSpec{from: f, to: t, out: Any, in: Any}
	for _, o := range opts {
		o(&e)
	}
	b.p.edges = append(b.p.edges, e)
	return b
}

// Build returns the finished pattern, or an INVALID_PATTERN error listing
// the first problem found.
func (b *Builder) Build() (*Pattern, error) {
	if len(b.errs) > 0 {
		return nil, errors.Wrap(errors.ErrCodeInvalidPattern, b.errs[0], "pattern %q", b.p.name)
	}
	if len(b.p.nodes) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidPattern, "pattern %q has no nodes", b.p.name)
	}
	p := b.p
	b.p = &Pattern{name: p.name, index: make(map[string]int)}
	return p, nil
}

// MustBuild is like Build but panics on error. It is meant for patterns
// declared at package level.
func (b *Builder) MustBuild() *Pattern {
	p, err := b.Build()
	if err != nil {
		panic(err)
	}
	return p
}

// Name returns the pattern name.
func (p *Pattern) Name() string { return p.name }

// Nodes returns the pattern node names in declaration order.
func (p *Pattern) Nodes() []string {
	names := make([]string, len(p.nodes))
	for i, n := range p.nodes {
		names[i] = n.name
	}
	return names
}

// EdgeCount returns the number of pattern edges.
func (p *Pattern) EdgeCount() int { return len(p.edges) }

func (s *nodeSpec) accepts(n *graph.Node) bool {
	if s.kind != nil && n.Kind != *s.kind {
		return false
	}
	if len(s.ops) > 0 && !slices.Contains(s.ops, n.Op) {
		return false
	}
	for _, a := range s.attrs {
		v, ok := n.Attrs[a.key]
		if !ok || !sameValue(v, a.value) {
			return false
		}
	}
	for _, fn := range s.where {
		if !fn(n) {
			return false
		}
	}
	return true
}

// weight ranks how selective a spec is when candidate counts tie.
func (s *nodeSpec) weight() int {
	w := len(s.attrs)*2 + len(s.where)
	if len(s.ops) > 0 {
		w += 4
	}
	if s.kind != nil {
		w++
	}
	return w
}

func (e edgeSpec) accepts(ge graph.Edge) bool {
	return (e.out == Any || e.out == ge.Out) && (e.in == Any || e.in == ge.In)
}

func sameValue(got, want any) bool {
	gs, gerr := graph.Attrs{"v": got}.Values("v")
	ws, werr := graph.Attrs{"v": want}.Values("v")
	if gerr == nil && werr == nil {
		return slices.Equal(gs, ws)
	}
	return reflect.DeepEqual(got, want)
}
