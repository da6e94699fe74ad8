package pattern

import (
	"cmp"
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/graph"
)

// Match binds every node name of a pattern to a graph node ID.
type Match struct {
	pattern string
	ids     map[string]graph.ID
}

// Pattern returns the name of the pattern that produced m.
func (m Match) Pattern() string { return m.pattern }

// ID returns the node bound to name, or 0 when name is not part of the
// pattern.
func (m Match) ID(name string) graph.ID { return m.ids[name] }

// IDs returns the bound node IDs in ascending order.
func (m Match) IDs() []graph.ID {
	ids := slices.Collect(maps.Values(m.ids))
	slices.Sort(ids)
	return ids
}

// Node resolves the node bound to name in g. It fails with INVALID_REWIRE
// when the node has been removed since the match was found.
func (m Match) Node(g *graph.Graph, name string) (*graph.Node, error) {
	id, ok := m.ids[name]
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "match %s has no node %q", m.pattern, name)
	}
	n, ok := g.Node(id)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidRewire, "match %s: node %q (%d) no longer exists", m.pattern, name, id)
	}
	return n, nil
}

func (m Match) String() string {
	names := slices.Sorted(maps.Keys(m.ids))
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s=%d", n, m.ids[n])
	}
	return m.pattern + "{" + strings.Join(parts, " ") + "}"
}

// All returns a lazy sequence of every match of p in g. The sequence
// reads the graph as it goes; callers that mutate g while ranging over it
// should collect first with [Pattern.Find].
func (p *Pattern) All(g *graph.Graph) iter.Seq[Match] {
	return func(yield func(Match) bool) {
		m := newMatcher(p, g, yield)
		if m == nil {
			return
		}
		m.extend(0)
	}
}

// Find returns every match of p in g, in enumeration order.
func (p *Pattern) Find(g *graph.Graph) []Match {
	return slices.Collect(p.All(g))
}

// Valid re-checks m against the current state of g. It returns nil when
// every bound node still exists and satisfies its predicate and every
// pattern edge is still present, and INVALID_REWIRE otherwise.
func (p *Pattern) Valid(g *graph.Graph, m Match) error {
	if m.pattern != p.name || len(m.ids) != len(p.nodes) {
		return errors.New(errors.ErrCodeInvalidInput, "match %s does not belong to pattern %s", m, p.name)
	}
	for i := range p.nodes {
		spec := &p.nodes[i]
		n, err := m.Node(g, spec.name)
		if err != nil {
			return err
		}
		if !spec.accepts(n) {
			return errors.New(errors.ErrCodeInvalidRewire, "match %s: node %s no longer satisfies %q", p.name, n, spec.name)
		}
	}
	for _, e := range p.edges {
		from, to := m.ids[p.nodes[e.from].name], m.ids[p.nodes[e.to].name]
		if !hasEdge(g, from, to, e) {
			return errors.New(errors.ErrCodeInvalidRewire, "match %s: edge %s->%s no longer exists",
				p.name, p.nodes[e.from].name, p.nodes[e.to].name)
		}
	}
	return nil
}

func hasEdge(g *graph.Graph, from, to graph.ID, spec edgeSpec) bool {
	for _, ge := range outLinks(g, from) {
		if ge.To == to && spec.accepts(ge) {
			return true
		}
	}
	return false
}

// outLinks returns the edges leaving id. For an op in a data-form graph it
// adds one op-to-op link per consumer of each output data node, so pattern
// edges between ops match in either form.
func outLinks(g *graph.Graph, id graph.ID) []graph.Edge {
	edges := g.OutEdges(id)
	if n, ok := g.Node(id); !ok || g.Form() != graph.FormData || !n.IsOp() {
		return edges
	}
	for _, e := range edges {
		for _, c := range g.OutEdges(e.To) {
			edges = append(edges, graph.Edge{From: id, Out: e.Out, To: c.To, In: c.In})
		}
	}
	return edges
}

// inLinks is the incoming counterpart of outLinks.
func inLinks(g *graph.Graph, id graph.ID) []graph.Edge {
	edges := g.InEdges(id)
	if n, ok := g.Node(id); !ok || g.Form() != graph.FormData || !n.IsOp() {
		return edges
	}
	for _, e := range edges {
		for _, p := range g.InEdges(e.From) {
			edges = append(edges, graph.Edge{From: p.From, Out: p.Out, To: id, In: e.In})
		}
	}
	return edges
}

type matcher struct {
	p     *Pattern
	g     *graph.Graph
	order []int
	pool  [][]graph.ID // accepted graph nodes per pattern node
	bound []graph.ID
	used  map[graph.ID]bool
	yield func(Match) bool
}

func newMatcher(p *Pattern, g *graph.Graph, yield func(Match) bool) *matcher {
	m := &matcher{
		p:     p,
		g:     g,
		pool:  make([][]graph.ID, len(p.nodes)),
		bound: make([]graph.ID, len(p.nodes)),
		used:  make(map[graph.ID]bool),
		yield: yield,
	}
	nodes := g.Nodes()
	for i := range p.nodes {
		for _, n := range nodes {
			if p.nodes[i].accepts(n) {
				m.pool[i] = append(m.pool[i], n.ID)
			}
		}
		if len(m.pool[i]) == 0 {
			return nil
		}
	}
	m.plan()
	return m
}

// plan fixes the binding order: the most selective node first, then
// always a node adjacent to the bound set when one exists.
func (m *matcher) plan() {
	better := func(a, b int) int {
		if c := cmp.Compare(len(m.pool[a]), len(m.pool[b])); c != 0 {
			return c
		}
		if c := cmp.Compare(m.p.nodes[b].weight(), m.p.nodes[a].weight()); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	}
	placed := make([]bool, len(m.p.nodes))
	for len(m.order) < len(m.p.nodes) {
		next, adjacent := -1, false
		for i := range m.p.nodes {
			if placed[i] {
				continue
			}
			adj := m.touchesPlaced(i, placed)
			switch {
			case next < 0, adj && !adjacent, adj == adjacent && better(i, next) < 0:
				next, adjacent = i, adj
			}
		}
		placed[next] = true
		m.order = append(m.order, next)
	}
}

func (m *matcher) touchesPlaced(i int, placed []bool) bool {
	for _, e := range m.p.edges {
		if (e.from == i && placed[e.to]) || (e.to == i && placed[e.from]) {
			return true
		}
	}
	return false
}

func (m *matcher) extend(k int) bool {
	if k == len(m.order) {
		return m.yield(m.match())
	}
	i := m.order[k]
	for _, id := range m.candidates(i) {
		if !m.consistent(i, id) {
			continue
		}
		m.bound[i] = id
		m.used[id] = true
		ok := m.extend(k + 1)
		m.bound[i] = 0
		delete(m.used, id)
		if !ok {
			return false
		}
	}
	return true
}

// candidates narrows the pool of pattern node i through the first
// pattern edge linking it to an already bound node.
func (m *matcher) candidates(i int) []graph.ID {
	for _, e := range m.p.edges {
		switch {
		case e.to == i && m.bound[e.from] != 0:
			var ids []graph.ID
			for _, ge := range outLinks(m.g, m.bound[e.from]) {
				if e.accepts(ge) && !slices.Contains(ids, ge.To) {
					ids = append(ids, ge.To)
				}
			}
			return ids
		case e.from == i && m.bound[e.to] != 0:
			var ids []graph.ID
			for _, ge := range inLinks(m.g, m.bound[e.to]) {
				if e.accepts(ge) && !slices.Contains(ids, ge.From) {
					ids = append(ids, ge.From)
				}
			}
			return ids
		}
	}
	return m.pool[i]
}

func (m *matcher) consistent(i int, id graph.ID) bool {
	if m.used[id] {
		return false
	}
	n, ok := m.g.Node(id)
	if !ok || !m.p.nodes[i].accepts(n) {
		return false
	}
	for _, e := range m.p.edges {
		switch {
		case e.from == i && m.bound[e.to] != 0:
			if !hasEdge(m.g, id, m.bound[e.to], e) {
				return false
			}
		case e.to == i && m.bound[e.from] != 0:
			if !hasEdge(m.g, m.bound[e.from], id, e) {
				return false
			}
		}
	}
	return true
}

func (m *matcher) match() Match {
	ids := make(map[string]graph.ID, len(m.bound))
	for i, id := range m.bound {
		ids[m.p.nodes[i].name] = id
	}
	return Match{pattern: m.p.name, ids: ids}
}
