package transform

import (
	"context"

	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/graph"
	"github.com/sadolini/openvino/pkg/pass"
	"github.com/sadolini/openvino/pkg/pattern"
)

// InsertSelectName is the configuration name of [InsertSelect].
const InsertSelectName = "insert_select"

// Attribute markers left on nodes created by InsertSelect.
const (
	AttrCounter     = "counter"
	AttrCounterSize = "counter_size"
	AttrContextGate = "context_gate"
)

// InsertSelect gates state writes fed by Splice context windows. It needs
// value shapes and therefore targets data-form graphs; in an ops-form graph
// every write is rejected for lack of a shape. The zero value is enabled
// and shares counters between writes of equal counter length.
type InsertSelect struct {
	Disabled       bool
	NoCounterReuse bool
}

// Name implements pass.Pass.
func (p *InsertSelect) Name() string { return InsertSelectName }

// Enabled implements pass.Pass.
func (p *InsertSelect) Enabled() bool { return !p.Disabled }

var memoryWrite = pattern.New("memory_write").
	Node("write", pattern.Op("Assign"), pattern.Where(func(n *graph.Node) bool {
		return !n.Attrs.Flag(AttrCounter)
	})).
	MustBuild()

// Patterns implements pass.Pass.
func (p *InsertSelect) Patterns() []*pattern.Pattern { return []*pattern.Pattern{memoryWrite} }

// Replace implements pass.Pass.
func (p *InsertSelect) Replace(ctx context.Context, g *graph.Graph, m pattern.Match) error {
	logger := pass.Logger(ctx)
	write, err := m.Node(g, "write")
	if err != nil {
		return err
	}
	edge, ok := inputEdge(g, write.ID, 0)
	if !ok {
		return pass.Validation("%s writes nothing", write)
	}
	value, _, err := g.Source(write.In(0))
	if err != nil {
		return err
	}
	if src, _ := g.Node(value.Node); src.IsOp("Select") && src.Attrs.Flag(AttrContextGate) {
		return pass.Validation("%s is already gated", write)
	}

	size, err := ContextLength(g, write.ID)
	if err != nil {
		return err
	}
	if size == 1 {
		return pass.Validation("no context expansion upstream of %s", write)
	}
	shape, err := valueShape(g, write)
	if err != nil {
		return err
	}
	logger.Debug("gating state write", "write", write.Name, "counter", size)

	b := &builder{g: g}
	cond, reused := p.findCounter(g, size)
	if !reused {
		cond = b.counter(write.Name+"/iteration_number", value, size)
	}
	zeros := b.zeros(write.Name+"/select", value, shape[1])
	if b.err != nil {
		return b.err
	}

	sel, err := g.InsertOnEdge(edge, graph.Node{
		Kind:  graph.KindOp,
		Name:  g.UniqueName(write.Name + "/select"),
		Op:    "Select",
		Attrs: graph.Attrs{AttrContextGate: true},
	}, 1, 0)
	if err != nil {
		return err
	}
	if err := g.Connect(cond, sel.In(0)); err != nil {
		return err
	}
	if err := g.Connect(zeros, sel.In(2)); err != nil {
		return err
	}
	if d, ok := g.OutData(sel.Out(0)); ok {
		if err := g.SetAttr(d, "shape", shape); err != nil {
			return err
		}
	}
	logger.Debug("inserted select", "select", sel.Name, "counter_reused", reused)
	return nil
}

// ContextLength returns 1 plus the extra frames introduced by every Splice
// upstream of write, not looking past ReadValue or Assign ops. Each Splice
// counts once, however many paths lead from it to the write.
func ContextLength(g *graph.Graph, write graph.ID) (int64, error) {
	memory := func(n *graph.Node) bool { return n.IsOp("ReadValue", "Assign") }
	size := int64(1)
	for _, id := range g.Ancestors([]graph.ID{write}, memory) {
		n, _ := g.Node(id)
		if !n.IsOp("Splice") {
			continue
		}
		offsets, err := n.Attrs.Ints("context")
		if err != nil {
			return 0, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInvalidInput), err, "splice %s", n)
		}
		if len(offsets) == 0 {
			return 0, errors.New(errors.ErrCodeInvalidInput, "splice %s has an empty context", n)
		}
		size += int64(len(offsets) - 1)
	}
	return size, nil
}

func (p *InsertSelect) findCounter(g *graph.Graph, size int64) (graph.OutPort, bool) {
	if p.NoCounterReuse {
		return graph.OutPort{}, false
	}
	for _, n := range g.NodesByOp("Equal") {
		if !n.Attrs.Flag(AttrCounter) {
			continue
		}
		if got, err := n.Attrs.Int(AttrCounterSize); err == nil && got == size {
			return n.Out(0), true
		}
	}
	return graph.OutPort{}, false
}

func inputEdge(g *graph.Graph, id graph.ID, port int) (graph.Edge, bool) {
	for _, e := range g.InEdges(id) {
		if e.In == port {
			return e, true
		}
	}
	return graph.Edge{}, false
}

// valueShape returns the declared shape of the value written by write.
func valueShape(g *graph.Graph, write *graph.Node) ([]int64, error) {
	d, ok := g.InData(write.In(0))
	if !ok {
		return nil, pass.Validation("%s: value has no data node to carry a shape", write)
	}
	n, _ := g.Node(d)
	shape, err := n.Attrs.Ints("shape")
	if err != nil {
		return nil, pass.Validation("%s: %v", write, err)
	}
	if len(shape) < 2 {
		return nil, pass.Validation("%s: value shape %v has no feature dimension", write, shape)
	}
	return shape, nil
}

// builder adds op nodes and wires their inputs in order. The first failure
// sticks; later calls do nothing and return a zero port.
type builder struct {
	g   *graph.Graph
	err error
}

func (b *builder) op(name, op string, attrs graph.Attrs, inputs ...graph.OutPort) graph.OutPort {
	if b.err != nil {
		return graph.OutPort{}
	}
	n, err := b.g.AddOp(b.g.UniqueName(name), op, attrs)
	if err != nil {
		b.err = err
		return graph.OutPort{}
	}
	for i, in := range inputs {
		if err := b.g.Connect(in, n.In(i)); err != nil {
			b.err = err
			return graph.OutPort{}
		}
	}
	return n.Out(0)
}

func (b *builder) constant(name string, value, shape []int64) graph.OutPort {
	return b.op(name, "Const", graph.Attrs{"value": value, "shape": shape})
}

// zeros builds a zero tensor of shape [batch, width], taking the batch
// from the runtime shape of like.
func (b *builder) zeros(name string, like graph.OutPort, width int64) graph.OutPort {
	shape := b.op(name+"/shape", "ShapeOf", nil, like)
	dim := b.constant(name+"/crop_batch_dim", []int64{1}, []int64{1})
	batch := b.op(name+"/crop_batch", "Crop", graph.Attrs{"axis": []int64{0}, "offset": []int64{0}}, shape, dim)
	second := b.constant(name+"/second_dim", []int64{width}, []int64{1})
	full := b.op(name+"/gather_shape", "Concat", graph.Attrs{"axis": 0}, batch, second)
	fill := b.constant(name+"/fill_value", []int64{0}, []int64{1})
	return b.op(name+"/broadcast", "Broadcast", nil, fill, full)
}

// counter builds a shift register of size slots that starts at zero and
// shifts in a one per step, and returns a port that reads true once the
// oldest slot holds a one.
func (b *builder) counter(name string, like graph.OutPort, size int64) graph.OutPort {
	variable := b.g.UniqueName(name)
	marks := graph.Attrs{AttrCounter: true, AttrCounterSize: size}
	with := func(extra graph.Attrs) graph.Attrs {
		out := marks.Clone()
		for k, v := range extra {
			out[k] = v
		}
		return out
	}

	init := b.zeros(name+"/init", like, size)
	read := b.op(name+"/read", "ReadValue", with(graph.Attrs{"variable_id": variable, "shape": []int64{size}}), init)
	shifted := b.op(name+"/crop_in", "Crop", graph.Attrs{"axis": 1, "offset": 1, "dim": size - 1}, read)
	ones := b.constant(name+"/ones", []int64{1}, []int64{1, 1})
	next := b.op(name+"/concat", "Concat", graph.Attrs{"axis": 1}, shifted, ones)
	stored := b.op(name+"_out", "Assign", with(graph.Attrs{"variable_id": variable, "shape": []int64{size}}), next)
	b.op(name+"/result", "Result", nil, stored)
	oldest := b.op(name+"/crop_out", "Crop", graph.Attrs{"axis": 1, "offset": 0, "dim": 1}, next)
	return b.op(name+"/equal", "Equal", with(nil), ones, oldest)
}
