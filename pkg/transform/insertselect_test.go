package transform

import (
	"context"
	"slices"
	"testing"

	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/graph"
	"github.com/sadolini/openvino/pkg/pass"
)

var (
	window5 = []int64{-2, -1, 0, 1, 2}
	window3 = []int64{-1, 0, 1}
)

// spliceNet builds in -> splice(window5) -> fc -> write in data form, with
// fc producing a [1, 8] value.
func spliceNet(t *testing.T) *net {
	t.Helper()
	n := newNet(t, graph.FormData)
	n.op("in", "Parameter", nil)
	n.op("splice", "Splice", graph.Attrs{"context": window5}, "in")
	n.op("fc", "FullyConnected", nil, "splice")
	n.op("write", "Assign", graph.Attrs{"variable_id": "state"}, "fc")
	n.shape("fc", 1, 8)
	return n
}

func TestContextLength(t *testing.T) {
	tests := []struct {
		name  string
		build func(n *net)
		want  int64
		note  string
	}{
		{
			name: "single splice",
			build: func(n *net) {
				n.op("in", "Parameter", nil)
				n.op("splice", "Splice", graph.Attrs{"context": window5}, "in")
				n.op("write", "Assign", nil, "splice")
			},
			want: 5,
		},
		{
			// Frames added by chained splices accumulate: 1 + 4 + 2.
			name: "chained splices",
			build: func(n *net) {
				n.op("in", "Parameter", nil)
				n.op("s1", "Splice", graph.Attrs{"context": window5}, "in")
				n.op("s2", "Splice", graph.Attrs{"context": window3}, "s1")
				n.op("write", "Assign", nil, "s2")
			},
			want: 7,
			note: "open question: the legacy InsertSelect fixture expects a counter of 5 " +
				"for splices [-2..2] then [-1,0,1], keeping only the widest window; " +
				"summing the extra frames of both gives 7, which is what is asserted",
		},
		{
			name: "splices on rejoining branches",
			build: func(n *net) {
				n.op("in", "Parameter", nil)
				n.op("s1", "Splice", graph.Attrs{"context": window5}, "in")
				n.op("s2", "Splice", graph.Attrs{"context": window3}, "in")
				n.op("sum", "Add", nil, "s1", "s2")
				n.op("write", "Assign", nil, "sum")
			},
			want: 7,
		},
		{
			name: "splice on another branch",
			build: func(n *net) {
				n.op("in", "Parameter", nil)
				n.op("splice", "Splice", graph.Attrs{"context": window5}, "in")
				n.op("write", "Assign", nil, "splice")
				n.op("other", "Splice", graph.Attrs{"context": window3}, "in")
				n.op("out", "Result", nil, "other")
			},
			want: 5,
		},
		{
			name: "diamond counts once",
			build: func(n *net) {
				n.op("in", "Parameter", nil)
				n.op("splice", "Splice", graph.Attrs{"context": window3}, "in")
				n.op("a", "Relu", nil, "splice")
				n.op("b", "Tanh", nil, "splice")
				n.op("sum", "Add", nil, "a", "b")
				n.op("write", "Assign", nil, "sum")
			},
			want: 3,
		},
		{
			name: "stops at memory reads",
			build: func(n *net) {
				n.op("in", "Parameter", nil)
				n.op("far", "Splice", graph.Attrs{"context": window5}, "in")
				n.op("read", "ReadValue", nil, "far")
				n.op("near", "Splice", graph.Attrs{"context": window3}, "read")
				n.op("write", "Assign", nil, "near")
			},
			want: 3,
		},
		{
			name: "no splice",
			build: func(n *net) {
				n.op("in", "Parameter", nil)
				n.op("write", "Assign", nil, "in")
			},
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.note != "" {
				t.Log(tt.note)
			}
			for _, form := range []graph.Form{graph.FormOps, graph.FormData} {
				n := newNet(t, form)
				tt.build(n)
				got, err := ContextLength(n.g, n.nodes["write"].ID)
				if err != nil {
					t.Fatalf("%s: ContextLength() error: %v", form, err)
				}
				if got != tt.want {
					t.Errorf("%s: ContextLength() = %d, want %d", form, got, tt.want)
				}
			}
		})
	}
}

func TestContextLength_MissingContext(t *testing.T) {
	n := newNet(t, graph.FormOps)
	n.op("in", "Parameter", nil)
	n.op("splice", "Splice", nil, "in")
	n.op("write", "Assign", nil, "splice")

	_, err := ContextLength(n.g, n.nodes["write"].ID)
	if !errors.Is(err, errors.ErrCodeMissingAttribute) {
		t.Errorf("ContextLength() error = %v, want MISSING_ATTRIBUTE", err)
	}
}

func TestInsertSelect_GatesWrite(t *testing.T) {
	n := spliceNet(t)
	r, err := pass.Run(context.Background(), n.g, &InsertSelect{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if r.Applied() != 1 {
		t.Fatalf("applied = %d, want 1 (report %+v)", r.Applied(), r.Patterns)
	}

	sel := n.source("write", 0)
	if !sel.IsOp("Select") || !sel.Attrs.Flag(AttrContextGate) {
		t.Fatalf("write is fed by %s, want a context gate", sel)
	}
	cond, _, _ := n.g.Source(sel.In(0))
	value, _, _ := n.g.Source(sel.In(1))
	zeros, _, _ := n.g.Source(sel.In(2))
	if value != n.nodes["fc"].Out(0) {
		t.Errorf("select.in1 = %v, want fc output", value)
	}
	equal, _ := n.g.Node(cond.Node)
	if !equal.IsOp("Equal") {
		t.Errorf("select.in0 fed by %s, want Equal", equal)
	}
	if size, _ := equal.Attrs.Int(AttrCounterSize); size != 5 {
		t.Errorf("counter size = %d, want 5", size)
	}
	if fill, _ := n.g.Node(zeros.Node); !fill.IsOp("Broadcast") {
		t.Errorf("select.in2 fed by %s, want Broadcast", fill)
	}

	d, ok := n.g.OutData(sel.Out(0))
	if !ok {
		t.Fatal("select has no output data node")
	}
	out, _ := n.g.Node(d)
	if shape, _ := out.Attrs.Ints("shape"); !slices.Equal(shape, []int64{1, 8}) {
		t.Errorf("select output shape = %v, want [1 8]", shape)
	}

	var writes, reads int
	for _, node := range n.g.Nodes() {
		switch {
		case node.IsOp("Assign") && node.Attrs.Flag(AttrCounter):
			writes++
		case node.IsOp("ReadValue") && node.Attrs.Flag(AttrCounter):
			reads++
		}
	}
	if writes != 1 || reads != 1 {
		t.Errorf("counter state ops: %d writes, %d reads, want 1 and 1", writes, reads)
	}
	if err := n.g.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestInsertSelect_RejoiningSplices(t *testing.T) {
	n := newNet(t, graph.FormData)
	n.op("in", "Parameter", nil)
	n.op("s1", "Splice", graph.Attrs{"context": window5}, "in")
	n.op("s2", "Splice", graph.Attrs{"context": window3}, "in")
	n.op("sum", "Add", nil, "s1", "s2")
	n.op("write", "Assign", graph.Attrs{"variable_id": "state"}, "sum")
	n.shape("sum", 1, 8)

	r, err := pass.Run(context.Background(), n.g, &InsertSelect{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if r.Applied() != 1 {
		t.Fatalf("applied = %d, want 1", r.Applied())
	}
	counters := n.g.NodesByOp("Equal")
	if len(counters) != 1 {
		t.Fatalf("%d counters, want 1", len(counters))
	}
	if size, _ := counters[0].Attrs.Int(AttrCounterSize); size != 7 {
		t.Errorf("counter size = %d, want 7", size)
	}
	if gates := n.g.NodesByOp("Select"); len(gates) != 1 {
		t.Errorf("%d gates, want 1", len(gates))
	}
	if sel := n.source("write", 0); !sel.IsOp("Select") {
		t.Errorf("write is fed by %s, want the gate", sel)
	}
	if err := n.g.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestInsertSelect_Idempotent(t *testing.T) {
	n := spliceNet(t)
	p := &InsertSelect{}
	if _, err := pass.Run(context.Background(), n.g, p); err != nil {
		t.Fatal(err)
	}
	once := n.g.Copy()
	r, err := pass.Run(context.Background(), n.g, p)
	if err != nil {
		t.Fatal(err)
	}
	if r.Applied() != 0 {
		t.Errorf("second run applied %d rewrites", r.Applied())
	}
	if diff := graph.Diff(once, n.g); diff != "" {
		t.Errorf("second run changed the graph:\n%s", diff)
	}
}

func TestInsertSelect_LeavesUntouched(t *testing.T) {
	tests := []struct {
		name  string
		build func(t *testing.T) *net
	}{
		{"no splice", func(t *testing.T) *net {
			n := newNet(t, graph.FormData)
			n.op("in", "Parameter", nil)
			n.op("fc", "FullyConnected", nil, "in")
			n.op("write", "Assign", nil, "fc")
			n.shape("fc", 1, 8)
			return n
		}},
		{"unknown shape", func(t *testing.T) *net {
			n := newNet(t, graph.FormData)
			n.op("in", "Parameter", nil)
			n.op("splice", "Splice", graph.Attrs{"context": window5}, "in")
			n.op("write", "Assign", nil, "splice")
			return n
		}},
		{"ops form", func(t *testing.T) *net {
			n := newNet(t, graph.FormOps)
			n.op("in", "Parameter", nil)
			n.op("splice", "Splice", graph.Attrs{"context": window5}, "in")
			n.op("write", "Assign", nil, "splice")
			return n
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := tt.build(t)
			before := n.g.Copy()
			r, err := pass.Run(context.Background(), n.g, &InsertSelect{})
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if r.Applied() != 0 || r.Patterns[0].Rejected != 1 {
				t.Errorf("report = %+v, want one rejected match", r.Patterns)
			}
			if diff := graph.Diff(before, n.g); diff != "" {
				t.Errorf("graph changed:\n%s", diff)
			}
		})
	}
}

func TestInsertSelect_CounterReuse(t *testing.T) {
	build := func(t *testing.T) *net {
		n := spliceNet(t)
		n.op("fc2", "FullyConnected", nil, "splice")
		n.op("write2", "Assign", graph.Attrs{"variable_id": "state2"}, "fc2")
		n.shape("fc2", 1, 4)
		return n
	}
	tests := []struct {
		name string
		pass *InsertSelect
		want int
	}{
		{"shared", &InsertSelect{}, 1},
		{"separate", &InsertSelect{NoCounterReuse: true}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := build(t)
			r, err := pass.Run(context.Background(), n.g, tt.pass)
			if err != nil {
				t.Fatal(err)
			}
			if r.Applied() != 2 {
				t.Fatalf("applied = %d, want 2", r.Applied())
			}
			if got := len(n.g.NodesByOp("Equal")); got != tt.want {
				t.Errorf("%d counters, want %d", got, tt.want)
			}
			if err := n.g.Validate(); err != nil {
				t.Errorf("Validate() error: %v", err)
			}
		})
	}
}

func TestInsertSelect_Disabled(t *testing.T) {
	n := spliceNet(t)
	r, err := pass.Run(context.Background(), n.g, &InsertSelect{Disabled: true})
	if err != nil {
		t.Fatal(err)
	}
	if !r.Disabled || n.g.NodeCount() != 7 {
		t.Errorf("disabled pass touched the graph: %+v, %d nodes", r, n.g.NodeCount())
	}
}
