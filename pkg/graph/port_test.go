package graph

import (
	"testing"

	"github.com/sadolini/openvino/pkg/errors"
)

// chainData builds p -> d0 -> a -> d1 -> {b.in0, c.in1} in data form, with
// c.in0 fed by a separate parameter q.
func chainData(t *testing.T) (g *Graph, p, a, b, c, q *Node) {
	t.Helper()
	g = New(FormData)
	p = mustOp(t, g, "p", "Parameter")
	a = mustOp(t, g, "a", "Relu")
	b = mustOp(t, g, "b", "Result")
	c = mustOp(t, g, "c", "Add")
	q = mustOp(t, g, "q", "Parameter")
	for _, conn := range []struct {
		src OutPort
		in  InPort
	}{
		{p.Out(0), a.In(0)},
		{a.Out(0), b.In(0)},
		{q.Out(0), c.In(0)},
		{a.Out(0), c.In(1)},
	} {
		if err := g.Connect(conn.src, conn.in); err != nil {
			t.Fatalf("Connect(%s, %s) error: %v", conn.src, conn.in, err)
		}
	}
	return g, p, a, b, c, q
}

func TestConnect_CreatesDataNodes(t *testing.T) {
	g, p, a, _, _, _ := chainData(t)

	if g.NodeCount() != 8 {
		t.Errorf("NodeCount() = %d, want 5 ops + 3 data nodes", g.NodeCount())
	}
	d, ok := g.OutData(a.Out(0))
	if !ok {
		t.Fatal("OutData(a.out0) missing")
	}
	if n, _ := g.Node(d); n.Name != "a/out0" {
		t.Errorf("data node name = %q, want a/out0", n.Name)
	}
	src, ok, err := g.Source(a.In(0))
	if err != nil || !ok || src != p.Out(0) {
		t.Errorf("Source(a.in0) = %v, %v, %v, want %v", src, ok, err, p.Out(0))
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestDestinations(t *testing.T) {
	g, _, a, b, c, _ := chainData(t)

	got, err := g.Destinations(a.Out(0))
	if err != nil {
		t.Fatal(err)
	}
	want := []InPort{b.In(0), c.In(1)}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Destinations() = %v, want %v", got, want)
	}

	if _, err := g.Destinations(OutPort{Node: 99}); !errors.Is(err, errors.ErrCodeInvalidRewire) {
		t.Errorf("Destinations(stale) error = %v, want INVALID_REWIRE", err)
	}
}

func TestSetSource(t *testing.T) {
	g, p, _, _, c, q := chainData(t)

	if err := g.SetSource(c.In(1), p.Out(0)); err != nil {
		t.Fatalf("SetSource() error: %v", err)
	}
	src, _, _ := g.Source(c.In(1))
	if src != p.Out(0) {
		t.Errorf("Source(c.in1) = %v, want %v", src, p.Out(0))
	}
	pd, _ := g.OutData(p.Out(0))
	if d, _ := g.InData(c.In(1)); d != pd {
		t.Errorf("c.in1 fed by data %d, want shared data node %d", d, pd)
	}

	if err := g.SetSource(c.In(0), OutPort{Node: 77}); !errors.Is(err, errors.ErrCodeInvalidRewire) {
		t.Errorf("SetSource(stale source) error = %v, want INVALID_REWIRE", err)
	}
	if src, _, _ := g.Source(c.In(0)); src != q.Out(0) {
		t.Errorf("failed SetSource changed c.in0 to %v", src)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestRedirectDestinations_Data(t *testing.T) {
	g, _, a, b, c, _ := chainData(t)
	old, _ := g.OutData(a.Out(0))

	n := mustOp(t, g, "n", "Relu")
	if err := g.Connect(a.Out(0), n.In(0)); err != nil {
		t.Fatal(err)
	}
	// n consumes a, so moving a's consumers onto n would feed n itself.
	if err := g.RedirectDestinations(a.Out(0), n.Out(0)); !errors.Is(err, errors.ErrCodeInvariantViolation) {
		t.Fatalf("self-feeding redirect error = %v, want INVARIANT_VIOLATION", err)
	}
	if err := g.Disconnect(n.In(0)); err != nil {
		t.Fatal(err)
	}

	if err := g.RedirectDestinations(a.Out(0), n.Out(0)); err != nil {
		t.Fatalf("RedirectDestinations() error: %v", err)
	}
	got, _ := g.Destinations(n.Out(0))
	if len(got) != 2 || got[0] != b.In(0) || got[1] != c.In(1) {
		t.Errorf("Destinations(n.out0) = %v, want [b.in0 c.in1]", got)
	}
	if d, _ := g.OutData(n.Out(0)); d != old {
		t.Errorf("n.out0 data = %d, want moved data node %d", d, old)
	}
	if rest, _ := g.Destinations(a.Out(0)); len(rest) != 0 {
		t.Errorf("a still has consumers %v", rest)
	}
}

func TestRedirectDestinations_Ops(t *testing.T) {
	g := New(FormOps)
	a := mustOp(t, g, "a", "Parameter")
	x := mustOp(t, g, "x", "Relu")
	y := mustOp(t, g, "y", "Result")
	z := mustOp(t, g, "z", "Result")
	n := mustOp(t, g, "n", "Tanh")
	mustEdge(t, g, Edge{From: a.ID, To: x.ID})
	mustEdge(t, g, Edge{From: x.ID, To: y.ID})
	mustEdge(t, g, Edge{From: x.ID, To: z.ID})

	if err := g.RedirectDestinations(x.Out(0), n.Out(0)); err != nil {
		t.Fatal(err)
	}
	got, _ := g.Destinations(n.Out(0))
	if len(got) != 2 {
		t.Errorf("Destinations(n) = %v, want both y and z", got)
	}
	if rest, _ := g.Destinations(x.Out(0)); len(rest) != 0 {
		t.Errorf("x keeps consumers %v", rest)
	}
}

func TestInsertOnEdge(t *testing.T) {
	t.Run("ops form", func(t *testing.T) {
		g := New(FormOps)
		a := mustOp(t, g, "a", "Parameter")
		w := mustOp(t, g, "w", "Assign")
		mustEdge(t, g, Edge{From: a.ID, To: w.ID})

		sel, err := g.InsertOnEdge(Edge{From: a.ID, To: w.ID}, Node{Kind: KindOp, Name: "gate", Op: "Select"}, 1, 0)
		if err != nil {
			t.Fatalf("InsertOnEdge() error: %v", err)
		}
		if src, _, _ := g.Source(w.In(0)); src != sel.Out(0) {
			t.Errorf("Source(w.in0) = %v, want gate output", src)
		}
		if src, _, _ := g.Source(sel.In(1)); src != a.Out(0) {
			t.Errorf("Source(gate.in1) = %v, want a.out0", src)
		}
	})

	t.Run("data form", func(t *testing.T) {
		g, _, a, b, c, _ := chainData(t)
		d, _ := g.InData(b.In(0))

		ins, err := g.InsertOnEdge(Edge{From: d, To: b.ID}, Node{Kind: KindOp, Name: "id", Op: "Identity"}, 0, 0)
		if err != nil {
			t.Fatalf("InsertOnEdge() error: %v", err)
		}
		if src, _, _ := g.Source(b.In(0)); src != ins.Out(0) {
			t.Errorf("Source(b.in0) = %v, want inserted node", src)
		}
		if got, _ := g.InData(ins.In(0)); got != d {
			t.Errorf("inserted node reads data %d, want %d", got, d)
		}
		if got, _ := g.InData(c.In(1)); got != d {
			t.Errorf("other consumer moved off data %d", d)
		}
		if src, _, _ := g.Source(ins.In(0)); src != a.Out(0) {
			t.Errorf("Source(ins.in0) = %v, want a.out0", src)
		}
		if err := g.Validate(); err != nil {
			t.Errorf("Validate() error: %v", err)
		}
	})

	t.Run("failed wiring rolls back", func(t *testing.T) {
		for _, form := range []Form{FormOps, FormData} {
			g := New(form)
			a := mustOp(t, g, "a", "Parameter")
			w := mustOp(t, g, "w", "Assign")
			if err := g.Connect(a.Out(0), w.In(0)); err != nil {
				t.Fatal(err)
			}
			before := g.Copy()
			e := g.InEdges(w.ID)[0]

			// A negative output port fails only once the input side is wired.
			_, err := g.InsertOnEdge(e, Node{Kind: KindOp, Name: "gate", Op: "Select"}, 0, -1)
			if !errors.Is(err, errors.ErrCodeInvariantViolation) {
				t.Errorf("%s: InsertOnEdge(out -1) error = %v, want INVARIANT_VIOLATION", form, err)
			}
			if diff := Diff(before, g); diff != "" {
				t.Errorf("%s: graph changed by failed insert:\n%s", form, diff)
			}
			if src, ok, _ := g.Source(w.In(0)); !ok || src != a.Out(0) {
				t.Errorf("%s: Source(w.in0) = %v, %v, want a.out0", form, src, ok)
			}
			if err := g.Validate(); err != nil {
				t.Errorf("%s: Validate() error: %v", form, err)
			}
		}
	})

	t.Run("stale edge", func(t *testing.T) {
		g := New(FormOps)
		a := mustOp(t, g, "a", "Parameter")
		w := mustOp(t, g, "w", "Assign")
		_, err := g.InsertOnEdge(Edge{From: a.ID, To: w.ID}, Node{Kind: KindOp, Name: "s", Op: "Select"}, 0, 0)
		if !errors.Is(err, errors.ErrCodeInvalidRewire) {
			t.Errorf("InsertOnEdge(missing edge) error = %v, want INVALID_REWIRE", err)
		}
		if g.NodeCount() != 2 {
			t.Errorf("NodeCount() = %d, want 2 after failed insert", g.NodeCount())
		}
	})
}

func TestRenameNodes(t *testing.T) {
	g := New(FormOps)
	out := mustOp(t, g, "y", "Mul")
	repl := mustOp(t, g, "x/GELU_", "Gelu")

	if err := g.RenameNodes(Rename{out.ID, "y/TBD"}, Rename{99, "z"}); !errors.Is(err, errors.ErrCodeInvalidRewire) {
		t.Fatalf("RenameNodes(stale) error = %v, want INVALID_REWIRE", err)
	}
	if out.Name != "y" {
		t.Fatalf("failed rename changed %q", out.Name)
	}

	if err := g.RenameNodes(Rename{out.ID, "y/TBD"}, Rename{repl.ID, "y"}); err != nil {
		t.Fatal(err)
	}
	if out.Name != "y/TBD" || repl.Name != "y" {
		t.Errorf("names = %q, %q", out.Name, repl.Name)
	}
	if got := g.UniqueName("y/TBD"); got != "y/TBD__1" {
		t.Errorf("UniqueName after rename = %q, want y/TBD__1", got)
	}
}

func TestDisconnect_Stale(t *testing.T) {
	g := New(FormOps)
	if err := g.Disconnect(InPort{Node: 5}); !errors.Is(err, errors.ErrCodeInvalidRewire) {
		t.Errorf("Disconnect(stale) error = %v, want INVALID_REWIRE", err)
	}
}
