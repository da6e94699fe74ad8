package transform

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/sadolini/openvino/pkg/graph"
	"github.com/sadolini/openvino/pkg/pass"
)

type geluConsts struct {
	half, divisor, one float64
}

var exactGelu = geluConsts{half: 0.5, divisor: math.Sqrt2, one: 1}

// geluNet builds one of the three exporter arrangements of the erf GeLU
// idiom between a Parameter x and a Result out. The idiom's output op is
// named y.
func geluNet(t *testing.T, form graph.Form, arrangement int, c geluConsts) *net {
	t.Helper()
	n := newNet(t, form)
	n.op("x", "Parameter", nil)
	n.constant("sqrt2", c.divisor)
	n.constant("one", c.one)
	n.constant("half", c.half)
	n.op("div", "Div", nil, "x", "sqrt2")
	n.op("erf", "Erf", nil, "div")
	n.op("add", "Add", nil, "erf", "one")
	switch arrangement {
	case 1: // (0.5 * x) * (1 + erf(x / sqrt(2)))
		n.op("scaled", "Mul", nil, "x", "half")
		n.op("y", "Mul", nil, "scaled", "add")
	case 2: // 0.5 * (x * (1 + erf(x / sqrt(2))))
		n.op("product", "Mul", nil, "x", "add")
		n.op("y", "Mul", nil, "product", "half")
	case 3: // x * (0.5 * (1 + erf(x / sqrt(2))))
		n.op("factor", "Mul", nil, "add", "half")
		n.op("y", "Mul", nil, "x", "factor")
	default:
		t.Fatalf("unknown arrangement %d", arrangement)
	}
	n.op("out", "Result", nil, "y")
	return n
}

func TestGeluErf_FusesEveryArrangement(t *testing.T) {
	for _, form := range []graph.Form{graph.FormOps, graph.FormData} {
		for arrangement, pattern := range map[int]string{1: "gelu_erf_1", 2: "gelu_erf_2", 3: "gelu_erf_3"} {
			t.Run(form.String()+"/"+pattern, func(t *testing.T) {
				n := geluNet(t, form, arrangement, exactGelu)
				r, err := pass.Run(context.Background(), n.g, &GeluErf{})
				if err != nil {
					t.Fatalf("Run() error: %v", err)
				}
				if r.Applied() != 1 {
					t.Fatalf("applied = %d, want 1 (report %+v)", r.Applied(), r.Patterns)
				}
				for _, pr := range r.Patterns {
					if pr.Applied == 1 && pr.Pattern != pattern {
						t.Errorf("applied by %s, want %s", pr.Pattern, pattern)
					}
				}

				gelu := n.source("out", 0)
				if !gelu.IsOp("Gelu") || gelu.Name != "y" {
					t.Fatalf("out is fed by %s, want Gelu named y", gelu)
				}
				if a, _ := gelu.Attrs.String("approximation"); a != "erf" {
					t.Errorf("approximation = %q, want erf", a)
				}
				src, _, _ := n.g.Source(gelu.In(0))
				if src != n.nodes["x"].Out(0) {
					t.Errorf("gelu input = %v, want x", src)
				}
				ops := 0
				for _, node := range n.g.Nodes() {
					if node.IsOp() {
						ops++
					}
				}
				if ops != 3 {
					t.Errorf("%d ops left, want x, gelu and out:\n%v", ops, graph.Signature(n.g))
				}
				if err := n.g.Validate(); err != nil {
					t.Errorf("Validate() error: %v", err)
				}
			})
		}
	}
}

func TestGeluErf_RejectsWrongConstants(t *testing.T) {
	tests := []struct {
		name   string
		consts geluConsts
	}{
		{"divisor", geluConsts{half: 0.5, divisor: 1.5, one: 1}},
		{"factor", geluConsts{half: 0.4, divisor: math.Sqrt2, one: 1}},
		{"addend", geluConsts{half: 0.5, divisor: math.Sqrt2, one: 2}},
	}
	for _, tt := range tests {
		for _, form := range []graph.Form{graph.FormOps, graph.FormData} {
			for arrangement := 1; arrangement <= 3; arrangement++ {
				t.Run(fmt.Sprintf("%s/%s/%d", tt.name, form, arrangement), func(t *testing.T) {
					n := geluNet(t, form, arrangement, tt.consts)
					before := n.g.Copy()
					r, err := pass.Run(context.Background(), n.g, &GeluErf{})
					if err != nil {
						t.Fatalf("Run() error: %v", err)
					}
					rejected := 0
					for _, pr := range r.Patterns {
						rejected += pr.Rejected
					}
					if r.Applied() != 0 || rejected == 0 {
						t.Errorf("applied=%d rejected=%d, want no rewrite and a rejection", r.Applied(), rejected)
					}
					if diff := graph.Diff(before, n.g); diff != "" {
						t.Errorf("graph changed (-before +after):\n%s", diff)
					}
				})
			}
		}
	}
}

func TestGeluErf_Tolerance(t *testing.T) {
	n := geluNet(t, graph.FormOps, 2, geluConsts{half: 0.5, divisor: 1.4142, one: 1})
	r, err := pass.Run(context.Background(), n.g, &GeluErf{Tolerance: 1e-3})
	if err != nil {
		t.Fatal(err)
	}
	if r.Applied() != 1 {
		t.Errorf("applied = %d with loose tolerance, want 1", r.Applied())
	}
}

func TestGeluErf_RejectsForeignOperand(t *testing.T) {
	// The outer product multiplies z instead of x.
	n := newNet(t, graph.FormOps)
	n.op("x", "Parameter", nil)
	n.op("z", "Parameter", nil)
	n.constant("sqrt2", math.Sqrt2)
	n.constant("one", 1)
	n.constant("half", 0.5)
	n.op("div", "Div", nil, "x", "sqrt2")
	n.op("erf", "Erf", nil, "div")
	n.op("add", "Add", nil, "erf", "one")
	n.op("scaled", "Mul", nil, "z", "half")
	n.op("y", "Mul", nil, "scaled", "add")
	n.op("out", "Result", nil, "y")

	r, err := pass.Run(context.Background(), n.g, &GeluErf{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Applied() != 0 {
		t.Errorf("fused a product of unrelated tensors")
	}
}

func TestGeluErf_Idempotent(t *testing.T) {
	n := geluNet(t, graph.FormData, 3, exactGelu)
	p := &GeluErf{}
	if _, err := pass.Run(context.Background(), n.g, p); err != nil {
		t.Fatal(err)
	}
	once := n.g.Copy()
	r, err := pass.Run(context.Background(), n.g, p)
	if err != nil {
		t.Fatal(err)
	}
	if r.Matches() != 0 {
		t.Errorf("second run found %d matches, want 0", r.Matches())
	}
	if diff := graph.Diff(once, n.g); diff != "" {
		t.Errorf("second run changed the graph:\n%s", diff)
	}
}

func TestGeluErf_SharedInputSurvives(t *testing.T) {
	n := geluNet(t, graph.FormOps, 1, exactGelu)
	n.op("side", "Relu", nil, "div")
	n.op("side_out", "Result", nil, "side")

	r, err := pass.Run(context.Background(), n.g, &GeluErf{})
	if err != nil {
		t.Fatal(err)
	}
	if r.Applied() != 1 {
		t.Fatalf("applied = %d, want 1", r.Applied())
	}
	if !n.g.Has(n.nodes["div"].ID) {
		t.Error("div still feeds side but was removed")
	}
	if err := n.g.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}
