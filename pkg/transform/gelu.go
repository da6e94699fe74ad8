package transform

import (
	"context"
	"math"

	"github.com/sadolini/openvino/pkg/graph"
	"github.com/sadolini/openvino/pkg/pass"
	"github.com/sadolini/openvino/pkg/pattern"
)

// GeluErfName is the configuration name of [GeluErf].
const GeluErfName = "gelu_erf"

// DefaultGeluTolerance bounds |divisor − √2| for a match to be fused.
const DefaultGeluTolerance = 1e-6

// GeluErf fuses the erf-based GeLU idiom into one Gelu op. It works on
// graphs of either form. The zero value is enabled and uses
// [DefaultGeluTolerance].
type GeluErf struct {
	Disabled  bool
	Tolerance float64
}

// Name implements pass.Pass.
func (p *GeluErf) Name() string { return GeluErfName }

// Enabled implements pass.Pass.
func (p *GeluErf) Enabled() bool { return !p.Disabled }

var geluPatterns = []*pattern.Pattern{
	// (0.5 * x) * (1 + erf(x / sqrt(2)))
	geluPattern("gelu_erf_1", "mul", [2]string{"mul", "mul0"}, [2]string{"add", "mul0"}),
	// 0.5 * (x * (1 + erf(x / sqrt(2))))
	geluPattern("gelu_erf_2", "mul0", [2]string{"add", "mul"}, [2]string{"mul", "mul0"}),
	// x * (0.5 * (1 + erf(x / sqrt(2))))
	geluPattern("gelu_erf_3", "mul", [2]string{"add", "mul"}, [2]string{"mul", "mul0"}),
}

// geluPattern declares the common node set. The three shapes differ in
// which Mul takes the 0.5 constant (half) and in how the add output and
// the inner Mul reach each other.
func geluPattern(name, half string, inner, outer [2]string) *pattern.Pattern {
	return pattern.New(name).
		Node("mul", pattern.Op("Mul")).
		Node("mul0", pattern.Op("Mul")).
		Node("div", pattern.Op("Div")).
		Node("erf", pattern.Op("Erf")).
		Node("add", pattern.Op("Add")).
		Node("mul_param", pattern.Op("Const")).
		Node("div_param", pattern.Op("Const")).
		Node("add_param", pattern.Op("Const")).
		Edge("div", "erf").
		Edge("erf", "add").
		Edge(inner[0], inner[1]).
		Edge(outer[0], outer[1]).
		Edge("mul_param", half).
		Edge("div_param", "div", pattern.In(1)).
		Edge("add_param", "add").
		MustBuild()
}

// Patterns implements pass.Pass.
func (p *GeluErf) Patterns() []*pattern.Pattern { return geluPatterns }

// Replace implements pass.Pass.
func (p *GeluErf) Replace(ctx context.Context, g *graph.Graph, m pattern.Match) error {
	logger := pass.Logger(ctx)
	nodes, err := resolve(g, m, "mul", "mul0", "div", "erf", "add", "mul_param", "div_param", "add_param")
	if err != nil {
		return err
	}
	out, div := nodes["mul0"], nodes["div"]

	input, ok, err := g.Source(div.In(0))
	if err != nil {
		return err
	}
	if !ok {
		return pass.Validation("%s has no dividend", div)
	}
	inputNode, _ := g.Node(input.Node)
	logger.Debug("found potential erf-based GeLU", "after", inputNode.Op, "input", inputNode.Name)

	half, err := scalar(nodes["mul_param"])
	if err != nil {
		return err
	}
	divisor, err := scalar(nodes["div_param"])
	if err != nil {
		return err
	}
	one, err := scalar(nodes["add_param"])
	if err != nil {
		return err
	}
	tol := p.Tolerance
	if tol <= 0 {
		tol = DefaultGeluTolerance
	}
	if math.Abs(divisor-math.Sqrt2) >= tol || half != 0.5 || one != 1.0 {
		return pass.Validation("constants (%g, %g, %g) do not describe GeLU", half, divisor, one)
	}
	if err := sameInput(g, m, nodes, input); err != nil {
		return err
	}
	logger.Debug("confirmed erf-based GeLU", "output", out.Name)

	gelu, err := g.AddOp(g.UniqueName(inputNode.Name+"/GELU_"), "Gelu", graph.Attrs{"approximation": "erf"})
	if err != nil {
		return err
	}
	if err := g.SetSource(gelu.In(0), input); err != nil {
		return err
	}
	if err := g.RedirectDestinations(out.Out(0), gelu.Out(0)); err != nil {
		return err
	}
	name := out.Name
	if err := g.RenameNodes(
		graph.Rename{ID: out.ID, Name: g.UniqueName(name + "/TBD")},
		graph.Rename{ID: gelu.ID, Name: name},
	); err != nil {
		return err
	}
	return pruneUnused(g, m.IDs())
}

// sameInput checks that the Mul carrying x reads the same value as the
// Div. Without it a product of two unrelated tensors would be fused.
func sameInput(g *graph.Graph, m pattern.Match, nodes map[string]*graph.Node, input graph.OutPort) error {
	var carrier *graph.Node
	var known graph.ID
	switch m.Pattern() {
	case "gelu_erf_1":
		carrier, known = nodes["mul"], nodes["mul_param"].ID
	case "gelu_erf_2":
		carrier, known = nodes["mul"], nodes["add"].ID
	default:
		carrier, known = nodes["mul0"], nodes["mul"].ID
	}
	for _, e := range g.InEdges(carrier.ID) {
		src, _, err := g.Source(carrier.In(e.In))
		if err != nil {
			return err
		}
		if src.Node == known {
			continue
		}
		if src != input {
			return pass.Validation("%s multiplies %v, not the GeLU input %v", carrier, src, input)
		}
		return nil
	}
	return pass.Validation("%s does not read the GeLU input", carrier)
}

// scalar reads a single-element constant. Anything else rejects the match.
func scalar(n *graph.Node) (float64, error) {
	vs, err := n.Attrs.Values("value")
	if err != nil {
		return 0, pass.Validation("%s: %v", n, err)
	}
	if len(vs) != 1 {
		return 0, pass.Validation("%s holds %d values, want 1", n, len(vs))
	}
	return vs[0], nil
}
