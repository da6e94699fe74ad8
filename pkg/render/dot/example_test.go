package dot_test

import (
	"fmt"

	"github.com/sadolini/openvino/pkg/graph"
	"github.com/sadolini/openvino/pkg/render/dot"
)

func ExampleToDOT() {
	g := graph.New(graph.FormOps)
	x, _ := g.AddOp("x", "Parameter", nil)
	act, _ := g.AddOp("act", "Gelu", graph.Attrs{"approximation": "erf"})
	_ = g.Connect(x.Out(0), act.In(0))

	fmt.Print(dot.ToDOT(g, dot.Options{ShowAttrs: true}))
	// Output:
	// digraph G {
	//   rankdir=TB;
	//   bgcolor="transparent";
	//   node [shape=box, style="rounded,filled", fillcolor=white, fontsize=12, margin="0.2,0.1"];
	//   edge [fontsize=9];
	//   ranksep=0.4;
	//   nodesep=0.3;
	//
	//   n1 [label="x\nParameter", shape=box, style="filled", fillcolor="#dcfce7"];
	//   n2 [label="act\nGelu\napproximation: erf"];
	//
	//   n1 -> n2 [label="0→0"];
	// }
}
