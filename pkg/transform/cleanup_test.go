package transform

import (
	"testing"

	"github.com/sadolini/openvino/pkg/graph"
)

func TestEliminateDead(t *testing.T) {
	tests := []struct {
		name    string
		form    graph.Form
		removed int
		gone    []string
	}{
		{"ops form", graph.FormOps, 2, []string{"dangling", "tail"}},
		// dangling and tail plus the data node between them
		{"data form", graph.FormData, 3, []string{"dangling", "tail"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := newNet(t, tt.form)
			n.op("in", "Parameter", nil)
			n.op("relu", "Relu", nil, "in")
			n.op("out", "Result", nil, "relu")
			n.op("dangling", "Tanh", nil, "in")
			n.op("tail", "Sigmoid", nil, "dangling")
			n.op("pinned", "Relu", graph.Attrs{"keep": true}, "in")
			n.op("state", "Assign", nil, "relu")

			removed, err := EliminateDead(n.g)
			if err != nil {
				t.Fatal(err)
			}
			if removed != tt.removed {
				t.Errorf("removed %d nodes, want %d", removed, tt.removed)
			}
			for _, name := range tt.gone {
				if n.g.Has(n.nodes[name].ID) {
					t.Errorf("%s survived", name)
				}
			}
			for _, name := range []string{"in", "relu", "out", "pinned", "state"} {
				if !n.g.Has(n.nodes[name].ID) {
					t.Errorf("%s was removed", name)
				}
			}
			if err := n.g.Validate(); err != nil {
				t.Errorf("Validate() error: %v", err)
			}
		})
	}
}

func TestEliminateDead_NoSinks(t *testing.T) {
	n := newNet(t, graph.FormOps)
	n.op("in", "Parameter", nil)
	n.op("relu", "Relu", nil, "in")

	removed, err := EliminateDead(n.g)
	if err != nil || removed != 0 || n.g.NodeCount() != 2 {
		t.Errorf("EliminateDead() = %d, %v; %d nodes left, want a no-op", removed, err, n.g.NodeCount())
	}
}
