package io

import (
	"bytes"
	"encoding/json"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/graph"
)

func newDocument(g *graph.Graph) document {
	doc := document{
		Form:  g.Form().String(),
		Nodes: make([]node, 0, g.NodeCount()),
		Edges: make([]edge, 0, g.EdgeCount()),
	}
	if len(g.Meta()) > 0 {
		doc.Meta = g.Meta()
	}
	for _, n := range orderedNodes(g) {
		out := node{ID: int64(n.ID), Name: n.Name, Op: n.Op}
		if n.Kind == graph.KindData {
			out.Kind = "data"
		}
		if len(n.Attrs) > 0 {
			out.Attrs = n.Attrs
		}
		doc.Nodes = append(doc.Nodes, out)
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, edge{From: int64(e.From), To: int64(e.To), Out: e.Out, In: e.In})
	}
	return doc
}

// orderedNodes lists producers before their consumers so documents read
// top down. A graph with a cycle falls back to ID order.
func orderedNodes(g *graph.Graph) []*graph.Node {
	order, err := g.Topological()
	if err != nil {
		return g.Nodes()
	}
	nodes := make([]*graph.Node, 0, len(order))
	for _, id := range order {
		if n, ok := g.Node(id); ok {
			nodes = append(nodes, n)
		}
	}
	return nodes
}

// WriteJSON encodes g as an indented JSON document.
func WriteJSON(g *graph.Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(newDocument(g)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode json")
	}
	return nil
}

// WriteYAML encodes g as a YAML document.
func WriteYAML(g *graph.Graph, w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(newDocument(g)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode yaml")
	}
	return enc.Close()
}

// Write encodes g in the given format.
func Write(g *graph.Graph, w io.Writer, f Format) error {
	switch f {
	case FormatJSON:
		return WriteJSON(g, w)
	case FormatYAML:
		return WriteYAML(g, w)
	}
	return errors.New(errors.ErrCodeUnsupported, "unknown graph format %q", f)
}

// MarshalJSON returns the JSON document of g.
func MarshalJSON(g *graph.Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Export writes g to path, choosing the encoder from the file extension.
func Export(g *graph.Graph, path string) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "create %s", path)
	}
	if err := Write(g, file, f); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
