package io

import (
	"encoding/json"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/graph"
)

// ReadJSON decodes a JSON graph document from r. It does not close r.
func ReadJSON(r io.Reader) (*graph.Graph, error) {
	var doc document
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode json")
	}
	return doc.build()
}

// ReadYAML decodes a YAML graph document from r. It does not close r.
func ReadYAML(r io.Reader) (*graph.Graph, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode yaml")
	}
	return doc.build()
}

// Read decodes a graph document in the given format.
func Read(r io.Reader, f Format) (*graph.Graph, error) {
	switch f {
	case FormatJSON:
		return ReadJSON(r)
	case FormatYAML:
		return ReadYAML(r)
	}
	return nil, errors.New(errors.ErrCodeUnsupported, "unknown graph format %q", f)
}

// Import reads the graph file at path, choosing the decoder from the
// file extension.
func Import(path string) (*graph.Graph, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "open %s", path)
	}
	defer file.Close()
	g, err := Read(file, f)
	if err != nil {
		return nil, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInvalidInput), err, "%s", path)
	}
	return g, nil
}

func (doc *document) build() (*graph.Graph, error) {
	form, err := graph.ParseForm(doc.Form)
	if err != nil {
		return nil, err
	}
	g := graph.New(form)
	for k, v := range doc.Meta {
		g.Meta()[k] = v
	}

	ids := make(map[int64]graph.ID, len(doc.Nodes))
	for _, n := range doc.Nodes {
		if _, dup := ids[n.ID]; dup {
			return nil, errors.New(errors.ErrCodeInvalidInput, "node id %d appears twice", n.ID)
		}
		spec, err := n.spec()
		if err != nil {
			return nil, err
		}
		added, err := g.AddNode(spec)
		if err != nil {
			return nil, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInvalidInput), err, "node %d", n.ID)
		}
		ids[n.ID] = added.ID
	}

	for _, e := range doc.Edges {
		from, okFrom := ids[e.From]
		to, okTo := ids[e.To]
		if !okFrom || !okTo {
			return nil, errors.New(errors.ErrCodeInvalidInput, "edge %d->%d references an unknown node", e.From, e.To)
		}
		if err := g.AddEdge(graph.Edge{From: from, To: to, Out: e.Out, In: e.In}); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "edge %d:%d->%d:%d", e.From, e.Out, e.To, e.In)
		}
	}

	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid graph")
	}
	return g, nil
}

func (n node) spec() (graph.Node, error) {
	if n.Name != "" {
		if err := errors.ValidateNodeName(n.Name); err != nil {
			return graph.Node{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "node %d", n.ID)
		}
	}
	spec := graph.Node{Name: n.Name, Attrs: graph.Attrs(n.Attrs)}
	switch n.Kind {
	case "", "op":
		if err := errors.ValidateOpType(n.Op); err != nil {
			return graph.Node{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "node %d", n.ID)
		}
		spec.Kind, spec.Op = graph.KindOp, n.Op
	case "data":
		if n.Op != "" {
			return graph.Node{}, errors.New(errors.ErrCodeInvalidInput, "data node %d has op type %q", n.ID, n.Op)
		}
		spec.Kind = graph.KindData
	default:
		return graph.Node{}, errors.New(errors.ErrCodeInvalidInput, "node %d: unknown kind %q", n.ID, n.Kind)
	}
	return spec, nil
}
