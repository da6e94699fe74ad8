// Package io reads and writes IR graphs as JSON or YAML documents.
//
// # Format
//
// Both encodings share one document layout:
//
//	{
//	  "form": "data",
//	  "nodes": [
//	    {"id": 1, "name": "input", "op": "Parameter"},
//	    {"id": 2, "name": "input/out0", "kind": "data", "attrs": {"shape": [1, 8]}},
//	    {"id": 3, "name": "act", "op": "Relu"}
//	  ],
//	  "edges": [
//	    {"from": 1, "to": 2},
//	    {"from": 2, "to": 3, "in": 0}
//	  ]
//	}
//
// form is "ops" (the default) or "data". A node's kind defaults to "op";
// op nodes need an op type. Ports default to 0. Node IDs only link edges to
// nodes inside one document: they are remapped on import, so exporting an
// imported graph may renumber them.
//
// Attribute values are decoded as JSON or YAML produces them (numbers,
// strings, booleans, lists, maps); the typed accessors of [graph.Attrs]
// accept every numeric representation.
//
// # Import
//
// [ReadJSON] and [ReadYAML] decode from any io.Reader; [Import] opens a file
// and picks the decoder from its extension. Every import checks node names,
// op types and edge endpoints, then runs [graph.Graph.Validate], so a
// returned graph always satisfies the structural invariants.
//
// # Export
//
// [WriteJSON] and [WriteYAML] encode to any io.Writer; [Export] creates a
// file. Nodes are written in ID order and edges in source order, so equal
// graphs encode to equal bytes, which the pipeline relies on for cache keys.
package io
