// Package graph provides the intermediate representation (IR) graph that
// transformation passes search and rewrite.
//
// # Overview
//
// A [Graph] holds two kinds of vertices:
//
//   - Op nodes ([KindOp]): a computation tagged with an operator type such as
//     "Mul" or "Assign", plus a keyed attribute mapping.
//   - Data nodes ([KindData]): a value produced by exactly one op (or by
//     nobody, for graph-boundary inputs) and consumed by any number of ops.
//
// Edges connect an output port of one node to an input port of another. An
// [Edge] carries the output ordinal (Out) and the input ordinal (In) so that
// multi-input ops such as Select can tell their operands apart.
//
// # Forms
//
// Graphs come in two forms. [FormOps] graphs connect ops directly, the shape
// importers produce before shape inference. [FormData] graphs interpose a
// data node on every op→op connection, which is where value shapes live.
// The port primitives in this package hide the difference: [Graph.Source]
// always answers with the producing op's output port.
//
// # Identity
//
// Node IDs are arena indices assigned by the graph. They grow monotonically
// and are never reused after deletion, so a pass can hold an ID across
// mutations and ask [Graph.Has] before touching it again. Names are
// diagnostics: they need not be unique, but [Graph.UniqueName] hands out
// names that have never been used in the graph.
//
// # Invariants
//
// Once a mutating call returns, the following hold:
//
//   - Every edge references live nodes.
//   - Each op input port has at most one source.
//   - Each data node has at most one producer.
//
// [Graph.Validate] additionally checks that op input ports are contiguous
// (0..k-1, no gaps), that data nodes never connect to each other, and that
// the graph is acyclic. Rewrites may leave a port unconnected between two
// primitive calls; Validate is what the pipeline runs once a pass is done.
//
// # Rewiring
//
// [Graph.SetSource], [Graph.RedirectDestinations], [Graph.InsertOnEdge] and
// [Graph.RenameNodes] are the primitives passes use to apply a match. They
// fail with INVALID_REWIRE when asked to touch a node that no longer
// exists, and with INVARIANT_VIOLATION when the request itself would break
// an invariant.
//
// # Concurrency
//
// Graph instances are not safe for concurrent use. The pass pipeline owns a
// graph exclusively for the duration of a run.
package graph
