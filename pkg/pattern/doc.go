// Package pattern describes partial subgraphs and finds them in a
// [graph.Graph].
//
// # Building patterns
//
// A [Pattern] is a set of named nodes, each with a predicate, and a set of
// edges between them, each optionally pinned to an output or input port.
// Patterns are assembled with a [Builder] and are immutable once built:
//
//	p := pattern.New("relu_after_add").
//	    Node("add", pattern.Op("Add")).
//	    Node("relu", pattern.Op("Relu")).
//	    Edge("add", "relu", pattern.In(0)).
//	    MustBuild()
//
// # Matching
//
// [Pattern.All] enumerates matches lazily. A match binds every pattern
// node to a distinct graph node such that every predicate holds and every
// pattern edge corresponds to a real edge honoring its port constraints.
// Matching is exact on declared edges only: bound nodes may carry any
// number of additional edges the pattern does not mention.
//
// In a data-form graph an edge between two op pattern nodes also matches
// an op → data → op path; the data node in between is not bound. Patterns
// that need the data node declare it with [Kind] and two edges.
//
// The search anchors on the pattern node with the fewest candidates in
// the target graph, then grows the binding along pattern edges and
// backtracks when a candidate fails.
//
// # Stale matches
//
// A [Match] holds node IDs, not pointers. When a caller mutates the graph
// between finding a match and using it, [Pattern.Valid] re-checks the
// binding and [Match.Node] reports INVALID_REWIRE for nodes that have been
// removed in the meantime.
package pattern
