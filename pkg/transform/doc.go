// Package transform provides the transformation passes that rewrite an IR
// graph, plus the dead-node cleanup run after them.
//
// # Overview
//
// Importers produce graphs that are correct but rarely in the form a
// deployment target wants. Each pass here implements [pass.Pass]: it
// declares patterns, and its handler validates and rewrites every match the
// driver hands it.
//
// # GeLU Fusion
//
// [GeluErf] collapses the exact GeLU idiom
//
//	0.5 · x · (1 + erf(x / √2))
//
// into a single Gelu op with approximation "erf". Exporters emit the idiom
// in three tree shapes, depending on where the 0.5 factor is applied, so the
// pass declares three patterns:
//
//	(0.5 · x) · (1 + erf(x / √2))
//	0.5 · (x · (1 + erf(x / √2)))
//	x · (0.5 · (1 + erf(x / √2)))
//
// A match is applied only when its three constants are single-element, the
// divisor is √2 within the configured tolerance, the factor is exactly 0.5
// and the addend exactly 1.0. The fused node takes over the name of the
// idiom's output; the replaced output is renamed to "<name>/TBD" and the
// matched nodes that no longer feed anything are removed.
//
// # Select Insertion
//
// [InsertSelect] protects recurrent state from warm-up frames. Splice ops
// concatenate a window of neighbouring frames, so during the first frames
// of a stream they push frames that do not exist yet. For every Assign the
// pass sums the extra frames of all Splice ops upstream of it (without
// crossing another ReadValue or Assign):
//
//	counter = 1 + Σ (len(context) − 1)
//
// and, when the sum is positive, inserts a Select ahead of the write that
// substitutes zeros until a shift-register counter of that length has
// filled with ones:
//
//	ReadValue ─ Crop[1:] ─┐
//	             ones ────┴─ Concat ─┬─ Assign (counter)
//	                                 └─ Crop[0:1] ─ Equal(ones) ─┐
//	value ──────────────────────────────────────────────────── Select ─ Assign
//	zeros(batch, width) ─────────────────────────────────────────┘
//
// Counters are marked so the pass never gates its own writes, and writes
// that are already gated are left alone, which keeps the pass idempotent.
//
// # Cleanup
//
// [EliminateDead] removes every node from which no sink (Result, Assign, or
// a node with the "keep" attribute) can be reached.
package transform
