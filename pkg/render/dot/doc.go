// Package dot renders IR graphs as Graphviz diagrams.
//
// # Overview
//
// [ToDOT] writes a graph in the DOT language: op nodes are rounded boxes
// labelled with name and operator type, data nodes are ellipses labelled
// with name and shape. Nodes created by the Select insertion pass stand
// out: the context gate is filled amber and counter nodes are dashed.
//
// # Usage
//
// Convert a graph to DOT, then render it:
//
//	src := dot.ToDOT(g, dot.Options{ShowAttrs: true})
//	svg, err := dot.RenderSVG(ctx, src)
//
// [Render] also produces PNG through the same Graphviz build; no external
// tools are needed.
package dot
