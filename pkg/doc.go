// Package pkg provides the core libraries for mopass, a rewrite engine for
// neural-network IR graphs.
//
// # Overview
//
// mopass loads a model graph, finds subgraphs that match declarative
// patterns, and replaces them in place. Two passes ship with it: fusing the
// erf-based GeLU expansion into a single Gelu op, and gating recurrent
// memory writes with a context counter so that state written before the
// splice window is full is masked out. The pkg directory is organized into
// four areas:
//
//  1. [graph] - The IR: nodes, edges, ports, attributes and validation
//  2. [pattern], [pass] - Matching and the pass framework
//  3. [transform] - The concrete passes and dead-node cleanup
//  4. [pipeline] - Orchestration (validate → passes → cleanup → cache)
//
// # Architecture
//
// The typical data flow through mopass:
//
//	JSON/YAML model document
//	         ↓
//	    [io] package (decode into a graph)
//	         ↓
//	    [pipeline] package (ordered passes, validation, caching)
//	         ↓
//	    [transform] passes driven by [pass.Run]
//	         ↓
//	    JSON/YAML graph, or DOT/SVG/PNG via [render/dot]
//
// # Quick Start
//
// Fuse GeLU in a model and write it back:
//
//	import (
//	    "context"
//	    graphio "github.com/sadolini/openvino/pkg/io"
//	    "github.com/sadolini/openvino/pkg/pass"
//	    "github.com/sadolini/openvino/pkg/transform"
//	)
//
//	g, _ := graphio.Import("model.json")
//	report, _ := pass.Run(context.Background(), g, &transform.GeluErf{})
//	fmt.Println(report.Applied(), "fused")
//	_ = graphio.Export(g, "model.opt.json")
//
// Or let the pipeline run every default pass with caching:
//
//	c, _ := cache.NewFileCache(cache.DefaultDir())
//	runner := pipeline.NewRunner(c, nil, logger)
//	result, _ := runner.Execute(ctx, g, pipeline.Options{})
//
// # Main Packages
//
// ## Graph Model
//
// [graph] - Directed IR graph in ops form (op to op edges) or data form
// (op → data → op). Port primitives ([graph.Graph.Source],
// [graph.Graph.Destinations], [graph.Graph.SetSource],
// [graph.Graph.RedirectDestinations], [graph.Graph.InsertOnEdge]) hide the
// difference between the two forms from passes.
//
// ## Rewriting
//
// [pattern] - Declarative subgraph patterns with op, kind and attribute
// constraints and port-slot edges. Matches are injective and yielded lazily.
//
// [pass] - The Pass interface and the driver. [pass.Run] sweeps each
// pattern, revalidates stale matches and reports what it applied.
//
// [transform] - GeluErf, InsertSelect and EliminateDead.
//
// ## Infrastructure
//
// [pipeline] - Runner used by both the CLI and the HTTP server so they
// behave the same way. Results and renders are cached by content hash.
//
// [io] - JSON and YAML graph documents, chosen by file extension.
//
// [render/dot] - Graphviz DOT export, rendered to SVG or PNG.
//
// [cache] - File, Redis and null cache backends behind one interface.
//
// [config] - TOML configuration for passes, cache and server.
//
// [observability] - Hooks for pipeline, cache and HTTP events.
//
// [errors] - Error codes shared by all packages.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...         # All tests
//	go test ./pkg/transform   # Specific package
//	go test -run Example      # Examples only
//	go test -short ./...      # Skip Graphviz rendering
//
// [graph]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/graph
// [pattern]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/pattern
// [pass]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/pass
// [transform]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/transform
// [pipeline]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/pipeline
// [io]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/io
// [render/dot]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/render/dot
// [cache]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/cache
// [config]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/config
// [observability]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/observability
// [errors]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/errors
// [pass.Run]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/pass#Run
// [graph.Graph.Source]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/graph#Graph.Source
// [graph.Graph.Destinations]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/graph#Graph.Destinations
// [graph.Graph.SetSource]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/graph#Graph.SetSource
// [graph.Graph.RedirectDestinations]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/graph#Graph.RedirectDestinations
// [graph.Graph.InsertOnEdge]: https://pkg.go.dev/github.com/sadolini/openvino/pkg/graph#Graph.InsertOnEdge
package pkg
