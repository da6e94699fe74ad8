// Package pipeline runs an ordered list of transformation passes over an IR
// graph.
//
// This package is the single entry point used by the CLI and the HTTP API,
// so both apply the same defaults, validation and caching.
//
// # Stages
//
// A run proceeds as follows:
//
//  1. Validate the input graph (unless SkipValidate).
//  2. Run each pass named in Options.Passes, in order, through [pass.Run].
//     After every pass the graph invariants are checked again; a violation
//     aborts the run with INVARIANT_VIOLATION.
//  3. Remove dead nodes with [transform.EliminateDead] (unless SkipCleanup).
//
// The input graph is never modified; the run works on a copy.
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	result, err := runner.Execute(ctx, g, pipeline.Options{
//	    Passes: []string{"gelu_erf", "insert_select"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out := result.Graph
package pipeline

import (
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/sadolini/openvino/pkg/buildinfo"
	"github.com/sadolini/openvino/pkg/cache"
	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/graph"
	"github.com/sadolini/openvino/pkg/pass"
	"github.com/sadolini/openvino/pkg/transform"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

// DefaultPasses is the pass order used when Options.Passes is empty.
var DefaultPasses = []string{transform.GeluErfName, transform.InsertSelectName}

// PassDescription documents every known pass for listings.
var PassDescription = map[string]string{
	transform.GeluErfName:      "fuse the erf-based GeLU idiom into a single Gelu op",
	transform.InsertSelectName: "gate state writes fed by Splice context until the context has filled",
}

// KnownPasses returns the names of every pass the pipeline can build,
// sorted.
func KnownPasses() []string {
	names := make([]string, 0, len(PassDescription))
	for name := range PassDescription {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidatePasses checks that every name is known and appears once.
func ValidatePasses(names []string) error {
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if _, ok := PassDescription[name]; !ok {
			return errors.New(errors.ErrCodeInvalidInput, "unknown pass %q (must be one of: %s)",
				name, strings.Join(KnownPasses(), ", "))
		}
		if seen[name] {
			return errors.New(errors.ErrCodeInvalidInput, "pass %q listed twice", name)
		}
		seen[name] = true
	}
	return nil
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options configures one pipeline run. It supports JSON serialization for
// API requests; zero values select the defaults.
type Options struct {
	// Passes to run, in order. Empty means DefaultPasses.
	Passes []string `json:"passes,omitempty"`
	// Disabled names passes that stay in the order but are skipped.
	Disabled []string `json:"disabled,omitempty"`

	// SkipValidate disables the invariant checks between passes.
	SkipValidate bool `json:"skip_validate,omitempty"`
	// SkipCleanup keeps nodes that no longer reach a sink.
	SkipCleanup bool `json:"skip_cleanup,omitempty"`
	// Refresh ignores cached results; the fresh result is still stored.
	Refresh bool `json:"refresh,omitempty"`

	// GeluTolerance bounds |divisor − √2| for GeLU fusion.
	GeluTolerance float64 `json:"gelu_tolerance,omitempty"`
	// NoCounterReuse gives every gated write its own counter.
	NoCounterReuse bool `json:"no_counter_reuse,omitempty"`

	// Logger receives progress; the runner's logger when nil.
	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks the options and fills in defaults. It is
// idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if len(o.Passes) == 0 {
		o.Passes = slices.Clone(DefaultPasses)
	}
	if err := ValidatePasses(o.Passes); err != nil {
		return err
	}
	for _, name := range o.Disabled {
		if _, ok := PassDescription[name]; !ok {
			return errors.New(errors.ErrCodeInvalidInput, "unknown pass %q in disabled list", name)
		}
	}
	if o.GeluTolerance < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "gelu_tolerance must not be negative")
	}
	if o.GeluTolerance == 0 {
		o.GeluTolerance = transform.DefaultGeluTolerance
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// BuildPasses instantiates the configured passes in order.
func (o *Options) BuildPasses() ([]pass.Pass, error) {
	if err := o.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	passes := make([]pass.Pass, 0, len(o.Passes))
	for _, name := range o.Passes {
		off := slices.Contains(o.Disabled, name)
		switch name {
		case transform.GeluErfName:
			passes = append(passes, &transform.GeluErf{Disabled: off, Tolerance: o.GeluTolerance})
		case transform.InsertSelectName:
			passes = append(passes, &transform.InsertSelect{Disabled: off, NoCounterReuse: o.NoCounterReuse})
		}
	}
	return passes, nil
}

// KeyOpts returns the cache key options describing o. Disabled passes do
// not take part in the key.
func (o *Options) KeyOpts() cache.TransformKeyOpts {
	var enabled []string
	for _, name := range o.Passes {
		if !slices.Contains(o.Disabled, name) {
			enabled = append(enabled, name)
		}
	}
	return cache.TransformKeyOpts{
		Passes:        enabled,
		Validate:      !o.SkipValidate,
		Cleanup:       !o.SkipCleanup,
		GeluTolerance: o.GeluTolerance,
		ReuseCounters: !o.NoCounterReuse,
		Version:       buildinfo.Version,
	}
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies the run in logs and hooks.
	RunID string `json:"run_id"`

	// Graph is the transformed graph.
	Graph *graph.Graph `json:"-"`

	// InputHash is the content hash of the input graph.
	InputHash string `json:"input_hash"`

	// Reports holds one report per pass, in run order.
	Reports []*pass.Report `json:"reports"`

	// Removed counts the nodes dropped by dead-node cleanup.
	Removed int `json:"removed"`

	Stats     Stats     `json:"stats"`
	CacheInfo CacheInfo `json:"cache"`
}

// Applied returns the number of rewrites applied across all passes.
func (r *Result) Applied() int {
	n := 0
	for _, rep := range r.Reports {
		n += rep.Applied()
	}
	return n
}

// Stats contains pipeline execution statistics.
type Stats struct {
	NodesBefore int           `json:"nodes_before"`
	NodesAfter  int           `json:"nodes_after"`
	EdgesBefore int           `json:"edges_before"`
	EdgesAfter  int           `json:"edges_after"`
	Duration    time.Duration `json:"duration"`
}

// CacheInfo tells whether the result came from the cache.
type CacheInfo struct {
	Hit bool   `json:"hit"`
	Key string `json:"key,omitempty"`
}
