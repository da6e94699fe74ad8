// Package pass defines the transformation pass contract and the driver that
// sweeps a pass's patterns over a graph.
//
// A [Pass] declares whether it is enabled, one or more patterns, and a
// handler invoked once per match. [Run] processes the patterns in declared
// order. For each pattern it collects the matches present in the current
// graph, then dispatches them one at a time; before each dispatch the
// binding is re-validated, so a match invalidated by an earlier handler in
// the same sweep is skipped instead of being applied to stale nodes.
//
// Handler errors follow the codes in package errors:
//
//   - VALIDATION_FAILED: the match failed a semantic check; it is counted
//     as rejected and the sweep continues.
//   - INVALID_REWIRE: a primitive touched a removed node or port; the
//     invocation is logged, counted as stale and the sweep continues.
//   - anything else aborts the pass and is returned to the caller.
//
// Passes are idempotent by convention: running a pass on its own output
// applies nothing.
package pass

import (
	"context"
	"time"

	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/graph"
	"github.com/sadolini/openvino/pkg/observability"
	"github.com/sadolini/openvino/pkg/pattern"
)

// Pass is a graph transformation driven by pattern matches.
type Pass interface {
	// Name identifies the pass in logs, reports and configuration.
	Name() string
	// Enabled reports whether the driver should run the pass at all.
	Enabled() bool
	// Patterns returns the patterns to sweep, in order.
	Patterns() []*pattern.Pattern
	// Replace applies the rewrite for one match. The match has been
	// re-validated against g immediately before the call.
	Replace(ctx context.Context, g *graph.Graph, m pattern.Match) error
}

// PatternReport counts what happened to the matches of one pattern.
type PatternReport struct {
	Pattern  string `json:"pattern"`
	Matches  int    `json:"matches"`
	Applied  int    `json:"applied"`
	Rejected int    `json:"rejected"`
	Stale    int    `json:"stale"`
}

// Report summarizes one pass run.
type Report struct {
	Pass     string          `json:"pass"`
	Disabled bool            `json:"disabled,omitempty"`
	Patterns []PatternReport `json:"patterns,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// Applied returns the number of matches rewritten across all patterns.
func (r *Report) Applied() int {
	n := 0
	for _, p := range r.Patterns {
		n += p.Applied
	}
	return n
}

// Matches returns the number of matches found across all patterns.
func (r *Report) Matches() int {
	n := 0
	for _, p := range r.Patterns {
		n += p.Matches
	}
	return n
}

// Run executes a single pass against g. A disabled pass is reported and
// otherwise left alone.
func Run(ctx context.Context, g *graph.Graph, p Pass) (*Report, error) {
	logger := Logger(ctx).With("pass", p.Name())
	report := &Report{Pass: p.Name()}
	if !p.Enabled() {
		logger.Debug("pass disabled")
		report.Disabled = true
		return report, nil
	}

	hooks := observability.Pipeline()
	hooks.OnPassStart(ctx, p.Name(), g.NodeCount())
	start := time.Now()

	var runErr error
	for _, pat := range p.Patterns() {
		pr, err := sweep(WithLogger(ctx, logger), g, p, pat)
		report.Patterns = append(report.Patterns, pr)
		if err != nil {
			runErr = errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInternal), err, "pass %s, pattern %s", p.Name(), pat.Name())
			break
		}
	}
	report.Duration = time.Since(start)
	hooks.OnPassComplete(ctx, p.Name(), report.Applied(), report.Duration, runErr)
	if runErr != nil {
		return report, runErr
	}

	logger.Info("pass finished",
		"matches", report.Matches(),
		"applied", report.Applied(),
		"duration", report.Duration)
	return report, nil
}

func sweep(ctx context.Context, g *graph.Graph, p Pass, pat *pattern.Pattern) (PatternReport, error) {
	logger := Logger(ctx)
	pr := PatternReport{Pattern: pat.Name()}
	matches := pat.Find(g)
	pr.Matches = len(matches)

	for _, m := range matches {
		if err := pat.Valid(g, m); err != nil {
			pr.Stale++
			logger.Debug("match invalidated by an earlier rewrite", "match", m, "reason", errors.UserMessage(err))
			observability.Pipeline().OnMatchSkipped(ctx, p.Name(), pat.Name(), err)
			continue
		}
		logger.Debug("candidate match", "match", m)
		err := p.Replace(ctx, g, m)
		switch {
		case err == nil:
			pr.Applied++
		case !errors.Recoverable(err):
			return pr, err
		case errors.Is(err, errors.ErrCodeValidation):
			pr.Rejected++
			logger.Debug("match rejected", "match", m, "reason", errors.UserMessage(err))
		default:
			pr.Stale++
			logger.Warn("skipping stale rewrite", "match", m, "err", err)
			observability.Pipeline().OnMatchSkipped(ctx, p.Name(), pat.Name(), err)
		}
	}
	return pr, nil
}

// RunAll runs passes in order and stops at the first fatal error. The
// reports of the passes that ran are returned either way.
func RunAll(ctx context.Context, g *graph.Graph, passes []Pass) ([]*Report, error) {
	reports := make([]*Report, 0, len(passes))
	for _, p := range passes {
		r, err := Run(ctx, g, p)
		reports = append(reports, r)
		if err != nil {
			return reports, err
		}
	}
	return reports, nil
}

// Validation returns a VALIDATION_FAILED error for handlers rejecting a
// match.
func Validation(format string, args ...any) error {
	return errors.New(errors.ErrCodeValidation, format, args...)
}
