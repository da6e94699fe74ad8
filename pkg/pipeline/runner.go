package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/sadolini/openvino/pkg/cache"
	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/graph"
	graphio "github.com/sadolini/openvino/pkg/io"
	"github.com/sadolini/openvino/pkg/observability"
	"github.com/sadolini/openvino/pkg/pass"
	"github.com/sadolini/openvino/pkg/transform"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API can use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL bounds how long results stay cached; cache.TTLTransform when zero.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// cachedResult is the payload stored under a transform key.
type cachedResult struct {
	Graph   json.RawMessage `json:"graph"`
	Reports []*pass.Report  `json:"reports"`
	Removed int             `json:"removed"`
}

// Execute runs the configured passes over a copy of g. g itself is not
// modified.
func (r *Runner) Execute(ctx context.Context, g *graph.Graph, opts Options) (result *Result, err error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	logger := opts.Logger.With("run", runID[:8])
	ctx = pass.WithLogger(ctx, logger)

	hooks := observability.Pipeline()
	hooks.OnRunStart(ctx, runID, opts.Passes)
	start := time.Now()
	defer func() { hooks.OnRunComplete(ctx, runID, time.Since(start), err) }()

	input, err := graphio.MarshalJSON(g)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode input graph")
	}
	result = &Result{
		RunID:     runID,
		InputHash: cache.Hash(input),
		Stats: Stats{
			NodesBefore: g.NodeCount(),
			EdgesBefore: g.EdgeCount(),
		},
	}
	key := r.Keyer.TransformKey(result.InputHash, opts.KeyOpts())
	result.CacheInfo.Key = key

	if !opts.Refresh && r.fromCache(ctx, key, result) {
		result.Stats.Duration = time.Since(start)
		logger.Info("using cached result", "applied", result.Applied())
		return result, nil
	}

	out, err := r.runPasses(ctx, g, &opts, result)
	if err != nil {
		return nil, err
	}
	result.Graph = out
	result.Stats.NodesAfter = out.NodeCount()
	result.Stats.EdgesAfter = out.EdgeCount()
	result.Stats.Duration = time.Since(start)

	r.store(ctx, key, result)

	logger.Info("pipeline finished",
		"applied", result.Applied(),
		"removed", result.Removed,
		"nodes", result.Stats.NodesAfter,
		"duration", result.Stats.Duration)
	return result, nil
}

func (r *Runner) runPasses(ctx context.Context, in *graph.Graph, opts *Options, result *Result) (*graph.Graph, error) {
	logger := pass.Logger(ctx)
	if !opts.SkipValidate {
		if err := in.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "input graph")
		}
	}
	passes, err := opts.BuildPasses()
	if err != nil {
		return nil, err
	}

	g := in.Copy()
	for _, p := range passes {
		report, err := pass.Run(ctx, g, p)
		result.Reports = append(result.Reports, report)
		if err != nil {
			return nil, err
		}
		if opts.SkipValidate {
			continue
		}
		if err := g.Validate(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvariantViolation, err, "after pass %s", p.Name())
		}
	}

	if !opts.SkipCleanup {
		removed, err := transform.EliminateDead(g)
		if err != nil {
			return nil, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInternal), err, "cleanup")
		}
		result.Removed = removed
		if removed > 0 {
			logger.Debug("removed dead nodes", "count", removed)
		}
	}
	return g, nil
}

// fromCache fills result from the cache entry under key. Undecodable
// entries count as misses.
func (r *Runner) fromCache(ctx context.Context, key string, result *Result) bool {
	hooks := observability.Cache()
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		if err != nil {
			pass.Logger(ctx).Warn("cache lookup failed", "err", err)
		}
		hooks.OnCacheMiss(ctx, cache.KeyTypeTransform)
		return false
	}
	var cached cachedResult
	if err := json.Unmarshal(data, &cached); err != nil {
		hooks.OnCacheMiss(ctx, cache.KeyTypeTransform)
		return false
	}
	g, err := graphio.ReadJSON(bytes.NewReader(cached.Graph))
	if err != nil {
		hooks.OnCacheMiss(ctx, cache.KeyTypeTransform)
		return false
	}
	hooks.OnCacheHit(ctx, cache.KeyTypeTransform)
	result.Graph = g
	result.Reports = cached.Reports
	result.Removed = cached.Removed
	result.Stats.NodesAfter = g.NodeCount()
	result.Stats.EdgesAfter = g.EdgeCount()
	result.CacheInfo.Hit = true
	return true
}

func (r *Runner) store(ctx context.Context, key string, result *Result) {
	raw, err := graphio.MarshalJSON(result.Graph)
	if err != nil {
		return
	}
	data, err := json.Marshal(cachedResult{Graph: raw, Reports: result.Reports, Removed: result.Removed})
	if err != nil {
		return
	}
	ttl := r.TTL
	if ttl <= 0 {
		ttl = cache.TTLTransform
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		pass.Logger(ctx).Warn("cache store failed", "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cache.KeyTypeTransform, len(data))
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
