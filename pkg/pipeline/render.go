package pipeline

import (
	"context"

	"github.com/sadolini/openvino/pkg/cache"
	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/graph"
	graphio "github.com/sadolini/openvino/pkg/io"
	"github.com/sadolini/openvino/pkg/observability"
	"github.com/sadolini/openvino/pkg/render/dot"
)

// FormatDOT selects raw DOT source in [Runner.Render].
const FormatDOT = "dot"

// RenderFormats lists the formats accepted by [Runner.Render].
var RenderFormats = []string{FormatDOT, string(dot.FormatSVG), string(dot.FormatPNG)}

// ValidateRenderFormat checks that format is one of RenderFormats.
func ValidateRenderFormat(format string) error {
	for _, f := range RenderFormats {
		if f == format {
			return nil
		}
	}
	return errors.New(errors.ErrCodeUnsupported, "render format %q (must be dot, svg or png)", format)
}

// Render draws g in format. Graphviz output is cached under a key derived
// from the graph content and opts; DOT source is cheap and never cached.
func (r *Runner) Render(ctx context.Context, g *graph.Graph, format string, opts dot.Options) ([]byte, bool, error) {
	if err := ValidateRenderFormat(format); err != nil {
		return nil, false, err
	}
	src := dot.ToDOT(g, opts)
	if format == FormatDOT {
		return []byte(src), false, nil
	}

	data, err := graphio.MarshalJSON(g)
	if err != nil {
		return nil, false, errors.Wrap(errors.ErrCodeInternal, err, "encode graph")
	}
	key := r.Keyer.RenderKey(cache.Hash(data), cache.RenderKeyOpts{
		Format:     format,
		ShowAttrs:  opts.ShowAttrs,
		ShowIDs:    opts.ShowIDs,
		RankDir:    opts.RankDir,
		HideConsts: opts.HideConsts,
	})

	hooks := observability.Cache()
	if out, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
		hooks.OnCacheHit(ctx, cache.KeyTypeRender)
		return out, true, nil
	}
	hooks.OnCacheMiss(ctx, cache.KeyTypeRender)

	var out []byte
	if format == string(dot.FormatSVG) {
		out, err = dot.RenderSVG(ctx, src)
	} else {
		out, err = dot.Render(ctx, src, dot.Format(format))
	}
	if err != nil {
		return nil, false, err
	}
	if err := r.Cache.Set(ctx, key, out, cache.TTLRender); err == nil {
		hooks.OnCacheSet(ctx, cache.KeyTypeRender, len(out))
	}
	return out, false, nil
}
