package pipeline

import (
	"bytes"
	"context"
	"testing"

	"github.com/sadolini/openvino/pkg/cache"
	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/render/dot"
)

func TestRunner_RenderDOT(t *testing.T) {
	out, hit, err := NewRunner(nil, nil, nil).Render(context.Background(), acousticNet(t), FormatDOT, dot.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if hit || !bytes.HasPrefix(out, []byte("digraph G {")) {
		t.Errorf("Render(dot) = hit %v, %.40q", hit, out)
	}
}

func TestRunner_RenderUnknownFormat(t *testing.T) {
	_, _, err := NewRunner(nil, nil, nil).Render(context.Background(), acousticNet(t), "pdf", dot.Options{})
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("err = %v, want UNSUPPORTED", err)
	}
}

func TestRunner_RenderSVGIsCached(t *testing.T) {
	if testing.Short() {
		t.Skip("runs graphviz")
	}
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(c, nil, nil)
	ctx := context.Background()

	first, hit, err := r.Render(ctx, acousticNet(t), "svg", dot.Options{ShowAttrs: true})
	if err != nil {
		t.Fatal(err)
	}
	if hit {
		t.Error("first render reported a cache hit")
	}
	second, hit, err := r.Render(ctx, acousticNet(t), "svg", dot.Options{ShowAttrs: true})
	if err != nil {
		t.Fatal(err)
	}
	if !hit || !bytes.Equal(first, second) {
		t.Errorf("second render: hit %v, equal %v", hit, bytes.Equal(first, second))
	}
	if _, hit, _ := r.Render(ctx, acousticNet(t), "svg", dot.Options{}); hit {
		t.Error("different options served from cache")
	}
}
