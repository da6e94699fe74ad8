package config

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/sadolini/openvino/pkg/cache"
	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/pipeline"
	"github.com/sadolini/openvino/pkg/transform"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	opts := cfg.PipelineOptions()
	if !slices.Equal(opts.Passes, pipeline.DefaultPasses) {
		t.Errorf("Passes = %v", opts.Passes)
	}
	if opts.SkipValidate || opts.SkipCleanup || opts.NoCounterReuse || len(opts.Disabled) > 0 {
		t.Errorf("default options = %+v", opts)
	}
	if ttl, _ := cfg.CacheTTL(); ttl != 24*time.Hour {
		t.Errorf("CacheTTL = %v, want 24h", ttl)
	}
}

func TestParse(t *testing.T) {
	cfg, err := Parse(`
[pipeline]
cleanup = false
passes = ["insert_select"]

[gelu]
enabled = false
tolerance = 1e-3

[insert_select]
reuse_counters = false

[cache]
backend = "none"
ttl = "90m"
`)
	if err != nil {
		t.Fatal(err)
	}
	opts := cfg.PipelineOptions()
	if !slices.Equal(opts.Passes, []string{transform.InsertSelectName}) {
		t.Errorf("Passes = %v", opts.Passes)
	}
	if !opts.SkipCleanup || opts.SkipValidate {
		t.Errorf("cleanup/validate = %v/%v", !opts.SkipCleanup, !opts.SkipValidate)
	}
	if !slices.Equal(opts.Disabled, []string{transform.GeluErfName}) {
		t.Errorf("Disabled = %v", opts.Disabled)
	}
	if opts.GeluTolerance != 1e-3 || !opts.NoCounterReuse {
		t.Errorf("options = %+v", opts)
	}
	if ttl, _ := cfg.CacheTTL(); ttl != 90*time.Minute {
		t.Errorf("CacheTTL = %v", ttl)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("untouched server.addr = %q, want default", cfg.Server.Addr)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"syntax", `[pipeline`},
		{"unknown key", "[pipeline]\nvalidat = true"},
		{"unknown section", "[fusion]\nenabled = true"},
		{"unknown pass", `[pipeline]` + "\n" + `passes = ["gelu_erf", "fold"]`},
		{"duplicate pass", `[pipeline]` + "\n" + `passes = ["gelu_erf", "gelu_erf"]`},
		{"wrong type", "[gelu]\ntolerance = \"small\""},
		{"negative tolerance", "[gelu]\ntolerance = -1.0"},
		{"backend", "[cache]\nbackend = \"memcached\""},
		{"redis without addr", "[cache]\nbackend = \"redis\"\nredis_addr = \"\""},
		{"ttl", "[cache]\nttl = \"a day\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.doc)
			if err == nil {
				t.Fatal("Parse() succeeded")
			}
			if !errors.Is(err, errors.ErrCodeInvalidInput) {
				t.Errorf("error = %v, want INVALID_INPUT", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mopass.toml")
	if err := os.WriteFile(path, []byte("[server]\naddr = \":9090\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}

	if _, err := Load(filepath.Join(dir, "missing.toml")); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("missing file: err = %v, want NOT_FOUND", err)
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("[cache]\nbackend = 3\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(bad); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("bad file: err = %v, want INVALID_INPUT", err)
	}
}

func TestOpenCache(t *testing.T) {
	ctx := context.Background()

	cfg := Default()
	cfg.Cache.Backend = BackendNone
	c, err := cfg.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(cache.Clearer); ok {
		t.Error("none backend should not be clearable")
	}

	cfg.Cache.Backend = BackendFile
	cfg.Cache.Dir = t.TempDir()
	c, err = cfg.OpenCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	fc, ok := c.(*cache.FileCache)
	if !ok || fc.Dir() != cfg.Cache.Dir {
		t.Errorf("file backend = %#v", c)
	}
}

func TestKeyer(t *testing.T) {
	opts := cache.TransformKeyOpts{Passes: []string{transform.GeluErfName}}

	plain := Default().Keyer().TransformKey("abc", opts)
	cfg := Default()
	cfg.Cache.Prefix = "staging:"
	scoped := cfg.Keyer().TransformKey("abc", opts)

	if scoped != "staging:"+plain {
		t.Errorf("scoped key = %q, want prefix on %q", scoped, plain)
	}
}
