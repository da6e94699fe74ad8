// Package config loads mopass settings from a TOML file.
//
// A file only needs the keys it changes; everything else keeps the value
// from [Default]:
//
//	[pipeline]
//	passes = ["insert_select"]
//
//	[cache]
//	backend = "redis"
//	redis_addr = "cache.internal:6379"
//
// Keys that do not map onto a setting are rejected, so a typo fails
// loudly instead of being ignored.
package config

import (
	"context"
	"os"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/sadolini/openvino/pkg/cache"
	"github.com/sadolini/openvino/pkg/errors"
	"github.com/sadolini/openvino/pkg/pipeline"
	"github.com/sadolini/openvino/pkg/transform"
)

// Cache backends.
const (
	BackendNone  = "none"
	BackendFile  = "file"
	BackendRedis = "redis"
)

// Config is the decoded configuration file.
type Config struct {
	Pipeline     Pipeline     `toml:"pipeline"`
	Gelu         Gelu         `toml:"gelu"`
	InsertSelect InsertSelect `toml:"insert_select"`
	Cache        Cache        `toml:"cache"`
	Server       Server       `toml:"server"`
}

type Pipeline struct {
	Validate bool     `toml:"validate"`
	Cleanup  bool     `toml:"cleanup"`
	Passes   []string `toml:"passes"`
}

type Gelu struct {
	Enabled   bool    `toml:"enabled"`
	Tolerance float64 `toml:"tolerance"`
}

type InsertSelect struct {
	Enabled       bool `toml:"enabled"`
	ReuseCounters bool `toml:"reuse_counters"`
}

type Cache struct {
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	RedisAddr string `toml:"redis_addr"`
	TTL       string `toml:"ttl"`
	// Prefix scopes every key, for deployments sharing one Redis.
	Prefix string `toml:"prefix"`
}

type Server struct {
	Addr string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Pipeline: Pipeline{
			Validate: true,
			Cleanup:  true,
			Passes:   slices.Clone(pipeline.DefaultPasses),
		},
		Gelu:         Gelu{Enabled: true, Tolerance: transform.DefaultGeluTolerance},
		InsertSelect: InsertSelect{Enabled: true, ReuseCounters: true},
		Cache: Cache{
			Backend:   BackendFile,
			RedisAddr: "localhost:6379",
			TTL:       "24h",
		},
		Server: Server{Addr: ":8080"},
	}
}

// Load reads path over the defaults. A missing file is NOT_FOUND; a file
// that does not decode or validate is INVALID_INPUT.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeNotFound, err, "config %s", path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
	}
	cfg, err := Parse(string(data))
	if err != nil {
		return nil, errors.Wrap(errors.GetCodeOr(err, errors.ErrCodeInvalidInput), err, "config %s", path)
	}
	return cfg, nil
}

// Parse decodes a TOML document over the defaults.
func Parse(doc string) (*Config, error) {
	cfg := Default()
	meta, err := toml.Decode(doc, cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode")
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that decoding alone cannot.
func (c *Config) Validate() error {
	if err := pipeline.ValidatePasses(c.Pipeline.Passes); err != nil {
		return err
	}
	if c.Gelu.Tolerance < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "gelu.tolerance must not be negative")
	}
	switch c.Cache.Backend {
	case BackendNone, BackendFile:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return errors.New(errors.ErrCodeInvalidInput, "cache.redis_addr is required for the redis backend")
		}
	default:
		return errors.New(errors.ErrCodeInvalidInput, "cache.backend %q (must be none, file or redis)", c.Cache.Backend)
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	return nil
}

// CacheTTL parses cache.ttl. An empty value returns zero, which leaves
// the runner on its default TTL.
func (c *Config) CacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Cache.TTL)
	if err != nil || d < 0 {
		return 0, errors.New(errors.ErrCodeInvalidInput, "cache.ttl %q is not a valid duration", c.Cache.TTL)
	}
	return d, nil
}

// PipelineOptions converts the pipeline sections into run options.
func (c *Config) PipelineOptions() pipeline.Options {
	opts := pipeline.Options{
		Passes:         slices.Clone(c.Pipeline.Passes),
		SkipValidate:   !c.Pipeline.Validate,
		SkipCleanup:    !c.Pipeline.Cleanup,
		GeluTolerance:  c.Gelu.Tolerance,
		NoCounterReuse: !c.InsertSelect.ReuseCounters,
	}
	if !c.Gelu.Enabled {
		opts.Disabled = append(opts.Disabled, transform.GeluErfName)
	}
	if !c.InsertSelect.Enabled {
		opts.Disabled = append(opts.Disabled, transform.InsertSelectName)
	}
	return opts
}

// Keyer returns the cache keyer, scoped by the configured prefix if any.
func (c *Config) Keyer() cache.Keyer {
	if c.Cache.Prefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, c.Cache.Prefix)
}

// OpenCache builds the configured cache backend.
func (c *Config) OpenCache(ctx context.Context) (cache.Cache, error) {
	switch c.Cache.Backend {
	case BackendNone:
		return cache.NewNullCache(), nil
	case BackendRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: c.Cache.RedisAddr})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeUnsupported, err, "redis cache at %s", c.Cache.RedisAddr)
		}
		return rc, nil
	}
	dir := c.Cache.Dir
	if dir == "" {
		d, err := cache.DefaultDir()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "locate cache directory")
		}
		dir = d
	}
	fc, err := cache.NewFileCache(dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "open cache %s", dir)
	}
	return fc, nil
}
