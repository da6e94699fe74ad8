// Package cache stores pipeline results so repeated transformations of the
// same graph with the same options are served without re-running passes.
//
// Three backends implement [Cache]:
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: a shared Redis instance, for servers running side by side
//   - [NullCache]: stores nothing, for --no-cache and tests
//
// Keys are built by a [Keyer] from a content hash of the input and the
// options that influence the output, so a change to either yields a new key.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiration.
type Cache interface {
	// Get returns the stored value and true, or false on a miss. Expired
	// entries are misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the backend's resources.
	Close() error
}

// Clearer is implemented by backends that can drop every entry they own.
type Clearer interface {
	Clear(ctx context.Context) error
}

// Default TTLs per entry type.
const (
	TTLTransform = 7 * 24 * time.Hour
	TTLRender    = 7 * 24 * time.Hour
)

// Key types reported to [observability.CacheHooks].
const (
	KeyTypeTransform = "transform"
	KeyTypeRender    = "render"
)

// TransformKeyOpts lists the options that change the result of a
// transformation run.
type TransformKeyOpts struct {
	Passes        []string `json:"passes"`
	Validate      bool     `json:"validate"`
	Cleanup       bool     `json:"cleanup"`
	GeluTolerance float64  `json:"gelu_tolerance"`
	ReuseCounters bool     `json:"reuse_counters"`
	Version       string   `json:"version"`
}

// RenderKeyOpts lists the options that change a rendered artifact.
type RenderKeyOpts struct {
	Format     string `json:"format"`
	ShowAttrs  bool   `json:"show_attrs"`
	ShowIDs    bool   `json:"show_ids"`
	RankDir    string `json:"rank_dir"`
	HideConsts bool   `json:"hide_consts"`
}

// Keyer builds cache keys.
type Keyer interface {
	// TransformKey identifies the output of running the pipeline on the
	// graph with the given content hash.
	TransformKey(graphHash string, opts TransformKeyOpts) string

	// RenderKey identifies a rendered artifact of the graph with the given
	// content hash.
	RenderKey(graphHash string, opts RenderKeyOpts) string
}

// DefaultKeyer produces "<type>:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// TransformKey implements Keyer.
func (DefaultKeyer) TransformKey(graphHash string, opts TransformKeyOpts) string {
	return hashKey(KeyTypeTransform, graphHash, opts)
}

// RenderKey implements Keyer.
func (DefaultKeyer) RenderKey(graphHash string, opts RenderKeyOpts) string {
	return hashKey(KeyTypeRender, graphHash, opts)
}
