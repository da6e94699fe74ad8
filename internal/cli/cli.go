// Package cli implements the mopass command-line interface.
//
// # Commands
//
// The main commands are:
//   - transform: Run the pass pipeline over a graph file
//   - render: Draw a graph as DOT, SVG or PNG
//   - serve: Expose the pipeline over HTTP
//   - passes: List the available passes
//   - cache: Manage the result cache
//
// # Configuration
//
// Settings come from a TOML file given with --config (see package config).
// Command-line flags override the file.
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging, which
// includes one line per candidate match inside the passes.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/sadolini/openvino/pkg/buildinfo"
	"github.com/sadolini/openvino/pkg/cache"
	"github.com/sadolini/openvino/pkg/config"
	"github.com/sadolini/openvino/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "mopass"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	// ConfigPath is the --config flag; empty means built-in defaults.
	ConfigPath string
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "mopass rewrites neural network IR graphs",
		Long:         `mopass runs pattern-driven transformation passes over neural network IR graphs: it fuses erf-based GeLU subgraphs and gates context-dependent state writes until their Splice context has filled.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "TOML configuration file")

	// Register all subcommands
	root.AddCommand(c.transformCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.passesCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration & Runner Factory
// =============================================================================

// loadConfig reads --config, or returns the defaults when it is unset.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.ConfigPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config", "path", c.ConfigPath)
	return cfg, nil
}

// openCache opens the configured backend, or a NullCache when noCache is
// set.
func (c *CLI) openCache(ctx context.Context, cfg *config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	return cfg.OpenCache(ctx)
}

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg *config.Config, noCache bool) (*pipeline.Runner, error) {
	cc, err := c.openCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, err
	}
	r := pipeline.NewRunner(cc, cfg.Keyer(), c.Logger)
	r.TTL = ttl
	return r, nil
}
