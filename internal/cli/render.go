package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	graphio "github.com/sadolini/openvino/pkg/io"
	"github.com/sadolini/openvino/pkg/pipeline"
	"github.com/sadolini/openvino/pkg/render/dot"
)

// renderOpts holds the command-line flags for the render command.
type renderOpts struct {
	output     string // output file; its extension picks the format
	format     string // explicit format, overriding the extension
	showAttrs  bool   // list attributes inside node labels
	showIDs    bool   // prefix labels with node IDs
	hideConsts bool   // leave Const ops out of the drawing
	rankDir    string // Graphviz rankdir: TB or LR
	noCache    bool
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	opts := renderOpts{}

	cmd := &cobra.Command{
		Use:   "render [graph file]",
		Short: "Draw a graph as DOT, SVG or PNG",
		Long: `Draw a JSON or YAML graph with Graphviz.

Ops are drawn as boxes and data nodes as ellipses. Inserted context gates
and their counters are highlighted.`,
		Example: `  mopass render model.json -o model.svg
  mopass render model.json -o model.dot --show-attrs
  mopass render model.json -o model.png --hide-consts --rankdir LR`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRender(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default: input name with .svg)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "output format: dot, svg, png (default: from extension)")
	cmd.Flags().BoolVar(&opts.showAttrs, "show-attrs", false, "show node attributes")
	cmd.Flags().BoolVar(&opts.showIDs, "show-ids", false, "show node IDs")
	cmd.Flags().BoolVar(&opts.hideConsts, "hide-consts", false, "hide Const ops")
	cmd.Flags().StringVar(&opts.rankDir, "rankdir", "TB", "layout direction: TB or LR")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the render cache")

	return cmd
}

// runRender executes the render command.
func (c *CLI) runRender(ctx context.Context, input string, opts renderOpts) error {
	if opts.output == "" {
		opts.output = strings.TrimSuffix(input, filepath.Ext(input)) + ".svg"
	}
	format := opts.format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(opts.output), ".")
	}
	if err := pipeline.ValidateRenderFormat(format); err != nil {
		return err
	}
	if opts.rankDir != "TB" && opts.rankDir != "LR" {
		return fmt.Errorf("invalid rankdir %q (must be TB or LR)", opts.rankDir)
	}

	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	g, err := graphio.Import(input)
	if err != nil {
		return err
	}
	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	prog := newProgress(c.Logger)
	out, cached, err := runner.Render(ctx, g, format, dot.Options{
		ShowAttrs:  opts.showAttrs,
		ShowIDs:    opts.showIDs,
		HideConsts: opts.hideConsts,
		RankDir:    opts.rankDir,
	})
	if err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, out, 0644); err != nil {
		return err
	}

	prog.done(fmt.Sprintf("Rendered %s", opts.output))
	printStats(g.NodeCount(), g.EdgeCount(), cached)
	printFile(opts.output)
	return nil
}
