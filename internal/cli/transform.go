package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadolini/openvino/pkg/config"
	graphio "github.com/sadolini/openvino/pkg/io"
	"github.com/sadolini/openvino/pkg/pipeline"
)

// transformOpts holds the command-line flags for the transform command.
type transformOpts struct {
	output       string // output path; "-" writes JSON to stdout
	report       string // optional path for the JSON run report
	passes       string // comma-separated pass list overriding the config
	noCache      bool
	refresh      bool
	skipValidate bool
	skipCleanup  bool
}

// transformCommand creates the transform command.
func (c *CLI) transformCommand() *cobra.Command {
	opts := transformOpts{}

	cmd := &cobra.Command{
		Use:   "transform [graph file]",
		Short: "Run the pass pipeline over a graph",
		Long: `Run the configured passes over a JSON or YAML graph and write the result.

The output format follows the extension of --output (.json, .yaml, .yml).`,
		Example: `  mopass transform model.json -o model.opt.json
  mopass transform model.yaml -o - --passes gelu_erf
  mopass transform model.json -o out.yaml --config mopass.toml --report report.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTransform(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "output file (- for JSON on stdout)")
	cmd.Flags().StringVar(&opts.report, "report", "", "write the run report as JSON to this file")
	cmd.Flags().StringVar(&opts.passes, "passes", "", "comma-separated passes to run, in order")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the result cache")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "ignore cached results")
	cmd.Flags().BoolVar(&opts.skipValidate, "skip-validate", false, "skip invariant checks between passes")
	cmd.Flags().BoolVar(&opts.skipCleanup, "skip-cleanup", false, "keep nodes that no longer reach an output")
	_ = cmd.RegisterFlagCompletionFunc("passes", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return pipeline.KnownPasses(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// runTransform executes the transform command.
func (c *CLI) runTransform(ctx context.Context, input string, opts transformOpts) error {
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
	result, err := runner.Execute(ctx, g, c.pipelineOptions(cfg, opts))
	if err != nil {
		return err
	}

	if opts.output == "-" {
		if err := graphio.WriteJSON(result.Graph, os.Stdout); err != nil {
			return err
		}
	} else if err := graphio.Export(result.Graph, opts.output); err != nil {
		return err
	}
	if opts.report != "" {
		if err := writeReport(opts.report, result); err != nil {
			return err
		}
	}

	prog.done(fmt.Sprintf("Transformed %s", input))
	if opts.output != "-" {
		printResult(result)
		printFile(opts.output)
	}
	return nil
}

// pipelineOptions merges command-line flags over the configuration file.
func (c *CLI) pipelineOptions(cfg *config.Config, opts transformOpts) pipeline.Options {
	po := cfg.PipelineOptions()
	if opts.passes != "" {
		po.Passes = splitList(opts.passes)
	}
	po.Refresh = opts.refresh
	po.SkipValidate = po.SkipValidate || opts.skipValidate
	po.SkipCleanup = po.SkipCleanup || opts.skipCleanup
	po.Logger = c.Logger
	return po
}

func writeReport(path string, result *pipeline.Result) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

// splitList parses a comma-separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
