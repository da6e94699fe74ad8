package cli

import (
	"github.com/spf13/cobra"

	"github.com/sadolini/openvino/internal/server"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the transform API over HTTP",
		Long: `Serve the pipeline over HTTP until interrupted.

Endpoints:
  GET  /healthz
  GET  /v1/passes
  POST /v1/transform   JSON graph in, {graph, report} out
  POST /v1/render      JSON graph in, dot/svg/png out`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			runner, err := c.newRunner(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			defer runner.Close()

			srv := server.New(runner, cfg.PipelineOptions(), c.Logger)
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	return cmd
}
