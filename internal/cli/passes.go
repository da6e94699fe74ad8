package cli

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sadolini/openvino/pkg/pipeline"
)

// passesCommand creates the passes command.
func (c *CLI) passesCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "passes",
		Short: "List the available passes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			opts := cfg.PipelineOptions()

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(passList(opts))
			}

			fmt.Fprintln(cmd.OutOrStdout(), StyleTitle.Render("Passes"))
			for _, p := range passList(opts) {
				state := StyleSuccess.Render("on")
				if !p.Enabled {
					state = StyleDim.Render("off")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "  %s %s %s\n",
					StyleHighlight.Width(14).Render(p.Name), state, StyleDim.Render(p.Description))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print as JSON")
	return cmd
}

// passInfo describes one pass for listings.
type passInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Enabled     bool   `json:"enabled"`
}

// passList lists every known pass: the configured order first, then the
// passes not scheduled at all, which are reported as off.
func passList(opts pipeline.Options) []passInfo {
	var out []passInfo
	scheduled := map[string]bool{}
	order := opts.Passes
	if len(order) == 0 {
		order = pipeline.DefaultPasses
	}
	for _, name := range order {
		scheduled[name] = true
		out = append(out, passInfo{
			Name:        name,
			Description: pipeline.PassDescription[name],
			Enabled:     !slices.Contains(opts.Disabled, name),
		})
	}
	for _, name := range pipeline.KnownPasses() {
		if !scheduled[name] {
			out = append(out, passInfo{Name: name, Description: pipeline.PassDescription[name]})
		}
	}
	return out
}
