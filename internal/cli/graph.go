package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackload/pkg/render"
)

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		output   string
		format   string
		detailed bool
		adds     []string
	)

	cmd := &cobra.Command{
		Use:   "graph <program>",
		Short: "Render the package graph of a program",
		Long: `Graph assembles a program and renders its package dependency graph.

The format follows the output extension (.svg, .dot) unless --format is
given; without an output file DOT is written to stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = outputFormat(output, "dot")
			}
			if !slices.Contains(graphFormats, format) {
				return fmt.Errorf("unsupported format %q (want dot or svg)", format)
			}

			locs, err := parseLocators(adds)
			if err != nil {
				return err
			}
			run, err := c.assemble(cmd.Context(), args[0], locs)
			if err != nil {
				return err
			}

			data := []byte(render.ToDOT(run.prog, run.sb, render.Options{Detailed: detailed}))
			if format == "svg" {
				if data, err = render.RenderSVG(cmd.Context(), string(data)); err != nil {
					return err
				}
			}

			if err := writeOutput(output, data, cmd.OutOrStdout()); err != nil {
				return err
			}
			if output != "" && output != "-" {
				printSuccess(cmd.ErrOrStderr(), "Rendered %d packages", run.sb.Len())
				printFile(cmd.ErrOrStderr(), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: dot or svg")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "include location and origin in node labels")
	cmd.Flags().StringArrayVar(&adds, "add", nil, "package to add after assembly (repeatable)")

	return cmd
}
