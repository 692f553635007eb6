package cli

import (
	"github.com/spf13/cobra"
)

// provisionCommand creates the provision command.
func (c *CLI) provisionCommand() *cobra.Command {
	var assemble bool

	cmd := &cobra.Command{
		Use:   "provision <url>",
		Short: "Download an archive and prepare its program descriptor",
		Long: `Provision downloads and unpacks the archive at url into the cache. An
archive without a program descriptor gets a default one whose boot
package is the archive root. Gist page URLs are accepted.

The path of the descriptor is printed, ready for "stackload assemble".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, closer, err := c.newAssembler(ctx)
			if err != nil {
				return err
			}
			defer closer.Close()

			spin := newSpinner(ctx, cmd.ErrOrStderr(), "Downloading "+args[0])
			spin.Start()
			path, err := a.ProvisionProgramForURL(ctx, args[0])
			if err != nil {
				spin.StopWithError(cmd.ErrOrStderr(), "Provisioning failed")
				return err
			}
			spin.StopWithSuccess(cmd.ErrOrStderr(), "Provisioned "+args[0])

			out := cmd.OutOrStdout()
			printFile(out, path)
			if !assemble {
				return nil
			}

			run, err := c.assemble(ctx, path, nil)
			if err != nil {
				return err
			}
			printSummary(out, run.summary)
			return nil
		},
	}

	cmd.Flags().BoolVar(&assemble, "assemble", false, "assemble the provisioned program")

	return cmd
}
