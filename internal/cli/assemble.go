package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stackload/pkg/assembler"
	"github.com/matzehuels/stackload/pkg/locator"
	"github.com/matzehuels/stackload/pkg/program"
	"github.com/matzehuels/stackload/pkg/sandbox"
)

// assembleCommand creates the assemble command.
func (c *CLI) assembleCommand() *cobra.Command {
	var (
		adds   []string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "assemble <program>",
		Short: "Resolve a program and list its packages",
		Long: `Assemble loads a program descriptor (program.json, program.toml, or a
package directory), fetches every remote package it reaches and prints
the resulting package set.

Additional packages can be added to the assembled program with --add,
given as a path, an archive URL, or a JSON locator:

  stackload assemble ./app --add ../plugin --add '{"provider":"github","name":"org/lib"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			locs, err := parseLocators(adds)
			if err != nil {
				return err
			}
			run, err := c.assemble(cmd.Context(), args[0], locs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, loc := range run.skipped {
				printWarning(cmd.ErrOrStderr(), "skipped unavailable package %s", loc.Short())
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(run.summary)
			}
			printSummary(out, run.summary)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&adds, "add", nil, "package to add after assembly (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")

	return cmd
}

// assembly is the outcome of one assemble run.
type assembly struct {
	prog    *program.Program
	sb      *sandbox.Sandbox
	summary assembler.Summary
	skipped []locator.Locator
}

// assemble runs a full assembly of uri into a fresh sandbox, then adds
// each of adds.
func (c *CLI) assemble(ctx context.Context, uri string, adds []locator.Locator) (*assembly, error) {
	a, closer, err := c.newAssembler(ctx)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	p := newProgress(c.Logger)
	sb := sandbox.New(sandbox.WithLogger(c.Logger))
	prog, err := a.AssembleProgram(ctx, sb, uri, assembler.AssembleOptions{})
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", uri, err)
	}

	run := &assembly{prog: prog, sb: sb}
	for _, loc := range adds {
		pkg, _, err := a.AddPackageToProgram(ctx, sb, prog, loc)
		if err != nil {
			return nil, fmt.Errorf("add %s: %w", loc.Short(), err)
		}
		if pkg == nil {
			run.skipped = append(run.skipped, loc)
		}
	}

	run.summary = assembler.Summarize(prog, sb)
	p.done("Assembled %d packages", sb.Len())
	return run, nil
}

func parseLocators(args []string) ([]locator.Locator, error) {
	locs := make([]locator.Locator, 0, len(args))
	for _, arg := range args {
		loc, err := parseLocator(arg)
		if err != nil {
			return nil, err
		}
		locs = append(locs, loc)
	}
	return locs, nil
}
