package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/stackload/internal/config"
)

// graphFormats are the values graph --format accepts.
var graphFormats = []string{"dot", "svg"}

// registerCompletions adds value completion for flags with a fixed set of
// values. Subcommands must be registered first.
func registerCompletions(root *cobra.Command) {
	_ = root.MarkPersistentFlagDirname("cache-dir")
	_ = root.RegisterFlagCompletionFunc("index", cobra.FixedCompletions(
		[]string{config.BackendFile, config.BackendRedis, config.BackendNone}, cobra.ShellCompDirectiveNoFileComp))

	if graph, _, err := root.Find([]string{"graph"}); err == nil && graph != root {
		_ = graph.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(graphFormats, cobra.ShellCompDirectiveNoFileComp))
	}
}

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for stackload.

Completion covers every subcommand (assemble, provision, graph, cache,
serve), the backends accepted by --index and the formats accepted by
graph --format. Program arguments complete as files and directories.

Bash:
  $ source <(stackload completion bash)
  $ stackload completion bash > /etc/bash_completion.d/stackload

Zsh (with compinit enabled):
  $ stackload completion zsh > "${fpath[1]}/_stackload"

Fish:
  $ stackload completion fish > ~/.config/fish/completions/stackload.fish

PowerShell:
  PS> stackload completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		PersistentPreRunE:     func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}

	return cmd
}
