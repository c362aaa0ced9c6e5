package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fraudy/flowgraph/pkg/pipeline"
	"github.com/fraudy/flowgraph/pkg/theme"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for flowgraph.

  bash:        source <(flowgraph completion bash)
  zsh:         flowgraph completion zsh > "${fpath[1]}/_flowgraph"
  fish:        flowgraph completion fish | source
  powershell:  flowgraph completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
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
			return fmt.Errorf("unsupported shell %q", args[0])
		},
	}
}

// registerFlagCompletions offers the fixed value sets of the shared flags.
func registerFlagCompletions(cmd *cobra.Command) {
	fixed := func(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return values, cobra.ShellCompDirectiveNoFileComp
		}
	}
	if cmd.Flags().Lookup("theme") != nil {
		_ = cmd.RegisterFlagCompletionFunc("theme", fixed(string(theme.Light), string(theme.Dark)))
	}
	if cmd.Flags().Lookup("format") != nil {
		formats := make([]string, 0, len(pipeline.ValidFormats))
		for f := range pipeline.ValidFormats {
			formats = append(formats, f)
		}
		_ = cmd.RegisterFlagCompletionFunc("format", fixed(formats...))
	}
	if cmd.Flags().Lookup("engine") != nil {
		_ = cmd.RegisterFlagCompletionFunc("engine", fixed("neato", "fdp", "sfdp", "dot", "twopi"))
	}
}
