package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

// completionWriters generates a completion script for the root command.
// Every script includes the dynamic completions: intent names after
// `gitnl intents` and the values of --format.
var completionWriters = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash": func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":  func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish": func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error {
		return root.GenPowerShellCompletionWithDesc(w)
	},
}

func completionShells() []string {
	shells := make([]string, 0, len(completionWriters))
	for s := range completionWriters {
		shells = append(shells, s)
	}
	sort.Strings(shells)
	return shells
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion script",
		Long: `Generate a completion script for gitnl.

Besides subcommands and flags, the scripts complete intent names for
"gitnl intents <TAB>" and the output formats for "--format <TAB>".

  bash:        source <(gitnl completion bash)
  zsh:         gitnl completion zsh > "${fpath[1]}/_gitnl"
  fish:        gitnl completion fish > ~/.config/fish/completions/gitnl.fish
  powershell:  gitnl completion powershell | Out-String | Invoke-Expression
`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: completionShells(),
		RunE: func(cmd *cobra.Command, args []string) error {
			gen, ok := completionWriters[args[0]]
			if !ok {
				return fmt.Errorf("unsupported shell %q (want one of %v)", args[0], completionShells())
			}
			return gen(cmd.Root(), cmd.OutOrStdout())
		},
	}
}

