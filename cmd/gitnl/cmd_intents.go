package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/sahilm/fuzzy"
	"github.com/shahar-caura/gitnl/internal/intent"
	"github.com/spf13/cobra"
)

func newIntentsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "intents [filter]",
		Short: "List the supported intents with their slots and semantic thresholds",
		Args:  cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return intentNames(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			return cmdIntents(cmd.OutOrStdout(), root, filter)
		},
	}
}

func intentNames() []string {
	all := intent.All()
	names := make([]string, len(all))
	for i, in := range all {
		names[i] = string(in)
	}
	return names
}

// filterIntents returns the intents fuzzily matching filter, best first.
// An empty filter returns every intent in catalog order.
func filterIntents(filter string) []intent.Intent {
	if filter == "" {
		return intent.All()
	}
	matches := fuzzy.Find(filter, intentNames())
	out := make([]intent.Intent, len(matches))
	for i, m := range matches {
		out[i] = intent.Intent(m.Str)
	}
	return out
}

func cmdIntents(w io.Writer, root *rootOptions, filter string) error {
	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}
	thresholds := thresholdsFor(cfg)

	matched := filterIntents(filter)
	if len(matched) == 0 {
		return fmt.Errorf("no intent matches %q", filter)
	}

	fmt.Fprintf(w, "%-22s  %-16s  %-9s  %s\n", "INTENT", "SLOTS", "THRESHOLD", "BRANCH DEFAULT")
	for _, in := range matched {
		slots, _ := intent.AllowedSlots(in)
		names := make([]string, len(slots))
		for i, s := range slots {
			names[i] = string(s)
		}
		slotList := strings.Join(names, ",")
		if slotList == "" {
			slotList = "-"
		}
		branchDefault := "-"
		if intent.RequiresBranch(in) {
			branchDefault = cfg.Defaults.Branch
		}
		fmt.Fprintf(w, "%-22s  %-16s  %-9.2f  %s\n", in, slotList, thresholds.For(in), branchDefault)
	}
	return nil
}
