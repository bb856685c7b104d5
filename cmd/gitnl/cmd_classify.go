package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shahar-caura/gitnl/internal/intent"
	"github.com/spf13/cobra"
)

type classifyOptions struct {
	single   bool
	noLLM    bool
	defaults bool
	format   string
}

func newClassifyCmd(logger *slog.Logger, root *rootOptions) *cobra.Command {
	opts := &classifyOptions{}

	cmd := &cobra.Command{
		Use:   "classify <request...>",
		Short: "Classify a request into one intent per clause",
		Example: `  gitnl classify "commit with message 'fix login' and push branch feature/foo"
  gitnl classify --single --format json undo my last commit`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClassify(cmd, logger, root, opts, args)
		},
	}

	cmd.Flags().BoolVar(&opts.single, "single", false, "treat the request as one clause")
	cmd.Flags().BoolVar(&opts.noLLM, "no-llm", false, "disable the LLM fallback")
	cmd.Flags().BoolVar(&opts.defaults, "fill-defaults", false, "fill missing messages and reset targets from config")
	cmd.Flags().StringVarP(&opts.format, "format", "o", formatAuto, "output format: auto, json or table")
	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{formatAuto, formatJSON, formatTable}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runClassify(cmd *cobra.Command, logger *slog.Logger, root *rootOptions, opts *classifyOptions, args []string) error {
	format, err := resolveFormat(opts.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	cfg, err := root.loadConfig()
	if err != nil {
		return err
	}

	r, err := wireRouter(cfg, logger, nil, opts.noLLM)
	if err != nil {
		return fmt.Errorf("building router: %w", err)
	}

	text := strings.Join(args, " ")
	logger.Debug("classifying request", "text", text, "single", opts.single)

	var results []intent.Result
	if opts.single {
		results = []intent.Result{r.Route(cmd.Context(), text)}
	} else {
		results = r.RouteMany(cmd.Context(), text)
	}
	if opts.defaults {
		results = fillDefaults(results, cfg.Defaults)
	}

	out := cmd.OutOrStdout()
	if format == formatJSON {
		if opts.single {
			return writeJSON(out, results[0])
		}
		return writeJSON(out, results)
	}
	return writeTable(out, results)
}
