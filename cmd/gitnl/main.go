package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/shahar-caura/gitnl/internal/config"
	"github.com/spf13/cobra"
)

var version = "dev"

// logLevel is shared by the root handler so --verbose can lower it after
// flags are parsed.
var logLevel = new(slog.LevelVar)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	config.LoadEnvFiles(config.DefaultEnvPaths()...)

	if err := newRootCmd(logger).Execute(); err != nil {
		logger.Error("gitnl failed", "error", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
	verbose    bool
}

// loadConfig reads --config, or gitnl.yaml / gitnl.toml from the working
// directory when present, or the built-in defaults.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	path := o.configPath
	if path == "" {
		for _, candidate := range []string{"gitnl.yaml", "gitnl.yml", "gitnl.toml"} {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newRootCmd(logger *slog.Logger) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "gitnl [request...]",
		Short: "Classify natural-language git requests into intents",
		Long: `gitnl turns requests like "commit with message 'fix login' and push branch feature/foo"
into structured git intents with extracted branch, message and target slots.

Anything that is not a subcommand is classified directly:

  gitnl undo my last commit`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.verbose {
				logLevel.Set(slog.LevelDebug)
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runClassify(cmd, logger, opts, &classifyOptions{format: formatAuto}, args)
		},
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML or TOML config file")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log cascade decisions")

	root.AddCommand(
		newClassifyCmd(logger, opts),
		newIntentsCmd(opts),
		newWatchCmd(logger, opts),
		newCompletionCmd(),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gitnl version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gitnl %s\n", strings.TrimSpace(version))
		},
	}
}
