// Package cli implements the explore command-line tool.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/fairprice/internal/config"
	"github.com/JonMunkholm/fairprice/internal/core"
	"github.com/JonMunkholm/fairprice/internal/logging"
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if core.IsUserFacing(err) {
			msg := core.MapError(err)
			fmt.Fprintf(os.Stderr, "%s (Code: %s)\n", msg.Action, msg.Code)
		}
		return 1
	}
	return 0
}

// app carries state resolved in PersistentPreRunE to the subcommands.
type app struct {
	cfg    *config.Config
	output string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel string

	root := &cobra.Command{
		Use:           "explore",
		Short:         "Explore Brazilian health procurement CSV files",
		Long:          "Diagnoses, loads, cleans and profiles CSV files, printing one summary per file.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// A missing .env is normal outside development.
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("log-level") {
				cfg.Logging.Level = logLevel
			}
			logging.SetupWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)

			if err := validateOutputFormat(a.output); err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&a.output, "output", "o", "json", "Output format (json, yaml)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides LOG_LEVEL")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newDiagnoseCmd(a))
	root.AddCommand(newDictionaryCmd(a))

	return root
}

// newExplorer builds an Explorer from cfg, with any flag overrides already
// applied.
func newExplorer(cfg config.ExploreConfig) (*core.Explorer, error) {
	opts, err := core.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return core.NewExplorer(opts), nil
}
