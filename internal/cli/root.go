// Package cli implements schedctl, the operator command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ErlanBelekov/instance-scheduler/config"
	"github.com/ErlanBelekov/instance-scheduler/internal/bootstrap"
	ctxlog "github.com/ErlanBelekov/instance-scheduler/internal/log"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	flagLogLevel string

	logger *slog.Logger
)

// NewRootCmd creates the root command. Subcommands that touch the store or
// the compute API read the same environment as the daemon.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "schedctl",
		Short: "Operate the instance scheduler",
		Long:  "schedctl runs the scheduler once, moves configuration in and out of the store, and checks periods.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var level slog.Level
			if err := level.UnmarshalText([]byte(flagLogLevel)); err != nil {
				return fmt.Errorf("log level: %w", err)
			}
			logger = newLogger(cmd.ErrOrStderr(), level)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newRunCmd(),
		newImportCmd(),
		newExportCmd(),
		newEvalCmd(),
	)

	return root
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(ctxlog.NewContextHandler(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})))
}

// openDeps loads configuration from the environment and connects to the
// configured store. The caller must Close the result.
func openDeps(ctx context.Context) (*config.Config, *bootstrap.Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	deps, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, deps, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
