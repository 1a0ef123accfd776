package cli

import (
	"errors"

	"github.com/ErlanBelekov/instance-scheduler/internal/scheduler"
	"github.com/spf13/cobra"
)

var errPartialFailure = errors.New("run finished with issues")

func newRunCmd() *cobra.Command {
	var (
		dryRun bool
		tagKey string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate every tagged instance once and apply the result",
		Long: `Run the scheduler once against the current time and print the run summary.

Exits non-zero when the run aborted or finished with issues.

Examples:
  # See what would change without starting or stopping anything
  schedctl run --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, deps, err := openDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()

			if tagKey == "" {
				tagKey = cfg.TagKey
			}

			summary, err := deps.Orchestrator(dryRun || cfg.DryRun).Run(cmd.Context(), tagKey)
			if err != nil {
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), summary); err != nil {
				return err
			}
			if summary.Status != scheduler.StatusSuccess {
				return errPartialFailure
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Decide actions but do not call the compute API")
	cmd.Flags().StringVar(&tagKey, "tag", "", "Schedule tag key (defaults to SCHEDULER_TAG)")
	return cmd
}
