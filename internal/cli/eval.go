package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ErlanBelekov/instance-scheduler/internal/domain"
	"github.com/ErlanBelekov/instance-scheduler/internal/period"
	"github.com/spf13/cobra"
)

func newEvalCmd() *cobra.Command {
	var (
		days     string
		start    string
		stop     string
		schedule string
		at       string
	)

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Show which action a period or schedule asks for",
		Long: `Evaluate a period given on the command line, or a stored schedule, at an
instant. Nothing is started or stopped. Times are UTC.

Examples:
  schedctl eval --days MON-FRI --start 09:00 --stop 17:00 --at 2024-01-01T09:00:00Z
  schedctl eval --schedule office-hours`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			periodGiven := days != "" || start != "" || stop != ""
			if periodGiven == (schedule != "") {
				return errors.New("give either --schedule or a period (--days, --start, --stop)")
			}

			instant := time.Now().UTC()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				instant = t.UTC()
			}

			if periodGiven {
				p := domain.Period{Name: "cli", DaysOfWeek: days, StartTime: start, StopTime: stop}
				action, issues := period.NewMatcher(logger).Evaluate(p, instant)
				printOutcome(cmd.OutOrStdout(), instant, domain.EvaluationOutcome{Action: action, Issues: issues})
				return nil
			}

			_, deps, err := openDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer deps.Close()

			out, err := deps.Orchestrator(true).Check(cmd.Context(), schedule, instant)
			if err != nil {
				return err
			}
			printOutcome(cmd.OutOrStdout(), instant, out)
			return nil
		},
	}

	cmd.Flags().StringVar(&days, "days", "", "Days of week, e.g. MON-FRI or SAT,SUN")
	cmd.Flags().StringVar(&start, "start", "", "Start time HH:MM")
	cmd.Flags().StringVar(&stop, "stop", "", "Stop time HH:MM")
	cmd.Flags().StringVar(&schedule, "schedule", "", "Stored schedule name")
	cmd.Flags().StringVar(&at, "at", "", "RFC 3339 instant (defaults to now)")
	return cmd
}

func printOutcome(w io.Writer, at time.Time, out domain.EvaluationOutcome) {
	fmt.Fprintf(w, "at:     %s\n", at.Format(time.RFC3339))
	fmt.Fprintf(w, "action: %s\n", out.Action)
	if out.MatchedPeriod != "" {
		fmt.Fprintf(w, "period: %s\n", out.MatchedPeriod)
	}
	if !out.Issues.Empty() {
		fmt.Fprintf(w, "issues:\n  %s\n", strings.Join(out.Issues.Messages(), "\n  "))
	}
}
