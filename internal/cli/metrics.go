package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskgraph/internal/observability"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

var (
	metricsJSON  bool
	metricsSince string
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Display reconciliation and task metrics",
	Long: `Display aggregated metrics derived from the event log.

Metrics include batches by update mode, tasks created, updated, removed,
started, completed and deleted, and backups written and restored. With
--project only that project's events are counted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Metrics == nil {
			return fmt.Errorf("metrics calculator not initialized (the event log may be disabled)")
		}

		since, err := observability.ParseSince(metricsSince, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("parsing --since: %w", err)
		}

		m, err := Metrics.Calculate(since, projectFlag)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		out := cmd.OutOrStdout()
		if metricsJSON {
			data, err := json.MarshalIndent(m, "", "  ")
			if err != nil {
				return fmt.Errorf("formatting metrics as JSON: %w", err)
			}
			fmt.Fprintln(out, string(data))
			return nil
		}

		scope := "all projects"
		if projectFlag != "" {
			scope = projectFlag
		}
		fmt.Fprintf(out, "Metrics for %s (since %s)\n\n", scope, since.Format("2006-01-02"))
		fmt.Fprintf(out, "  %-24s %d\n", "Events recorded:", m.EventCount)
		fmt.Fprintf(out, "  %-24s %d\n", "Batches:", m.Batches)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks created:", m.TasksCreated)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks updated:", m.TasksUpdated)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks removed:", m.TasksRemoved)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks started:", m.TasksStarted)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks completed:", m.TasksCompleted)
		fmt.Fprintf(out, "  %-24s %d\n", "Tasks deleted:", m.TasksDeleted)
		fmt.Fprintf(out, "  %-24s %d\n", "Backups written:", m.BackupsWritten)
		fmt.Fprintf(out, "  %-24s %d\n", "Backups restored:", m.BackupsRestored)

		if len(m.BatchesByMode) > 0 {
			fmt.Fprintln(out, "\n  Batches by mode:")
			for _, mode := range models.AllUpdateModes {
				if n := m.BatchesByMode[string(mode)]; n > 0 {
					fmt.Fprintf(out, "    %-20s %d\n", string(mode)+":", n)
				}
			}
		}

		if m.OldestEvent != nil {
			fmt.Fprintf(out, "\n  %-24s %s\n", "Oldest event:", m.OldestEvent.Format(time.RFC3339))
		}
		if m.NewestEvent != nil {
			fmt.Fprintf(out, "  %-24s %s\n", "Newest event:", m.NewestEvent.Format(time.RFC3339))
		}

		return nil
	},
}

func init() {
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "Output metrics as JSON")
	metricsCmd.Flags().StringVar(&metricsSince, "since", "7d", "Time window for metrics (e.g. 7d, 30d, 24h)")
	rootCmd.AddCommand(metricsCmd)
}
