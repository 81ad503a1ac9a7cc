package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var alertsNotify bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show task health alerts for a project",
	Long: `Evaluate alert conditions against the project's tasks and display any
triggered alerts.

Alerts flag dependencies on deleted tasks, pending tasks blocked for too
long, in-progress tasks without recent activity, and an oversized backlog.
With --notify the alerts are also posted to the configured Slack webhook.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Alerts == nil {
			return fmt.Errorf("alert engine not initialized")
		}
		if alertsNotify && Notifier == nil {
			return fmt.Errorf("notifications are not configured (set notifications.enabled and notifications.slack.webhook_url)")
		}

		tm, err := taskManager()
		if err != nil {
			return err
		}
		tasks, err := tm.ListTasks()
		if err != nil {
			return err
		}
		alerts, err := Alerts.Evaluate(tasks)
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		out := cmd.OutOrStdout()
		project := tm.Project().Name
		if len(alerts) == 0 {
			fmt.Fprintf(out, "No active alerts for %s.\n", project)
			return nil
		}

		fmt.Fprintf(out, "%d active alert(s) for %s:\n\n", len(alerts), project)
		for _, alert := range alerts {
			severity := strings.ToUpper(string(alert.Severity))
			fmt.Fprintf(out, "  [%s] %s\n", severity, alert.Message)
			fmt.Fprintf(out, "         %s, triggered at %s\n\n", alert.Condition, alert.TriggeredAt.Format("2006-01-02 15:04 UTC"))
		}

		if alertsNotify {
			if err := Notifier.Notify(cmd.Context(), project, alerts); err != nil {
				return fmt.Errorf("sending notification: %w", err)
			}
			fmt.Fprintln(out, "Notification sent.")
		}
		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "Post the alerts to the configured Slack webhook")
	rootCmd.AddCommand(alertsCmd)
}
