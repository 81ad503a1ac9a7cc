package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskgraph/internal/core"
	tgmcp "github.com/valter-silva-au/taskgraph/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  "Commands for running the taskgraph MCP (Model Context Protocol) server.",
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the taskgraph MCP server on stdio",
	Long: `Start the taskgraph MCP server on stdio transport.

The server exposes taskgraph as MCP tools that AI planning agents can call:
plan_tasks, list_tasks, get_task, query_task, execute_task, complete_task,
can_execute, update_task, delete_task, list_backups, restore_backup,
list_projects, create_project, switch_project, set_project_active,
delete_project, get_metrics and get_alerts.

Tools that take a "project" argument fall back to the default project,
or to --project when it is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil || TasksFor == nil {
			return fmt.Errorf("task service not initialized")
		}

		fallback := projectFlag
		tasks := func(project string) (core.TaskManager, error) {
			if project == "" {
				project = fallback
			}
			return TasksFor(project)
		}
		var opts []tgmcp.Option
		if Metrics != nil {
			opts = append(opts, tgmcp.WithMetrics(Metrics))
		}
		if Alerts != nil {
			opts = append(opts, tgmcp.WithAlerts(Alerts))
		}
		srv := tgmcp.NewServer(Projects, tasks, appVersion, opts...)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		if err := srv.Run(ctx); err != nil {
			return fmt.Errorf("running MCP server: %w", err)
		}

		return nil
	},
}

func init() {
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}
