package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskgraph/internal/core"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Inspect and drive tasks (list, get, search, start, complete, update, delete)",
	Long: `Task commands operate on the project selected by --project.

A task moves from pending to in_progress to completed. It can only start once
every task it depends on is completed.`,
}

var taskListStatusFlag []string

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks in creation order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tm, err := taskManager()
		if err != nil {
			return err
		}
		statuses := make([]models.TaskStatus, 0, len(taskListStatusFlag))
		for _, s := range taskListStatusFlag {
			st := models.TaskStatus(s)
			if !st.Valid() {
				return fmt.Errorf("invalid status %q: must be one of pending, in_progress, completed", s)
			}
			statuses = append(statuses, st)
		}
		tasks, err := tm.ListTasks(statuses...)
		if err != nil {
			return fmt.Errorf("listing tasks: %w", err)
		}
		printTaskTable(cmd.OutOrStdout(), tasks)
		return nil
	},
}

var taskGetCmd = &cobra.Command{
	Use:   "get <task-id>",
	Short: "Show the full details of a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tm, err := taskManager()
		if err != nil {
			return err
		}
		task, err := tm.GetTask(args[0])
		if err != nil {
			return err
		}
		printTask(cmd.OutOrStdout(), *task)
		return nil
	},
}

var taskSearchAllFlag bool

var taskSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find tasks by ID or keyword",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tm, err := taskManager()
		if err != nil {
			return err
		}
		tasks, err := tm.SearchTasks(args[0], taskSearchAllFlag)
		if err != nil {
			return fmt.Errorf("searching tasks: %w", err)
		}
		printTaskTable(cmd.OutOrStdout(), tasks)
		return nil
	},
}

var taskStartCmd = &cobra.Command{
	Use:   "start <task-id>",
	Short: "Start a pending task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tm, err := taskManager()
		if err != nil {
			return err
		}
		task, err := tm.StartTask(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Started task %s (%s)\n", task.ID, task.Name)
		return nil
	},
}

var taskCompleteSummaryFlag string

var taskCompleteCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Complete an in-progress task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tm, err := taskManager()
		if err != nil {
			return err
		}
		task, err := tm.CompleteTask(cmd.Context(), args[0], taskCompleteSummaryFlag)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Completed task %s (%s)\n", task.ID, task.Name)
		return nil
	},
}

var taskCanExecCmd = &cobra.Command{
	Use:   "can-exec <task-id>",
	Short: "Report whether a task can start",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tm, err := taskManager()
		if err != nil {
			return err
		}
		ex, err := tm.CanExecute(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if ex.OK {
			fmt.Fprintf(out, "Task %s can start.\n", args[0])
			return nil
		}
		fmt.Fprintf(out, "Task %s is %s by:\n", args[0], statusBlocked.Render("blocked"))
		for _, id := range ex.BlockingIDs {
			fmt.Fprintf(out, "  %s\n", id)
		}
		return nil
	},
}

var taskUpdateCmd = &cobra.Command{
	Use:   "update <task-id>",
	Short: "Update a task's content",
	Long: `Update the content of a task. Only flags that are given change the task.

--depends-on replaces the dependency list; pass it several times or as a
comma-separated list of task IDs or names. Completed tasks only accept
--summary.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tm, err := taskManager()
		if err != nil {
			return err
		}

		var update core.TaskUpdate
		flags := cmd.Flags()
		str := func(name string, dst **string) {
			if flags.Changed(name) {
				v, _ := flags.GetString(name)
				*dst = &v
			}
		}
		str("name", &update.Name)
		str("description", &update.Description)
		str("notes", &update.Notes)
		str("guide", &update.ImplementationGuide)
		str("verification", &update.VerificationCriteria)
		str("summary", &update.Summary)
		if flags.Changed("depends-on") {
			deps, _ := flags.GetStringSlice("depends-on")
			update.Dependencies = &deps
		}

		task, err := tm.UpdateContent(cmd.Context(), args[0], update)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Updated task %s (%s)\n", task.ID, task.Name)
		return nil
	},
}

var taskDeleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Delete a task nothing depends on",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tm, err := taskManager()
		if err != nil {
			return err
		}
		if err := tm.DeleteTask(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
		return nil
	},
}

func init() {
	taskListCmd.Flags().StringSliceVar(&taskListStatusFlag, "status", nil,
		"only show tasks with these statuses ("+strings.Join(statusNames(), ", ")+")")
	taskSearchCmd.Flags().BoolVarP(&taskSearchAllFlag, "all", "a", false, "include completed tasks")
	taskCompleteCmd.Flags().StringVarP(&taskCompleteSummaryFlag, "summary", "s", "", "what was done and how it was verified")
	_ = taskCompleteCmd.MarkFlagRequired("summary")

	taskUpdateCmd.Flags().String("name", "", "new task name")
	taskUpdateCmd.Flags().String("description", "", "new description")
	taskUpdateCmd.Flags().String("notes", "", "new notes")
	taskUpdateCmd.Flags().String("guide", "", "new implementation guide")
	taskUpdateCmd.Flags().String("verification", "", "new verification criteria")
	taskUpdateCmd.Flags().String("summary", "", "new summary")
	taskUpdateCmd.Flags().StringSlice("depends-on", nil, "replacement dependencies (IDs or names)")

	taskCmd.AddCommand(taskListCmd, taskGetCmd, taskSearchCmd, taskStartCmd,
		taskCompleteCmd, taskCanExecCmd, taskUpdateCmd, taskDeleteCmd)
	rootCmd.AddCommand(taskCmd)
}

func statusNames() []string {
	names := make([]string, len(models.AllStatuses))
	for i, s := range models.AllStatuses {
		names[i] = string(s)
	}
	return names
}
