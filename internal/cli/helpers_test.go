package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/valter-silva-au/taskgraph/internal/core"
	"github.com/valter-silva-au/taskgraph/internal/observability"
	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// setupCLI points the package-level services at a fresh registry in a temp
// dir and restores the previous values when the test ends.
func setupCLI(t *testing.T) *core.ProjectRegistry {
	t.Helper()
	origProjects, origTasksFor, origLogger := Projects, TasksFor, Logger
	t.Cleanup(func() {
		Projects, TasksFor, Logger = origProjects, origTasksFor, origLogger
	})

	logger := observability.NewDiscardLogger()
	reg := core.NewProjectRegistry(core.ProjectRegistryConfig{
		BasePath: t.TempDir(),
		Logger:   logger,
	})
	if _, err := reg.EnsureDefault("main"); err != nil {
		t.Fatalf("creating default project: %v", err)
	}

	Projects = reg
	Logger = logger
	TasksFor = func(project string) (core.TaskManager, error) {
		pc, err := reg.Context(project)
		if err != nil {
			return nil, err
		}
		return core.NewTaskService(core.TaskServiceConfig{
			Project: pc,
			Store:   storage.NewTaskStore(pc.TaskFile),
			Backups: storage.NewBackupManager(pc.MemoryDir, models.RetentionPolicy{}),
			Lock: func(ctx context.Context) (func() error, error) {
				return storage.LockFile(ctx, pc.LockFile)
			},
			Logger: logger,
		}), nil
	}
	return reg
}

// runCLI executes the root command with args and stdin, returning everything
// written to stdout and stderr.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := Execute()
	return out.String(), err
}

// resetFlags returns every flag of cmd and its subcommands to its default so
// values do not leak between executions.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if !f.Changed {
			return
		}
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

// planFixture submits a batch through the CLI and returns the created tasks
// by name.
func planFixture(t *testing.T, yamlBatch string) map[string]models.Task {
	t.Helper()
	if _, err := runCLI(t, yamlBatch, "plan", "-"); err != nil {
		t.Fatalf("plan failed: %v", err)
	}
	tm, err := TasksFor("")
	if err != nil {
		t.Fatal(err)
	}
	tasks, err := tm.ListTasks()
	if err != nil {
		t.Fatal(err)
	}
	byName := make(map[string]models.Task, len(tasks))
	for _, task := range tasks {
		byName[task.Name] = task
	}
	return byName
}
