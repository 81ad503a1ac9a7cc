package cli

import (
	"fmt"
	"log/slog"

	"github.com/valter-silva-au/taskgraph/internal/core"
	"github.com/valter-silva-au/taskgraph/internal/observability"
)

// Service instances, set during app initialization in app.go.
var (
	BasePath string
	Projects *core.ProjectRegistry
	TasksFor func(project string) (core.TaskManager, error)
	EventLog observability.EventLog
	Logger   *slog.Logger
	Metrics  observability.MetricsCalculator
	Alerts   observability.AlertEngine
	Notifier observability.Notifier
)

// projectFlag holds the global --project flag value. Empty selects the
// default project.
var projectFlag string

// taskManager resolves the task manager of the project selected by --project.
func taskManager() (core.TaskManager, error) {
	if TasksFor == nil {
		return nil, fmt.Errorf("task service not initialized")
	}
	return TasksFor(projectFlag)
}
