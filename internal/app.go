// Package internal provides the App struct that wires all components of
// taskgraph together and initializes the CLI layer.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/taskgraph/internal/cli"
	"github.com/valter-silva-au/taskgraph/internal/core"
	"github.com/valter-silva-au/taskgraph/internal/observability"
	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// EventLogFileName is the JSONL event log written under the base path.
const EventLogFileName = ".taskgraph_events.jsonl"

// App holds all service dependencies for taskgraph.
type App struct {
	BasePath string

	// Configuration
	ConfigMgr core.ConfigurationManager
	Config    *models.GlobalConfig

	// Observability
	Logger   *slog.Logger
	EventLog observability.EventLog
	events   core.EventLogger
	Metrics  observability.MetricsCalculator
	Alerts   observability.AlertEngine
	Notifier observability.Notifier

	// Projects
	Registry *core.ProjectRegistry
}

// NewApp creates and wires all components of taskgraph. basePath is the root
// directory where all data is stored (typically ~/.taskgraph). Log records go
// to logOut, which must not be stdout when serving MCP over stdio.
func NewApp(basePath string, logOut io.Writer) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, err
	}
	if err := app.ConfigMgr.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	app.Config = cfg

	// --- Observability ---
	if logOut == nil {
		logOut = os.Stderr
	}
	app.Logger = observability.NewLogger(cfg.LogLevel, logOut)

	if cfg.EventLogEnabled {
		app.EventLog, err = observability.NewJSONLEventLog(filepath.Join(basePath, EventLogFileName))
		if err != nil {
			// Non-fatal: run without an event log.
			app.Logger.Warn("event log disabled", "error", err)
			app.EventLog = nil
		}
	}
	if app.EventLog != nil {
		app.events = &eventLogAdapter{log: app.EventLog}
		app.Metrics = observability.NewMetricsCalculator(app.EventLog)
	}
	app.Alerts = observability.NewAlertEngine(alertThresholds(cfg.Notifications.Alerts))
	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL)
	}

	// --- Projects ---
	app.Registry = core.NewProjectRegistry(core.ProjectRegistryConfig{
		BasePath:         basePath,
		Store:            storage.NewRegistryStore(basePath),
		Initializer:      core.NewProjectInitializer(),
		ArchiveRetention: cfg.ArchiveRetention,
		Events:           app.events,
		Logger:           app.Logger,
	})
	if _, err := app.Registry.EnsureDefault(cfg.DefaultProject); err != nil {
		_ = app.Close()
		return nil, fmt.Errorf("initializing project registry: %w", err)
	}

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Projects = app.Registry
	cli.TasksFor = app.TaskManager
	cli.EventLog = app.EventLog
	cli.Logger = app.Logger
	cli.Metrics = app.Metrics
	cli.Alerts = app.Alerts
	cli.Notifier = app.Notifier

	return app, nil
}

// TaskManager returns a task service bound to the named project. An empty
// name selects the registry's default project.
func (a *App) TaskManager(project string) (core.TaskManager, error) {
	pc, err := a.Registry.Context(project)
	if err != nil {
		return nil, err
	}
	if _, err := core.NewProjectInitializer().Init(pc); err != nil {
		return nil, err
	}
	return core.NewTaskService(core.TaskServiceConfig{
		Project: pc,
		Store:   storage.NewTaskStore(pc.TaskFile),
		Backups: storage.NewBackupManager(pc.MemoryDir, a.Config.BackupRetention),
		Lock:    a.lockFor(pc),
		Events:  a.events,
		Logger:  a.Logger,
	}), nil
}

// alertThresholds overlays configured thresholds on the defaults. Zero
// values keep the default.
func alertThresholds(c models.AlertThresholdConfig) observability.AlertThresholds {
	th := observability.DefaultAlertThresholds()
	if c.BlockedHours > 0 {
		th.BlockedHours = c.BlockedHours
	}
	if c.StaleDays > 0 {
		th.StaleDays = c.StaleDays
	}
	if c.MaxBacklogSize > 0 {
		th.MaxBacklogSize = c.MaxBacklogSize
	}
	return th
}

// lockFor returns a LockFunc on the project's lock file that gives up after
// the configured lock timeout.
func (a *App) lockFor(pc models.ProjectContext) core.LockFunc {
	timeout := time.Duration(a.Config.LockTimeout) * time.Second
	return func(ctx context.Context) (func() error, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return storage.LockFile(ctx, pc.LockFile)
	}
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the taskgraph data directory. It checks the
// TASKGRAPH_HOME env var, then ~/.taskgraph, then falls back to the current
// directory.
func ResolveBasePath() string {
	if home := os.Getenv("TASKGRAPH_HOME"); home != "" {
		return home
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".taskgraph")
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// --- Adapters ---

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.Event{
		Time:    time.Now().UTC(),
		Level:   observability.LevelInfo,
		Type:    eventType,
		Message: eventType,
		Data:    data,
	})
}
