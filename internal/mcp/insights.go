package mcp

import (
	"context"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/taskgraph/internal/observability"
)

type getMetricsInput struct {
	Since   string `json:"since,omitempty" jsonschema:"look-back window such as 7d or 24h; defaults to 7d"`
	Project string `json:"project,omitempty" jsonschema:"restrict to one project; all projects when empty"`
}

type metricsOutput struct {
	Since           string         `json:"since"`
	Project         string         `json:"project,omitempty"`
	Batches         int            `json:"batches"`
	BatchesByMode   map[string]int `json:"batches_by_mode,omitempty"`
	TasksCreated    int            `json:"tasks_created"`
	TasksUpdated    int            `json:"tasks_updated"`
	TasksRemoved    int            `json:"tasks_removed"`
	TasksStarted    int            `json:"tasks_started"`
	TasksCompleted  int            `json:"tasks_completed"`
	TasksDeleted    int            `json:"tasks_deleted"`
	BackupsWritten  int            `json:"backups_written"`
	BackupsRestored int            `json:"backups_restored"`
	EventCount      int            `json:"event_count"`
	OldestEvent     string         `json:"oldest_event,omitempty"`
	NewestEvent     string         `json:"newest_event,omitempty"`
}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Project string        `json:"project"`
	Alerts  []alertOutput `json:"alerts"`
	Count   int           `json:"count"`
}

// emptyMetricsOutput is returned alongside error results. Structured output
// is validated against the schema even then, so maps must not be nil.
func emptyMetricsOutput() metricsOutput {
	return metricsOutput{BatchesByMode: map[string]int{}}
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	if s.metrics == nil {
		return errorResult("metrics are unavailable: the event log is disabled"), emptyMetricsOutput(), nil
	}
	window := input.Since
	if window == "" {
		window = "7d"
	}
	since, err := observability.ParseSince(window, time.Now().UTC())
	if err != nil {
		return errorResult("validation: " + err.Error()), emptyMetricsOutput(), nil
	}

	m, err := s.metrics.Calculate(since, input.Project)
	if err != nil {
		return toolError(err), emptyMetricsOutput(), nil
	}

	out := metricsOutput{
		Since:           since.Format(time.RFC3339),
		Project:         input.Project,
		Batches:         m.Batches,
		BatchesByMode:   m.BatchesByMode,
		TasksCreated:    m.TasksCreated,
		TasksUpdated:    m.TasksUpdated,
		TasksRemoved:    m.TasksRemoved,
		TasksStarted:    m.TasksStarted,
		TasksCompleted:  m.TasksCompleted,
		TasksDeleted:    m.TasksDeleted,
		BackupsWritten:  m.BackupsWritten,
		BackupsRestored: m.BackupsRestored,
		EventCount:      m.EventCount,
	}
	if m.OldestEvent != nil {
		out.OldestEvent = m.OldestEvent.Format(time.RFC3339)
	}
	if m.NewestEvent != nil {
		out.NewestEvent = m.NewestEvent.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, input projectScopedInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alerts == nil {
		return errorResult("alerts are unavailable"), getAlertsOutput{}, nil
	}
	tm, err := s.tasks(input.Project)
	if err != nil {
		return toolError(err), getAlertsOutput{}, nil
	}
	tasks, err := tm.ListTasks()
	if err != nil {
		return toolError(err), getAlertsOutput{}, nil
	}
	alerts, err := s.alerts.Evaluate(tasks)
	if err != nil {
		return toolError(err), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Project: tm.Project().Name,
		Alerts:  make([]alertOutput, len(alerts)),
		Count:   len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}
