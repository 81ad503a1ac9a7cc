package observability

import (
	"fmt"
	"time"
)

// Metrics holds calculated metrics derived from the event log.
type Metrics struct {
	Batches         int            `json:"batches"`
	BatchesByMode   map[string]int `json:"batches_by_mode"`
	TasksCreated    int            `json:"tasks_created"`
	TasksUpdated    int            `json:"tasks_updated"`
	TasksRemoved    int            `json:"tasks_removed"`
	TasksStarted    int            `json:"tasks_started"`
	TasksCompleted  int            `json:"tasks_completed"`
	TasksDeleted    int            `json:"tasks_deleted"`
	BackupsWritten  int            `json:"backups_written"`
	BackupsRestored int            `json:"backups_restored"`
	EventCount      int            `json:"event_count"`
	OldestEvent     *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent     *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	// Calculate aggregates events since the given time. A non-empty project
	// restricts the aggregation to that project's events.
	Calculate(since time.Time, project string) (*Metrics, error)
}

// metricsCalculator implements MetricsCalculator by reading from an EventLog.
type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a new MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

func (mc *metricsCalculator) Calculate(since time.Time, project string) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since, Project: project})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{BatchesByMode: make(map[string]int)}
	m.EventCount = len(events)

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case "task.batch_reconciled":
			m.Batches++
			if mode, ok := event.Data["mode"].(string); ok {
				m.BatchesByMode[mode]++
			}
			m.TasksCreated += intField(event.Data, "created")
			m.TasksUpdated += intField(event.Data, "updated")
			m.TasksRemoved += intField(event.Data, "removed")
			if backup, _ := event.Data["backup"].(string); backup != "" {
				m.BackupsWritten++
			}
		case "task.status_changed":
			switch event.Data["new_status"] {
			case "in_progress":
				m.TasksStarted++
			case "completed":
				m.TasksCompleted++
			}
		case "task.deleted":
			m.TasksDeleted++
		case "backup.restored":
			m.BackupsRestored++
		}
	}

	return m, nil
}

// intField reads a count from event data. Counts come back from JSON as
// float64 but are ints when the event was never serialized.
func intField(data map[string]any, key string) int {
	switch v := data[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}
