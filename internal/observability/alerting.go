package observability

import (
	"fmt"
	"sort"
	"time"

	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when alerts should fire.
type AlertThresholds struct {
	BlockedHours   int `yaml:"blocked_threshold_hours" json:"blocked_threshold_hours" mapstructure:"blocked_threshold_hours"`
	StaleDays      int `yaml:"stale_threshold_days" json:"stale_threshold_days" mapstructure:"stale_threshold_days"`
	MaxBacklogSize int `yaml:"max_backlog_size" json:"max_backlog_size" mapstructure:"max_backlog_size"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		BlockedHours:   24,
		StaleDays:      3,
		MaxBacklogSize: 25,
	}
}

// AlertEngine evaluates alert conditions against a project's tasks.
type AlertEngine interface {
	Evaluate(tasks []models.Task) ([]Alert, error)
}

type alertEngine struct {
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates a new AlertEngine with the given thresholds.
func NewAlertEngine(thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate checks every alert condition and returns the triggered alerts,
// most severe first.
func (ae *alertEngine) Evaluate(tasks []models.Task) ([]Alert, error) {
	now := ae.now()
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	var alerts []Alert
	alerts = append(alerts, ae.checkMissingDependencies(tasks, byID, now)...)
	alerts = append(alerts, ae.checkBlockedTasks(tasks, byID, now)...)
	alerts = append(alerts, ae.checkStaleTasks(tasks, now)...)
	alerts = append(alerts, ae.checkBacklogSize(tasks, now)...)

	sort.SliceStable(alerts, func(i, j int) bool {
		return severityRank(alerts[i].Severity) < severityRank(alerts[j].Severity)
	})
	return alerts, nil
}

// checkMissingDependencies flags unfinished tasks that depend on a task that
// no longer exists. They can never start.
func (ae *alertEngine) checkMissingDependencies(tasks []models.Task, byID map[string]models.Task, now time.Time) []Alert {
	var alerts []Alert
	for _, t := range tasks {
		if t.Status == models.StatusCompleted {
			continue
		}
		for _, d := range t.Dependencies {
			if _, ok := byID[d.TaskID]; ok {
				continue
			}
			alerts = append(alerts, Alert{
				ID:          fmt.Sprintf("missing-%s-%s", t.ID, d.TaskID),
				Condition:   "dependency_missing",
				Severity:    SeverityHigh,
				Message:     fmt.Sprintf("task %s (%s) depends on %s, which no longer exists", t.ID, t.Name, d.TaskID),
				TriggeredAt: now,
			})
		}
	}
	return alerts
}

// checkBlockedTasks looks for pending tasks that have waited on incomplete
// dependencies longer than the threshold.
func (ae *alertEngine) checkBlockedTasks(tasks []models.Task, byID map[string]models.Task, now time.Time) []Alert {
	threshold := time.Duration(ae.thresholds.BlockedHours) * time.Hour
	var alerts []Alert
	for _, t := range tasks {
		if t.Status != models.StatusPending || now.Sub(t.CreatedAt) <= threshold {
			continue
		}
		waiting := 0
		for _, d := range t.Dependencies {
			if dep, ok := byID[d.TaskID]; ok && dep.Status != models.StatusCompleted {
				waiting++
			}
		}
		if waiting == 0 {
			continue
		}
		alerts = append(alerts, Alert{
			ID:          fmt.Sprintf("blocked-%s", t.ID),
			Condition:   "task_blocked_too_long",
			Severity:    SeverityMedium,
			Message:     fmt.Sprintf("task %s (%s) has been blocked by %d task(s) for more than %d hours", t.ID, t.Name, waiting, ae.thresholds.BlockedHours),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkStaleTasks looks for in-progress tasks with no recent activity.
func (ae *alertEngine) checkStaleTasks(tasks []models.Task, now time.Time) []Alert {
	threshold := time.Duration(ae.thresholds.StaleDays) * 24 * time.Hour
	var alerts []Alert
	for _, t := range tasks {
		if t.Status == models.StatusInProgress && now.Sub(t.UpdatedAt) > threshold {
			alerts = append(alerts, Alert{
				ID:          fmt.Sprintf("stale-%s", t.ID),
				Condition:   "task_stale",
				Severity:    SeverityMedium,
				Message:     fmt.Sprintf("task %s (%s) has had no activity for more than %d days", t.ID, t.Name, ae.thresholds.StaleDays),
				TriggeredAt: now,
			})
		}
	}
	return alerts
}

// checkBacklogSize alerts when the number of pending tasks exceeds the threshold.
func (ae *alertEngine) checkBacklogSize(tasks []models.Task, now time.Time) []Alert {
	pending := 0
	for _, t := range tasks {
		if t.Status == models.StatusPending {
			pending++
		}
	}
	if pending <= ae.thresholds.MaxBacklogSize {
		return nil
	}
	return []Alert{{
		ID:          "backlog-size",
		Condition:   "backlog_too_large",
		Severity:    SeverityLow,
		Message:     fmt.Sprintf("%d tasks are pending, exceeding the maximum of %d", pending, ae.thresholds.MaxBacklogSize),
		TriggeredAt: now,
	}}
}

func severityRank(s AlertSeverity) int {
	switch s {
	case SeverityHigh:
		return 0
	case SeverityMedium:
		return 1
	default:
		return 2
	}
}
