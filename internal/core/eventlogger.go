package core

// Event types written by core services.
const (
	EventBatchReconciled = "task.batch_reconciled"
	EventStatusChanged   = "task.status_changed"
	EventTaskUpdated     = "task.updated"
	EventTaskDeleted     = "task.deleted"
	EventBackupRestored  = "backup.restored"
	EventProjectCreated  = "project.created"
	EventProjectDeleted  = "project.deleted"
	EventDefaultChanged  = "project.default_changed"
)

// EventLogger is the subset of the observability event log that core
// services need. Defining it here avoids importing the observability package.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// logEvent writes an event when a logger is configured. Event log failures
// never fail the operation that produced them.
func logEvent(l EventLogger, eventType string, data map[string]any) {
	if l == nil {
		return
	}
	_ = l.LogEvent(eventType, data)
}
