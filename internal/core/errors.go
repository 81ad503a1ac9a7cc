package core

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes. Every typed error below wraps exactly one of these so
// callers can classify with errors.Is.
var (
	ErrValidation   = errors.New("validation")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrBlocked      = errors.New("blocked")
	ErrBackupFailed = errors.New("backup failed")
)

// ValidationError reports input rejected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError reports an unknown task, project or backup.
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s %q", e.Kind, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ConflictError reports an operation that is invalid in the current state.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string { return "conflict: " + e.Reason }

func (e *ConflictError) Unwrap() error { return ErrConflict }

// Dependent identifies a task that depends on another.
type Dependent struct {
	ID   string
	Name string
}

// DependentsError reports a delete refused because other tasks depend on the
// target. It is a conflict.
type DependentsError struct {
	TaskID     string
	Dependents []Dependent
}

func (e *DependentsError) Error() string {
	parts := make([]string, len(e.Dependents))
	for i, d := range e.Dependents {
		parts[i] = fmt.Sprintf("%s (%s)", d.Name, d.ID)
	}
	return fmt.Sprintf("conflict: task %s is a dependency of: %s", e.TaskID, strings.Join(parts, ", "))
}

func (e *DependentsError) Unwrap() error { return ErrConflict }

// BlockedError reports a start refused because dependencies are incomplete.
type BlockedError struct {
	TaskID      string
	BlockingIDs []string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("blocked: task %s waits on incomplete dependencies: %s",
		e.TaskID, strings.Join(e.BlockingIDs, ", "))
}

func (e *BlockedError) Unwrap() error { return ErrBlocked }

// ErrorClass returns the short class name of err for transport layers.
func ErrorClass(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBlocked):
		return "blocked"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrBackupFailed):
		return "backup_failed"
	default:
		return "internal"
	}
}
