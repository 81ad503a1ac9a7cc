package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// LockFunc acquires the single-writer lock of a project and returns the
// function that releases it.
type LockFunc func(ctx context.Context) (unlock func() error, err error)

// TaskManager defines the task operations available on one project.
type TaskManager interface {
	Project() models.ProjectContext
	Reconcile(ctx context.Context, incoming []models.CandidateTask, mode models.UpdateMode) (*ReconcileResult, error)
	ListTasks(statuses ...models.TaskStatus) ([]models.Task, error)
	GetTask(taskID string) (*models.Task, error)
	SearchTasks(query string, includeCompleted bool) ([]models.Task, error)
	StartTask(ctx context.Context, taskID string) (*models.Task, error)
	CompleteTask(ctx context.Context, taskID, summary string) (*models.Task, error)
	CanExecute(taskID string) (*Executability, error)
	UpdateContent(ctx context.Context, taskID string, update TaskUpdate) (*models.Task, error)
	DeleteTask(ctx context.Context, taskID string) error
	ListBackups() ([]storage.SnapshotInfo, error)
	RestoreBackup(ctx context.Context, name string) ([]models.Task, error)
}

// Executability is the derived blocked/unblocked state of a task.
type Executability struct {
	OK          bool
	BlockingIDs []string
}

// TaskUpdate carries a content update. Nil fields are left unchanged.
// Dependencies holds raw references (IDs or names) and is re-resolved.
type TaskUpdate struct {
	Name                 *string
	Description          *string
	Notes                *string
	ImplementationGuide  *string
	VerificationCriteria *string
	Summary              *string
	RelatedFiles         *[]models.RelatedFile
	Dependencies         *[]string
}

// TaskServiceConfig holds the collaborators of a TaskService.
type TaskServiceConfig struct {
	Project models.ProjectContext
	Store   storage.TaskStore
	Backups storage.BackupManager
	// Lock may be nil when the embedding application serializes writers
	// some other way.
	Lock   LockFunc
	Events EventLogger
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// TaskService implements TaskManager over a TaskStore and a BackupManager.
// Every mutation is a full read-modify-write under the project lock.
type TaskService struct {
	project models.ProjectContext
	store   storage.TaskStore
	backups storage.BackupManager
	lock    LockFunc
	events  EventLogger
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewTaskService creates a TaskService bound to a single project.
func NewTaskService(cfg TaskServiceConfig) *TaskService {
	s := &TaskService{
		project: cfg.Project,
		store:   cfg.Store,
		backups: cfg.Backups,
		lock:    cfg.Lock,
		events:  cfg.Events,
		logger:  cfg.Logger,
		now:     cfg.Now,
		newID:   cfg.NewID,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("project", cfg.Project.Name)
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Project returns the project this service is bound to.
func (s *TaskService) Project() models.ProjectContext {
	return s.project
}

// Reconcile applies a batch in the given mode. For clearAll the existing
// collection is snapshotted first; if that fails nothing is written.
func (s *TaskService) Reconcile(ctx context.Context, incoming []models.CandidateTask, mode models.UpdateMode) (*ReconcileResult, error) {
	var res *ReconcileResult
	err := s.mutate(ctx, func(tasks []models.Task) ([]models.Task, error) {
		var err error
		res, err = Reconcile(tasks, incoming, mode, ReconcileOptions{
			Now:    s.now(),
			NewID:  s.newID,
			Logger: s.logger,
		})
		if err != nil {
			return nil, err
		}
		if res.RequiresBackup {
			if s.backups == nil {
				return nil, fmt.Errorf("clearing tasks: %w: no backup manager configured", ErrBackupFailed)
			}
			name, err := s.backups.Snapshot(tasks)
			if name == "" && err != nil {
				return nil, fmt.Errorf("clearing tasks: %w: %v", ErrBackupFailed, err)
			}
			if err != nil {
				s.logger.Warn("pruning old backups", "error", err)
			}
			res.BackupFile = name
		}
		return res.Tasks, nil
	})
	if err != nil {
		return nil, err
	}

	for name, refs := range res.DroppedDependencies {
		s.logger.Warn("task saved with reduced dependency set", "task", name, "dropped", refs)
	}
	logEvent(s.events, EventBatchReconciled, map[string]any{
		"project":  s.project.Name,
		"mode":     string(mode),
		"created":  len(res.Created),
		"updated":  len(res.Updated),
		"retained": len(res.Retained),
		"removed":  len(res.Removed),
		"backup":   res.BackupFile,
	})
	return res, nil
}

// ListTasks returns tasks ordered by creation time, optionally restricted to
// the given statuses.
func (s *TaskService) ListTasks(statuses ...models.TaskStatus) ([]models.Task, error) {
	tasks, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	want := make(map[models.TaskStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []models.Task
	for _, t := range tasks {
		if len(want) == 0 || want[t.Status] {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// GetTask returns the task with the given identifier.
func (s *TaskService) GetTask(taskID string) (*models.Task, error) {
	tasks, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	idx := indexOf(tasks, taskID)
	if idx < 0 {
		return nil, &NotFoundError{Kind: "task", Key: taskID}
	}
	t := tasks[idx]
	return &t, nil
}

// SearchTasks matches query against task IDs exactly and against names and
// descriptions as a case-insensitive substring.
func (s *TaskService) SearchTasks(query string, includeCompleted bool) ([]models.Task, error) {
	tasks, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	var out []models.Task
	for _, t := range tasks {
		if !includeCompleted && t.Status == models.StatusCompleted {
			continue
		}
		if q == "" || strings.EqualFold(t.ID, q) ||
			strings.Contains(strings.ToLower(t.Name), q) ||
			strings.Contains(strings.ToLower(t.Description), q) {
			out = append(out, t)
		}
	}
	return out, nil
}

// CanExecute reports whether a task may start. A task is blocked iff it is not
// completed and some dependency is not completed or no longer exists.
func (s *TaskService) CanExecute(taskID string) (*Executability, error) {
	tasks, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	idx := indexOf(tasks, taskID)
	if idx < 0 {
		return nil, &NotFoundError{Kind: "task", Key: taskID}
	}
	return executability(tasks, tasks[idx]), nil
}

func executability(tasks []models.Task, t models.Task) *Executability {
	if t.Status == models.StatusCompleted {
		return &Executability{OK: true}
	}
	var blocking []string
	for _, dep := range t.Dependencies {
		i := indexOf(tasks, dep.TaskID)
		if i < 0 || tasks[i].Status != models.StatusCompleted {
			blocking = append(blocking, dep.TaskID)
		}
	}
	return &Executability{OK: len(blocking) == 0, BlockingIDs: blocking}
}

// SplitPending partitions the pending tasks of a loaded collection into ready
// and blocked ones, preserving order. It is the bulk form of CanExecute.
func SplitPending(tasks []models.Task) (ready, blocked []models.Task) {
	status := make(map[string]models.TaskStatus, len(tasks))
	for _, t := range tasks {
		status[t.ID] = t.Status
	}
	for _, t := range tasks {
		if t.Status != models.StatusPending {
			continue
		}
		ok := true
		for _, dep := range t.Dependencies {
			if status[dep.TaskID] != models.StatusCompleted {
				ok = false
				break
			}
		}
		if ok {
			ready = append(ready, t)
		} else {
			blocked = append(blocked, t)
		}
	}
	return ready, blocked
}

// StartTask moves a pending task to in_progress once all dependencies are
// completed.
func (s *TaskService) StartTask(ctx context.Context, taskID string) (*models.Task, error) {
	var started models.Task
	err := s.mutate(ctx, func(tasks []models.Task) ([]models.Task, error) {
		idx := indexOf(tasks, taskID)
		if idx < 0 {
			return nil, &NotFoundError{Kind: "task", Key: taskID}
		}
		t := &tasks[idx]
		if t.Status != models.StatusPending {
			return nil, &ConflictError{Reason: fmt.Sprintf("task %s is %s, only pending tasks can be started", taskID, t.Status)}
		}
		if ex := executability(tasks, *t); !ex.OK {
			return nil, &BlockedError{TaskID: taskID, BlockingIDs: ex.BlockingIDs}
		}
		t.Status = models.StatusInProgress
		t.UpdatedAt = s.now()
		started = *t
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	s.logStatus(started, models.StatusPending)
	return &started, nil
}

// CompleteTask moves an in_progress task to completed, recording summary.
func (s *TaskService) CompleteTask(ctx context.Context, taskID, summary string) (*models.Task, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, &ValidationError{Field: "summary", Reason: "a completion summary is required"}
	}
	var done models.Task
	err := s.mutate(ctx, func(tasks []models.Task) ([]models.Task, error) {
		idx := indexOf(tasks, taskID)
		if idx < 0 {
			return nil, &NotFoundError{Kind: "task", Key: taskID}
		}
		t := &tasks[idx]
		if t.Status != models.StatusInProgress {
			return nil, &ConflictError{Reason: fmt.Sprintf("task %s is %s, only in_progress tasks can be completed", taskID, t.Status)}
		}
		now := s.now()
		t.Status = models.StatusCompleted
		t.Summary = summary
		t.CompletedAt = &now
		t.UpdatedAt = now
		done = *t
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	s.logStatus(done, models.StatusInProgress)
	return &done, nil
}

// UpdateContent edits a task's content fields. Completed tasks only accept a
// new summary and related files.
func (s *TaskService) UpdateContent(ctx context.Context, taskID string, update TaskUpdate) (*models.Task, error) {
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if update.RelatedFiles != nil {
		for i, f := range *update.RelatedFiles {
			if err := ValidateRelatedFile(f); err != nil {
				return nil, &ValidationError{Field: fmt.Sprintf("relatedFiles[%d]", i), Reason: err.Reason}
			}
		}
	}

	var updated models.Task
	err := s.mutate(ctx, func(tasks []models.Task) ([]models.Task, error) {
		idx := indexOf(tasks, taskID)
		if idx < 0 {
			return nil, &NotFoundError{Kind: "task", Key: taskID}
		}
		t := &tasks[idx]
		if t.Status == models.StatusCompleted && !update.completedSafe() {
			return nil, &ConflictError{Reason: fmt.Sprintf("task %s is completed; only summary and related files can change", taskID)}
		}

		setIf(&t.Name, update.Name)
		setIf(&t.Description, update.Description)
		setIf(&t.Notes, update.Notes)
		setIf(&t.ImplementationGuide, update.ImplementationGuide)
		setIf(&t.VerificationCriteria, update.VerificationCriteria)
		setIf(&t.Summary, update.Summary)
		if update.RelatedFiles != nil {
			t.RelatedFiles = append([]models.RelatedFile(nil), (*update.RelatedFiles)...)
		}
		if update.Dependencies != nil {
			others := make([]models.Task, 0, len(tasks)-1)
			for i := range tasks {
				if i != idx {
					others = append(others, tasks[i])
				}
			}
			deps, dropped := NewDependencyResolver(others, nil, s.logger).Resolve(*update.Dependencies)
			if len(dropped) > 0 {
				s.logger.Warn("task saved with reduced dependency set", "task", t.Name, "dropped", dropped)
			}
			t.Dependencies = deps
			if cycle := findCycle(tasks); cycle != nil {
				return nil, &ValidationError{Field: "dependencies", Reason: "dependency cycle: " + describeCycle(tasks, cycle)}
			}
		}
		t.UpdatedAt = s.now()
		updated = *t
		return tasks, nil
	})
	if err != nil {
		return nil, err
	}
	logEvent(s.events, EventTaskUpdated, map[string]any{
		"project": s.project.Name,
		"task_id": updated.ID,
	})
	return &updated, nil
}

func (u TaskUpdate) completedSafe() bool {
	return u.Name == nil && u.Description == nil && u.Notes == nil &&
		u.ImplementationGuide == nil && u.VerificationCriteria == nil &&
		u.Dependencies == nil
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// DeleteTask removes a task that is neither completed nor depended upon.
func (s *TaskService) DeleteTask(ctx context.Context, taskID string) error {
	var deleted models.Task
	err := s.mutate(ctx, func(tasks []models.Task) ([]models.Task, error) {
		idx := indexOf(tasks, taskID)
		if idx < 0 {
			return nil, &NotFoundError{Kind: "task", Key: taskID}
		}
		if tasks[idx].Status == models.StatusCompleted {
			return nil, &ConflictError{Reason: fmt.Sprintf("task %s is completed and cannot be deleted", taskID)}
		}
		var dependents []Dependent
		for _, t := range tasks {
			if t.ID != taskID && t.DependsOn(taskID) {
				dependents = append(dependents, Dependent{ID: t.ID, Name: t.Name})
			}
		}
		if len(dependents) > 0 {
			return nil, &DependentsError{TaskID: taskID, Dependents: dependents}
		}
		deleted = tasks[idx]
		return append(tasks[:idx], tasks[idx+1:]...), nil
	})
	if err != nil {
		return err
	}
	logEvent(s.events, EventTaskDeleted, map[string]any{
		"project": s.project.Name,
		"task_id": deleted.ID,
		"name":    deleted.Name,
	})
	return nil
}

// ListBackups returns the project's task backups, newest first.
func (s *TaskService) ListBackups() ([]storage.SnapshotInfo, error) {
	if s.backups == nil {
		return nil, nil
	}
	return s.backups.List()
}

// RestoreBackup replaces the live collection with the named backup.
func (s *TaskService) RestoreBackup(ctx context.Context, name string) ([]models.Task, error) {
	if s.backups == nil {
		return nil, &NotFoundError{Kind: "backup", Key: name}
	}
	restored, err := s.backups.Restore(name)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrInvalidSnapshotName):
			return nil, &ValidationError{Field: "backup", Reason: fmt.Sprintf("%q is not a backup file name", name)}
		case errors.Is(err, os.ErrNotExist):
			return nil, &NotFoundError{Kind: "backup", Key: name}
		}
		return nil, err
	}

	err = s.mutate(ctx, func(_ []models.Task) ([]models.Task, error) {
		return restored, nil
	})
	if err != nil {
		return nil, err
	}
	logEvent(s.events, EventBackupRestored, map[string]any{
		"project": s.project.Name,
		"backup":  name,
		"tasks":   len(restored),
	})
	return restored, nil
}

// mutate runs a read-modify-write cycle under the project lock. fn receives
// the current collection and returns the collection to persist.
func (s *TaskService) mutate(ctx context.Context, fn func(tasks []models.Task) ([]models.Task, error)) error {
	if s.lock != nil {
		unlock, err := s.lock(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := unlock(); err != nil {
				s.logger.Warn("releasing project lock", "error", err)
			}
		}()
	}

	tasks, err := s.store.Load()
	if err != nil {
		return err
	}
	next, err := fn(tasks)
	if err != nil {
		return err
	}
	return s.store.Save(next)
}

func (s *TaskService) logStatus(t models.Task, from models.TaskStatus) {
	s.logger.Info("task status changed", "task_id", t.ID, "from", from, "to", t.Status)
	logEvent(s.events, EventStatusChanged, map[string]any{
		"project":    s.project.Name,
		"task_id":    t.ID,
		"old_status": string(from),
		"new_status": string(t.Status),
	})
}

func indexOf(tasks []models.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
