package core

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/valter-silva-au/taskgraph/internal/observability"
	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

var testNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

// seqIDs returns a NewID func yielding deterministic UUIDs.
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("00000000-0000-4000-8000-%012d", n)
	}
}

// recordingEvents captures events written by core services.
type recordingEvents struct {
	events []string
	data   []map[string]any
}

func (r *recordingEvents) LogEvent(eventType string, data map[string]any) error {
	r.events = append(r.events, eventType)
	r.data = append(r.data, data)
	return nil
}

func candidate(name string, deps ...string) models.CandidateTask {
	return models.CandidateTask{
		Name:         name,
		Description:  "Do " + name,
		Dependencies: deps,
	}
}

func existingTask(id, name string, status models.TaskStatus, deps ...string) models.Task {
	t := models.Task{
		ID:           id,
		Name:         name,
		Description:  "Existing " + name,
		Status:       status,
		Dependencies: []models.TaskDependency{},
		CreatedAt:    testNow.Add(-time.Hour),
		UpdatedAt:    testNow.Add(-time.Hour),
	}
	for _, d := range deps {
		t.Dependencies = append(t.Dependencies, models.TaskDependency{TaskID: d})
	}
	if status == models.StatusCompleted {
		at := testNow.Add(-30 * time.Minute)
		t.CompletedAt = &at
		t.Summary = "done"
	}
	return t
}

func taskByName(tasks []models.Task, name string) (models.Task, bool) {
	for _, t := range tasks {
		if t.Name == name {
			return t, true
		}
	}
	return models.Task{}, false
}

type serviceFixture struct {
	svc     *TaskService
	store   storage.TaskStore
	backups storage.BackupManager
	events  *recordingEvents
	project models.ProjectContext
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	base := t.TempDir()
	dir := filepath.Join(base, "projects", "main")
	pc := models.ProjectContext{
		Name:      "main",
		Dir:       dir,
		TaskFile:  filepath.Join(dir, "tasks.yaml"),
		MemoryDir: filepath.Join(dir, "memory"),
		LockFile:  filepath.Join(dir, ".lock"),
	}
	f := &serviceFixture{
		store:   storage.NewTaskStore(pc.TaskFile),
		backups: storage.NewBackupManager(pc.MemoryDir, models.RetentionPolicy{}),
		events:  &recordingEvents{},
		project: pc,
	}
	f.svc = NewTaskService(TaskServiceConfig{
		Project: pc,
		Store:   f.store,
		Backups: f.backups,
		Lock:    func(ctx context.Context) (func() error, error) { return storage.LockFile(ctx, pc.LockFile) },
		Events:  f.events,
		Logger:  observability.NewDiscardLogger(),
		Now:     func() time.Time { return testNow },
		NewID:   seqIDs(),
	})
	return f
}

func (f *serviceFixture) seed(t *testing.T, tasks ...models.Task) {
	t.Helper()
	if err := f.store.Save(tasks); err != nil {
		t.Fatalf("seeding tasks: %v", err)
	}
}
