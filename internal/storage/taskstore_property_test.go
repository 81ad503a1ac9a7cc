package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/taskgraph/pkg/models"
	"pgregory.net/rapid"
)

func genAlphaString(t *rapid.T, label string, minLen, maxLen int) string {
	letters := "abcdefghijklmnopqrstuvwxyz "
	n := rapid.IntRange(minLen, maxLen).Draw(t, label+"Len")
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rapid.IntRange(0, len(letters)-1).Draw(t, label+"Char")]
	}
	return string(b)
}

func genTime(t *rapid.T, label string) time.Time {
	sec := rapid.Int64Range(1_600_000_000, 2_000_000_000).Draw(t, label+"Sec")
	nsec := rapid.Int64Range(0, 999_999_999).Draw(t, label+"Nsec")
	return time.Unix(sec, nsec).UTC()
}

func genTaskStatus(t *rapid.T) models.TaskStatus {
	return rapid.SampledFrom(models.AllStatuses).Draw(t, "status")
}

func genRelatedFile(t *rapid.T, label string) models.RelatedFile {
	types := []models.RelatedFileType{
		models.FileToModify, models.FileReference, models.FileCreate,
		models.FileDependency, models.FileOther,
	}
	f := models.RelatedFile{
		Path:        genAlphaString(t, label+"Path", 1, 20) + ".go",
		Type:        rapid.SampledFrom(types).Draw(t, label+"Type"),
		Description: genAlphaString(t, label+"Desc", 0, 20),
	}
	if rapid.Bool().Draw(t, label+"HasLines") {
		f.LineStart = rapid.IntRange(1, 500).Draw(t, label+"Start")
		f.LineEnd = f.LineStart + rapid.IntRange(1, 100).Draw(t, label+"Span")
	}
	return f
}

func genTask(t *rapid.T, label string) models.Task {
	task := models.Task{
		ID:                   uuid.NewString(),
		Name:                 genAlphaString(t, label+"Name", 1, 30),
		Description:          genAlphaString(t, label+"Desc", 0, 60),
		Notes:                genAlphaString(t, label+"Notes", 0, 20),
		ImplementationGuide:  genAlphaString(t, label+"Guide", 0, 20),
		VerificationCriteria: genAlphaString(t, label+"Verify", 0, 20),
		Status:               genTaskStatus(t),
		Dependencies:         []models.TaskDependency{},
		CreatedAt:            genTime(t, label+"Created"),
	}
	task.UpdatedAt = task.CreatedAt.Add(time.Duration(rapid.Int64Range(0, int64(time.Hour)).Draw(t, label+"Delta")))

	nDeps := rapid.IntRange(0, 3).Draw(t, label+"NDeps")
	for i := 0; i < nDeps; i++ {
		task.Dependencies = append(task.Dependencies, models.TaskDependency{TaskID: uuid.NewString()})
	}
	nFiles := rapid.IntRange(0, 2).Draw(t, label+"NFiles")
	for i := 0; i < nFiles; i++ {
		task.RelatedFiles = append(task.RelatedFiles, genRelatedFile(t, fmt.Sprintf("%sFile%d", label, i)))
	}
	if task.Status == models.StatusCompleted {
		task.Summary = genAlphaString(t, label+"Summary", 1, 30)
		at := task.UpdatedAt
		task.CompletedAt = &at
	}
	return task
}

// Saving a collection and loading it back yields the same collection.
func TestProperty_TaskStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(0, 8).Draw(rt, "n")
		tasks := make([]models.Task, n)
		for i := range tasks {
			tasks[i] = genTask(rt, fmt.Sprintf("t%d", i))
		}

		s := NewTaskStore(filepath.Join(dir, uuid.NewString(), "tasks.yaml"))
		if err := s.Save(tasks); err != nil {
			rt.Fatalf("Save: %v", err)
		}
		got, err := s.Load()
		if err != nil {
			rt.Fatalf("Load: %v", err)
		}
		assertTasksEqual(rt, tasks, got)
	})
}
