// Package storage persists task collections, the project registry, backups
// and archives as YAML files under the taskgraph base directory.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/valter-silva-au/taskgraph/pkg/models"
	"gopkg.in/yaml.v3"
)

const taskFileVersion = "1.0"

// TaskFile represents the top-level structure of tasks.yaml. Backup and
// archive snapshots share the same schema.
type TaskFile struct {
	Version string       `yaml:"version"`
	Tasks   []TaskRecord `yaml:"tasks"`
}

// TaskRecord is the serialized form of models.Task. Timestamps are stored as
// RFC 3339 strings so the file stays sortable and human-readable.
type TaskRecord struct {
	ID                   string                  `yaml:"id"`
	Name                 string                  `yaml:"name"`
	Description          string                  `yaml:"description"`
	Notes                string                  `yaml:"notes,omitempty"`
	ImplementationGuide  string                  `yaml:"implementation_guide,omitempty"`
	VerificationCriteria string                  `yaml:"verification_criteria,omitempty"`
	Summary              string                  `yaml:"summary,omitempty"`
	AnalysisResult       string                  `yaml:"analysis_result,omitempty"`
	Status               models.TaskStatus       `yaml:"status"`
	Dependencies         []models.TaskDependency `yaml:"dependencies"`
	RelatedFiles         []models.RelatedFile    `yaml:"related_files,omitempty"`
	CreatedAt            string                  `yaml:"created_at,omitempty"`
	UpdatedAt            string                  `yaml:"updated_at,omitempty"`
	CompletedAt          string                  `yaml:"completed_at,omitempty"`
}

// TaskStore loads and persists the task collection of one project.
type TaskStore interface {
	Load() ([]models.Task, error)
	Save(tasks []models.Task) error
	Path() string
}

type fileTaskStore struct {
	path string
	now  func() time.Time
}

// NewTaskStore creates a TaskStore backed by the YAML file at path. The file
// and its parent directories are created on first access.
func NewTaskStore(path string) TaskStore {
	return &fileTaskStore{path: path, now: time.Now}
}

func (s *fileTaskStore) Path() string {
	return s.path
}

// Load reads the collection, bootstrapping an empty file when none exists.
func (s *fileTaskStore) Load() ([]models.Task, error) {
	if err := s.ensureExists(); err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("loading tasks: %w", err)
	}
	tasks, err := decodeTasks(data, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("loading tasks from %s: %w", s.path, err)
	}
	return tasks, nil
}

// Save rewrites the whole collection. Callers own read-modify-write ordering.
func (s *fileTaskStore) Save(tasks []models.Task) error {
	data, err := encodeTasks(tasks)
	if err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	if err := writeFileAtomic(s.path, data, 0o600); err != nil {
		return fmt.Errorf("saving tasks: %w", err)
	}
	return nil
}

func (s *fileTaskStore) ensureExists() error {
	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	data, err := encodeTasks(nil)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data, 0o600)
}

func encodeTasks(tasks []models.Task) ([]byte, error) {
	tf := TaskFile{
		Version: taskFileVersion,
		Tasks:   make([]TaskRecord, len(tasks)),
	}
	for i, t := range tasks {
		tf.Tasks[i] = toRecord(t)
	}
	data, err := yaml.Marshal(&tf)
	if err != nil {
		return nil, fmt.Errorf("marshaling YAML: %w", err)
	}
	return data, nil
}

// decodeTasks parses a task file, assigning now to any task whose created or
// updated timestamp is missing or unreadable.
func decodeTasks(data []byte, now time.Time) ([]models.Task, error) {
	var tf TaskFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	tasks := make([]models.Task, len(tf.Tasks))
	for i, r := range tf.Tasks {
		tasks[i] = fromRecord(r, now)
	}
	return tasks, nil
}

func toRecord(t models.Task) TaskRecord {
	r := TaskRecord{
		ID:                   t.ID,
		Name:                 t.Name,
		Description:          t.Description,
		Notes:                t.Notes,
		ImplementationGuide:  t.ImplementationGuide,
		VerificationCriteria: t.VerificationCriteria,
		Summary:              t.Summary,
		AnalysisResult:       t.AnalysisResult,
		Status:               t.Status,
		Dependencies:         t.Dependencies,
		RelatedFiles:         t.RelatedFiles,
		CreatedAt:            formatTime(t.CreatedAt),
		UpdatedAt:            formatTime(t.UpdatedAt),
	}
	if r.Dependencies == nil {
		r.Dependencies = []models.TaskDependency{}
	}
	if t.CompletedAt != nil {
		r.CompletedAt = formatTime(*t.CompletedAt)
	}
	return r
}

func fromRecord(r TaskRecord, now time.Time) models.Task {
	t := models.Task{
		ID:                   r.ID,
		Name:                 r.Name,
		Description:          r.Description,
		Notes:                r.Notes,
		ImplementationGuide:  r.ImplementationGuide,
		VerificationCriteria: r.VerificationCriteria,
		Summary:              r.Summary,
		AnalysisResult:       r.AnalysisResult,
		Status:               r.Status,
		Dependencies:         r.Dependencies,
		RelatedFiles:         r.RelatedFiles,
		CreatedAt:            parseTimeOr(r.CreatedAt, now),
		UpdatedAt:            parseTimeOr(r.UpdatedAt, now),
	}
	if t.Dependencies == nil {
		t.Dependencies = []models.TaskDependency{}
	}
	if t.Status == "" {
		t.Status = models.StatusPending
	}
	if r.CompletedAt != "" {
		if at, err := time.Parse(time.RFC3339Nano, r.CompletedAt); err == nil {
			at = at.UTC()
			t.CompletedAt = &at
		}
	}
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTimeOr(s string, fallback time.Time) time.Time {
	if s == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fallback
	}
	return t.UTC()
}

// writeFileAtomic writes data to a temporary sibling of path and renames it
// into place, creating parent directories as needed.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("writing file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("renaming file: %w", err)
	}
	return nil
}
