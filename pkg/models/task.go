// Package models defines the data types shared across taskgraph.
package models

import "time"

// TaskStatus represents the persisted lifecycle state of a task.
// A fourth state, blocked, is derived on demand and never stored.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// AllStatuses lists the persisted statuses in lifecycle order.
var AllStatuses = []TaskStatus{StatusPending, StatusInProgress, StatusCompleted}

// Valid reports whether s is one of the persisted statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// RelatedFileType classifies how a task relates to a file.
type RelatedFileType string

const (
	FileToModify   RelatedFileType = "TO_MODIFY"
	FileReference  RelatedFileType = "REFERENCE"
	FileCreate     RelatedFileType = "CREATE"
	FileDependency RelatedFileType = "DEPENDENCY"
	FileOther      RelatedFileType = "OTHER"
)

// Valid reports whether t is a known related-file type.
func (t RelatedFileType) Valid() bool {
	switch t {
	case FileToModify, FileReference, FileCreate, FileDependency, FileOther:
		return true
	}
	return false
}

// RelatedFile points a task at a file, optionally narrowed to a line range.
type RelatedFile struct {
	Path        string          `yaml:"path" json:"path"`
	Type        RelatedFileType `yaml:"type" json:"type"`
	Description string          `yaml:"description,omitempty" json:"description,omitempty"`
	LineStart   int             `yaml:"line_start,omitempty" json:"lineStart,omitempty"`
	LineEnd     int             `yaml:"line_end,omitempty" json:"lineEnd,omitempty"`
}

// TaskDependency names a prerequisite task by identifier.
type TaskDependency struct {
	TaskID string `yaml:"task_id" json:"taskId"`
}

// Task is a unit of trackable work. ID is a random UUID assigned at
// creation and stable for the task's lifetime.
type Task struct {
	ID                   string           `json:"id"`
	Name                 string           `json:"name"`
	Description          string           `json:"description"`
	Notes                string           `json:"notes,omitempty"`
	ImplementationGuide  string           `json:"implementationGuide,omitempty"`
	VerificationCriteria string           `json:"verificationCriteria,omitempty"`
	Summary              string           `json:"summary,omitempty"`
	AnalysisResult       string           `json:"analysisResult,omitempty"`
	Status               TaskStatus       `json:"status"`
	Dependencies         []TaskDependency `json:"dependencies"`
	RelatedFiles         []RelatedFile    `json:"relatedFiles,omitempty"`
	CreatedAt            time.Time        `json:"createdAt"`
	UpdatedAt            time.Time        `json:"updatedAt"`
	CompletedAt          *time.Time       `json:"completedAt,omitempty"`
}

// DependencyIDs returns the identifiers of t's prerequisites in order.
func (t *Task) DependencyIDs() []string {
	ids := make([]string, len(t.Dependencies))
	for i, d := range t.Dependencies {
		ids[i] = d.TaskID
	}
	return ids
}

// DependsOn reports whether t lists id as a prerequisite.
func (t *Task) DependsOn(id string) bool {
	for _, d := range t.Dependencies {
		if d.TaskID == id {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of t so callers can mutate slices freely.
func (t Task) Clone() Task {
	c := t
	if t.Dependencies != nil {
		c.Dependencies = append([]TaskDependency(nil), t.Dependencies...)
	}
	if t.RelatedFiles != nil {
		c.RelatedFiles = append([]RelatedFile(nil), t.RelatedFiles...)
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return c
}

// CandidateTask is one element of an incoming batch. Dependencies are raw
// references: either a task identifier or a task name.
type CandidateTask struct {
	Name                 string        `yaml:"name" json:"name"`
	Description          string        `yaml:"description" json:"description"`
	Notes                string        `yaml:"notes,omitempty" json:"notes,omitempty"`
	ImplementationGuide  string        `yaml:"implementation_guide,omitempty" json:"implementationGuide,omitempty"`
	VerificationCriteria string        `yaml:"verification_criteria,omitempty" json:"verificationCriteria,omitempty"`
	Dependencies         []string      `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	RelatedFiles         []RelatedFile `yaml:"related_files,omitempty" json:"relatedFiles,omitempty"`
}

// UpdateMode selects how an incoming batch is reconciled against the
// existing collection.
type UpdateMode string

const (
	ModeAppend    UpdateMode = "append"
	ModeOverwrite UpdateMode = "overwrite"
	ModeSelective UpdateMode = "selective"
	ModeClearAll  UpdateMode = "clearAll"
)

// AllUpdateModes lists every update mode.
var AllUpdateModes = []UpdateMode{ModeAppend, ModeOverwrite, ModeSelective, ModeClearAll}

// Valid reports whether m is a known update mode.
func (m UpdateMode) Valid() bool {
	switch m {
	case ModeAppend, ModeOverwrite, ModeSelective, ModeClearAll:
		return true
	}
	return false
}
