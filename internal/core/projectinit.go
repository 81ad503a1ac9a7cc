package core

import (
	"fmt"
	"os"

	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// InitResult holds a summary of what was created vs. skipped.
type InitResult struct {
	Created []string
	Skipped []string
}

// ProjectInitializer scaffolds the on-disk layout of a project: its
// directory, an empty task file and the memory/ archive area.
type ProjectInitializer interface {
	Init(project models.ProjectContext) (*InitResult, error)
}

type projectInitializer struct{}

// NewProjectInitializer creates a new ProjectInitializer.
func NewProjectInitializer() ProjectInitializer {
	return &projectInitializer{}
}

// Init is safe to run on existing projects: anything already present is
// skipped and not overwritten.
func (pi *projectInitializer) Init(project models.ProjectContext) (*InitResult, error) {
	result := &InitResult{}

	for _, dir := range []string{project.Dir, project.MemoryDir} {
		if _, err := os.Stat(dir); err == nil {
			result.Skipped = append(result.Skipped, dir)
			continue
		}
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating directory %s: %w", dir, err)
		}
		result.Created = append(result.Created, dir)
	}

	if _, err := os.Stat(project.TaskFile); err == nil {
		result.Skipped = append(result.Skipped, project.TaskFile)
		return result, nil
	}
	// Loading bootstraps an empty task file.
	if _, err := storage.NewTaskStore(project.TaskFile).Load(); err != nil {
		return nil, fmt.Errorf("creating task file: %w", err)
	}
	result.Created = append(result.Created, project.TaskFile)
	return result, nil
}
