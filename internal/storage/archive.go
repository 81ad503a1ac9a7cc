package storage

import (
	"time"

	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// ArchiveManager writes dated archives of a project's tasks, typically right
// before the project is deleted. Archives have their own retention policy,
// independent of task backups.
type ArchiveManager interface {
	Archive(tasks []models.Task) (string, error)
	List() ([]SnapshotInfo, error)
	Restore(name string) ([]models.Task, error)
}

// NewArchiveManager creates an ArchiveManager storing project_archive_*.yaml
// files in dir.
func NewArchiveManager(dir string, policy models.RetentionPolicy) ArchiveManager {
	return &archiveManager{snapshotDir{
		dir:     dir,
		prefix:  archivePrefix,
		pattern: archiveNamePattern,
		policy:  policy,
		now:     time.Now,
	}}
}

type archiveManager struct {
	snapshotDir
}

func (a *archiveManager) Archive(tasks []models.Task) (string, error) {
	return a.Snapshot(tasks)
}

// IsArchiveName reports whether name is a project archive file name.
func IsArchiveName(name string) bool {
	return archiveNamePattern.MatchString(name)
}
