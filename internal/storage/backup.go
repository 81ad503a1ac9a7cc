package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// snapshotTimeLayout sorts lexicographically in chronological order.
const snapshotTimeLayout = "20060102T150405.000000000Z"

const (
	backupPrefix  = "tasks_backup_"
	archivePrefix = "project_archive_"
	snapshotExt   = ".yaml"
)

var (
	backupNamePattern  = regexp.MustCompile(`^tasks_backup_\d{8}T\d{6}\.\d{9}Z\.yaml$`)
	archiveNamePattern = regexp.MustCompile(`^project_archive_\d{8}T\d{6}\.\d{9}Z\.yaml$`)
)

// ErrInvalidSnapshotName is returned when a snapshot name does not match the
// expected pattern. Such names are never resolved against the filesystem.
var ErrInvalidSnapshotName = errors.New("invalid snapshot file name")

// SnapshotInfo describes one snapshot file on disk.
type SnapshotInfo struct {
	Name      string
	Path      string
	CreatedAt time.Time
	Size      int64
}

// BackupManager writes, lists, prunes and restores task-collection snapshots
// taken before destructive operations.
type BackupManager interface {
	Snapshot(tasks []models.Task) (string, error)
	Prune() ([]string, error)
	List() ([]SnapshotInfo, error)
	Restore(name string) ([]models.Task, error)
}

// snapshotDir holds timestamp-named snapshot files of one kind in a directory.
type snapshotDir struct {
	dir     string
	prefix  string
	pattern *regexp.Regexp
	policy  models.RetentionPolicy
	now     func() time.Time
}

// NewBackupManager creates a BackupManager storing tasks_backup_*.yaml files
// in dir under the given retention policy.
func NewBackupManager(dir string, policy models.RetentionPolicy) BackupManager {
	return &snapshotDir{
		dir:     dir,
		prefix:  backupPrefix,
		pattern: backupNamePattern,
		policy:  policy,
		now:     time.Now,
	}
}

// Snapshot writes tasks to a new file and applies the retention policy.
// The returned value is the file name, not the full path.
func (s *snapshotDir) Snapshot(tasks []models.Task) (string, error) {
	data, err := encodeTasks(tasks)
	if err != nil {
		return "", fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", fmt.Errorf("writing snapshot: creating directory: %w", err)
	}

	ts := s.now().UTC()
	for {
		name := s.prefix + ts.Format(snapshotTimeLayout) + snapshotExt
		path := filepath.Join(s.dir, name)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if errors.Is(err, os.ErrExist) {
			ts = ts.Add(time.Nanosecond)
			continue
		}
		if err != nil {
			return "", fmt.Errorf("writing snapshot: %w", err)
		}
		if _, err := f.Write(data); err != nil {
			_ = f.Close()
			_ = os.Remove(path)
			return "", fmt.Errorf("writing snapshot %s: %w", name, err)
		}
		if err := f.Close(); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("writing snapshot %s: %w", name, err)
		}
		if _, err := s.Prune(); err != nil {
			return name, err
		}
		return name, nil
	}
}

// Prune deletes the oldest snapshots beyond the policy's MaxCount.
func (s *snapshotDir) Prune() ([]string, error) {
	if !s.policy.Enabled || s.policy.MaxCount <= 0 {
		return nil, nil
	}
	infos, err := s.List()
	if err != nil {
		return nil, err
	}
	return pruneSnapshots(infos, s.policy.MaxCount)
}

// List returns the snapshots in the directory, newest first. Files whose
// names do not match the snapshot pattern are ignored.
func (s *snapshotDir) List() ([]SnapshotInfo, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}

	var infos []SnapshotInfo
	for _, e := range entries {
		if e.IsDir() || !s.pattern.MatchString(e.Name()) {
			continue
		}
		info := SnapshotInfo{
			Name: e.Name(),
			Path: filepath.Join(s.dir, e.Name()),
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(e.Name(), s.prefix), snapshotExt)
		if ts, err := time.Parse(snapshotTimeLayout, stamp); err == nil {
			info.CreatedAt = ts
		}
		if fi, err := e.Info(); err == nil {
			info.Size = fi.Size()
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name > infos[j].Name
	})
	return infos, nil
}

// Restore reads a snapshot by file name. The name is validated against the
// snapshot pattern before any filesystem access.
func (s *snapshotDir) Restore(name string) ([]models.Task, error) {
	if !s.pattern.MatchString(name) {
		return nil, fmt.Errorf("restoring %q: %w", name, ErrInvalidSnapshotName)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return nil, fmt.Errorf("restoring %s: %w", name, err)
	}
	tasks, err := decodeTasks(data, s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("restoring %s: %w", name, err)
	}
	return tasks, nil
}
