package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valter-silva-au/taskgraph/internal/observability"
	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

func newTestRegistry(t *testing.T) (*ProjectRegistry, string, *recordingEvents) {
	t.Helper()
	base := t.TempDir()
	events := &recordingEvents{}
	r := NewProjectRegistry(ProjectRegistryConfig{
		BasePath:         base,
		ArchiveRetention: models.RetentionPolicy{Enabled: true, MaxCount: 5},
		Events:           events,
		Logger:           observability.NewDiscardLogger(),
	})
	return r, base, events
}

func TestValidateProjectName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"simple", "backend", true},
		{"digits and separators", "web_app-2", true},
		{"min length", "abc", true},
		{"max length", strings.Repeat("a", 50), true},
		{"too short", "ab", false},
		{"too long", strings.Repeat("a", 51), false},
		{"space", "my project", false},
		{"slash", "a/b/c", false},
		{"dot dot", "..x", false},
		{"reserved", "config", false},
		{"reserved any case", "Projects", false},
		{"reserved default", "default", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProjectName(tt.input)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, ErrValidation), "got %v", err)
		})
	}
}

func TestProjectRegistry_CreateScaffoldsAndDefaults(t *testing.T) {
	r, base, events := newTestRegistry(t)

	p, err := r.Create("alpha", "first", false)
	require.NoError(t, err)
	assert.Equal(t, "alpha", p.Name)
	assert.True(t, p.Active)
	assert.NotEmpty(t, p.ID)

	pc := r.ContextFor("alpha")
	assert.Equal(t, filepath.Join(base, "projects", "alpha"), pc.Dir)
	assert.DirExists(t, pc.MemoryDir)
	assert.FileExists(t, pc.TaskFile)

	def, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "alpha", def.Name, "the first project becomes the default")

	_, err = r.Create("beta", "", false)
	require.NoError(t, err)
	def, err = r.Default()
	require.NoError(t, err)
	assert.Equal(t, "alpha", def.Name)

	_, err = r.Create("gamma", "", true)
	require.NoError(t, err)
	def, err = r.Default()
	require.NoError(t, err)
	assert.Equal(t, "gamma", def.Name)

	assert.Equal(t, []string{EventProjectCreated, EventProjectCreated, EventProjectCreated}, events.events)
}

func TestProjectRegistry_CreateRejectsDuplicatesAndBadNames(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, err := r.Create("alpha", "", false)
	require.NoError(t, err)

	_, err = r.Create("alpha", "", false)
	assert.True(t, errors.Is(err, ErrConflict))

	_, err = r.Create("../escape", "", false)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestProjectRegistry_ListSortedAndFiltered(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := r.Create(name, "", false)
		require.NoError(t, err)
	}
	require.NoError(t, r.SetActive("mid", false))

	active, err := r.List(false)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "alpha", active[0].Name)
	assert.Equal(t, "zeta", active[1].Name)

	all, err := r.List(true)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	err = r.SetDefault("mid")
	assert.True(t, errors.Is(err, ErrConflict), "inactive projects cannot become the default")

	err = r.SetActive("zeta", false)
	assert.True(t, errors.Is(err, ErrConflict), "the default cannot be deactivated")
}

func TestProjectRegistry_SetDefault(t *testing.T) {
	r, _, events := newTestRegistry(t)
	_, err := r.Create("alpha", "", false)
	require.NoError(t, err)
	_, err = r.Create("beta", "", false)
	require.NoError(t, err)

	require.NoError(t, r.SetDefault("beta"))
	def, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "beta", def.Name)
	assert.Equal(t, EventDefaultChanged, events.events[len(events.events)-1])

	err = r.SetDefault("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProjectRegistry_Context(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, err := r.Create("alpha", "", false)
	require.NoError(t, err)
	_, err = r.Create("beta", "", false)
	require.NoError(t, err)

	pc, err := r.Context("")
	require.NoError(t, err)
	assert.Equal(t, "alpha", pc.Name)

	pc, err = r.Context("beta")
	require.NoError(t, err)
	assert.Equal(t, r.ContextFor("beta"), pc)

	_, err = r.Context("nope")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProjectRegistry_EnsureDefault(t *testing.T) {
	r, _, _ := newTestRegistry(t)

	p, err := r.EnsureDefault("")
	require.NoError(t, err)
	assert.Equal(t, FallbackProjectName, p.Name)

	p, err = r.EnsureDefault("other")
	require.NoError(t, err)
	assert.Equal(t, FallbackProjectName, p.Name, "an existing default is kept")

	projects, err := r.List(true)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestProjectRegistry_EnsureDefaultRepairsDanglingDefault(t *testing.T) {
	base := t.TempDir()
	store := storage.NewRegistryStore(base)
	require.NoError(t, store.Save(&storage.RegistryFile{
		DefaultProject: "ghost",
		Projects: map[string]models.Project{
			"delta": {Name: "delta", Active: true},
			"bravo": {Name: "bravo", Active: true},
		},
	}))
	r := NewProjectRegistry(ProjectRegistryConfig{BasePath: base, Logger: observability.NewDiscardLogger()})

	p, err := r.EnsureDefault("")
	require.NoError(t, err)
	assert.Equal(t, "bravo", p.Name)
}

func TestProjectRegistry_DeleteGuardsLastProject(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, err := r.EnsureDefault("")
	require.NoError(t, err)

	err = r.Delete(FallbackProjectName, false)
	assert.True(t, errors.Is(err, ErrConflict))

	err = r.Delete("missing", false)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProjectRegistry_DeleteMovesDefault(t *testing.T) {
	r, _, events := newTestRegistry(t)
	for _, name := range []string{"main", "zulu", "bravo"} {
		_, err := r.Create(name, "", false)
		require.NoError(t, err)
	}

	require.NoError(t, r.Delete("main", false))

	def, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "bravo", def.Name, "default moves to the alphabetically first project")
	assert.NoDirExists(t, r.ContextFor("main").Dir)

	last := events.data[len(events.data)-1]
	assert.Equal(t, "bravo", last["new_default"])
	assert.Equal(t, "", last["archive"])
}

func TestProjectRegistry_DeleteWithArchiveKeepsMemory(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, err := r.Create("keep", "", false)
	require.NoError(t, err)
	_, err = r.Create("gone", "", false)
	require.NoError(t, err)

	pc := r.ContextFor("gone")
	require.NoError(t, storage.NewTaskStore(pc.TaskFile).Save([]models.Task{
		existingTask(idAlpha, "ship it", models.StatusCompleted),
	}))

	require.NoError(t, r.Delete("gone", true))

	assert.NoFileExists(t, pc.TaskFile)
	entries, err := os.ReadDir(pc.MemoryDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "project_archive_"))

	dirEntries, err := os.ReadDir(pc.Dir)
	require.NoError(t, err)
	require.Len(t, dirEntries, 1)
	assert.Equal(t, "memory", dirEntries[0].Name())

	_, err = r.Get("gone")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestProjectRegistry_DeleteArchiveFailureStillDeletes(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, err := r.Create("keep", "", false)
	require.NoError(t, err)
	_, err = r.Create("gone", "", false)
	require.NoError(t, err)

	pc := r.ContextFor("gone")
	require.NoError(t, os.Remove(pc.TaskFile))

	require.NoError(t, r.Delete("gone", true))
	assert.NoDirExists(t, pc.Dir)
}

func TestProjectRegistry_DeletePrefersActiveDefault(t *testing.T) {
	r, _, events := newTestRegistry(t)
	for _, name := range []string{"zzz", "aaa", "mmm"} {
		_, err := r.Create(name, "", false)
		require.NoError(t, err)
	}
	require.NoError(t, r.SetActive("aaa", false))

	require.NoError(t, r.Delete("zzz", false))

	def, err := r.Default()
	require.NoError(t, err)
	assert.Equal(t, "mmm", def.Name, "inactive projects are skipped")
	assert.Equal(t, "mmm", events.data[len(events.data)-1]["new_default"])
}

func TestProjectRegistry_EnsureDefaultPrefersActive(t *testing.T) {
	base := t.TempDir()
	store := storage.NewRegistryStore(base)
	require.NoError(t, store.Save(&storage.RegistryFile{
		DefaultProject: "ghost",
		Projects: map[string]models.Project{
			"alpha": {Name: "alpha", Active: false},
			"delta": {Name: "delta", Active: true},
		},
	}))
	r := NewProjectRegistry(ProjectRegistryConfig{BasePath: base, Logger: observability.NewDiscardLogger()})

	p, err := r.EnsureDefault("")
	require.NoError(t, err)
	assert.Equal(t, "delta", p.Name)
}

func TestNextDefaultName_AllInactive(t *testing.T) {
	got := nextDefaultName(map[string]models.Project{
		"bravo": {Name: "bravo"},
		"alpha": {Name: "alpha"},
	})
	assert.Equal(t, "alpha", got)
	assert.Equal(t, "", nextDefaultName(nil))
}

// failingSaveStore loads from a real registry store but refuses to save.
type failingSaveStore struct {
	storage.RegistryStore
}

func (failingSaveStore) Save(*storage.RegistryFile) error {
	return errors.New("disk full")
}

func TestProjectRegistry_DeleteSaveFailureKeepsStorage(t *testing.T) {
	r, base, _ := newTestRegistry(t)
	_, err := r.Create("keep", "", false)
	require.NoError(t, err)
	_, err = r.Create("gone", "", false)
	require.NoError(t, err)
	pc := r.ContextFor("gone")

	broken := NewProjectRegistry(ProjectRegistryConfig{
		BasePath: base,
		Store:    failingSaveStore{storage.NewRegistryStore(base)},
		Logger:   observability.NewDiscardLogger(),
	})
	err = broken.Delete("gone", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	assert.DirExists(t, pc.Dir)
	assert.FileExists(t, pc.TaskFile)
	_, err = r.Get("gone")
	assert.NoError(t, err)
}

func TestProjectRegistry_DeleteWithArchiveDropsBackups(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	_, err := r.Create("keep", "", false)
	require.NoError(t, err)
	_, err = r.Create("gone", "", false)
	require.NoError(t, err)

	pc := r.ContextFor("gone")
	require.NoError(t, storage.NewTaskStore(pc.TaskFile).Save([]models.Task{
		existingTask(idAlpha, "ship it", models.StatusCompleted),
	}))
	backup := filepath.Join(pc.MemoryDir, "tasks_backup_20250115T110000.000000000Z.yaml")
	require.NoError(t, os.MkdirAll(pc.MemoryDir, 0o750))
	require.NoError(t, os.WriteFile(backup, []byte("[]\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(pc.MemoryDir, "notes.md"), []byte("x"), 0o600))

	require.NoError(t, r.Delete("gone", true))

	entries, err := os.ReadDir(pc.MemoryDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, storage.IsArchiveName(entries[0].Name()), "got %s", entries[0].Name())

	_, err = r.Create("gone", "", false)
	require.NoError(t, err)
	backups, err := storage.NewBackupManager(pc.MemoryDir, models.RetentionPolicy{}).List()
	require.NoError(t, err)
	assert.Empty(t, backups, "a re-created project starts without backups")
}
