package core

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/taskgraph/internal/storage"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// projectNamePattern is the naming policy for projects.
var projectNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,50}$`)

// reservedProjectNames collide with files and directories the registry owns.
var reservedProjectNames = map[string]bool{
	"config":   true,
	"projects": true,
	"memory":   true,
	"default":  true,
}

// FallbackProjectName is created when the registry is empty.
const FallbackProjectName = "main"

// ValidateProjectName checks name against the naming policy and the reserved
// word list.
func ValidateProjectName(name string) error {
	if !projectNamePattern.MatchString(name) {
		return &ValidationError{
			Field:  "name",
			Reason: fmt.Sprintf("project name %q must be 3-50 characters of letters, digits, '-' or '_'", name),
		}
	}
	if reservedProjectNames[strings.ToLower(name)] {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("project name %q is reserved", name)}
	}
	return nil
}

// ProjectRegistryConfig holds the collaborators of a ProjectRegistry.
type ProjectRegistryConfig struct {
	BasePath         string
	Store            storage.RegistryStore
	Initializer      ProjectInitializer
	ArchiveRetention models.RetentionPolicy
	Events           EventLogger
	Logger           *slog.Logger
	Now              func() time.Time
}

// ProjectRegistry maps project names to isolated storage directories and
// tracks the default project. It always holds at least one project once
// EnsureDefault has run.
type ProjectRegistry struct {
	basePath         string
	store            storage.RegistryStore
	init             ProjectInitializer
	archiveRetention models.RetentionPolicy
	events           EventLogger
	logger           *slog.Logger
	now              func() time.Time
}

// NewProjectRegistry creates a ProjectRegistry rooted at cfg.BasePath.
func NewProjectRegistry(cfg ProjectRegistryConfig) *ProjectRegistry {
	r := &ProjectRegistry{
		basePath:         cfg.BasePath,
		store:            cfg.Store,
		init:             cfg.Initializer,
		archiveRetention: cfg.ArchiveRetention,
		events:           cfg.Events,
		logger:           cfg.Logger,
		now:              cfg.Now,
	}
	if r.store == nil {
		r.store = storage.NewRegistryStore(cfg.BasePath)
	}
	if r.init == nil {
		r.init = NewProjectInitializer()
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	if r.now == nil {
		r.now = func() time.Time { return time.Now().UTC() }
	}
	return r
}

// ContextFor returns the storage locations of the named project without
// consulting the registry.
func (r *ProjectRegistry) ContextFor(name string) models.ProjectContext {
	dir := filepath.Join(r.basePath, "projects", name)
	return models.ProjectContext{
		Name:      name,
		Dir:       dir,
		TaskFile:  filepath.Join(dir, "tasks.yaml"),
		MemoryDir: filepath.Join(dir, "memory"),
		LockFile:  filepath.Join(dir, ".lock"),
	}
}

// Create registers a new project and scaffolds its directory. The first
// project always becomes the default.
func (r *ProjectRegistry) Create(name, description string, setDefault bool) (*models.Project, error) {
	if err := ValidateProjectName(name); err != nil {
		return nil, err
	}
	reg, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	if _, exists := reg.Projects[name]; exists {
		return nil, &ConflictError{Reason: fmt.Sprintf("project %q already exists", name)}
	}

	if _, err := r.init.Init(r.ContextFor(name)); err != nil {
		return nil, fmt.Errorf("creating project %s: %w", name, err)
	}

	now := r.now()
	p := models.Project{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	reg.Projects[name] = p
	if setDefault || reg.DefaultProject == "" {
		reg.DefaultProject = name
	}
	if err := r.store.Save(reg); err != nil {
		return nil, err
	}

	logEvent(r.events, EventProjectCreated, map[string]any{"project": name, "default": reg.DefaultProject == name})
	return &p, nil
}

// List returns projects sorted by name. Inactive projects are included only
// when includeInactive is set.
func (r *ProjectRegistry) List(includeInactive bool) ([]models.Project, error) {
	reg, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	out := make([]models.Project, 0, len(reg.Projects))
	for _, p := range reg.Projects {
		if p.Active || includeInactive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns the named project.
func (r *ProjectRegistry) Get(name string) (*models.Project, error) {
	reg, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	p, ok := reg.Projects[name]
	if !ok {
		return nil, &NotFoundError{Kind: "project", Key: name}
	}
	return &p, nil
}

// Default returns the current default project.
func (r *ProjectRegistry) Default() (*models.Project, error) {
	reg, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	p, ok := reg.Projects[reg.DefaultProject]
	if !ok {
		return nil, &NotFoundError{Kind: "project", Key: reg.DefaultProject}
	}
	return &p, nil
}

// SetDefault marks an existing, active project as the default.
func (r *ProjectRegistry) SetDefault(name string) error {
	reg, err := r.store.Load()
	if err != nil {
		return err
	}
	p, ok := reg.Projects[name]
	if !ok {
		return &NotFoundError{Kind: "project", Key: name}
	}
	if !p.Active {
		return &ConflictError{Reason: fmt.Sprintf("project %q is inactive", name)}
	}
	if reg.DefaultProject == name {
		return nil
	}
	previous := reg.DefaultProject
	reg.DefaultProject = name
	if err := r.store.Save(reg); err != nil {
		return err
	}
	logEvent(r.events, EventDefaultChanged, map[string]any{"from": previous, "to": name})
	return nil
}

// SetActive toggles a project's active flag. The default project cannot be
// deactivated.
func (r *ProjectRegistry) SetActive(name string, active bool) error {
	reg, err := r.store.Load()
	if err != nil {
		return err
	}
	p, ok := reg.Projects[name]
	if !ok {
		return &NotFoundError{Kind: "project", Key: name}
	}
	if !active && reg.DefaultProject == name {
		return &ConflictError{Reason: fmt.Sprintf("project %q is the default and cannot be deactivated", name)}
	}
	p.Active = active
	p.UpdatedAt = r.now()
	reg.Projects[name] = p
	return r.store.Save(reg)
}

// Context resolves a project name into its storage context. An empty name
// selects the default project.
func (r *ProjectRegistry) Context(name string) (models.ProjectContext, error) {
	reg, err := r.store.Load()
	if err != nil {
		return models.ProjectContext{}, err
	}
	if name == "" {
		name = reg.DefaultProject
	}
	if _, ok := reg.Projects[name]; !ok {
		return models.ProjectContext{}, &NotFoundError{Kind: "project", Key: name}
	}
	return r.ContextFor(name), nil
}

// EnsureDefault guarantees the registry holds at least one project and that
// the default points at a registered one. fallback names the project to
// create when the registry is empty.
func (r *ProjectRegistry) EnsureDefault(fallback string) (*models.Project, error) {
	if fallback == "" {
		fallback = FallbackProjectName
	}
	reg, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	if len(reg.Projects) == 0 {
		return r.Create(fallback, "Default project", true)
	}
	if p, ok := reg.Projects[reg.DefaultProject]; ok {
		return &p, nil
	}

	reg.DefaultProject = nextDefaultName(reg.Projects)
	if err := r.store.Save(reg); err != nil {
		return nil, err
	}
	p := reg.Projects[reg.DefaultProject]
	return &p, nil
}

// Delete removes a project and its storage. The last remaining project can
// never be deleted. When archiveTasks is set the project's tasks are archived
// into its memory area first; archiving is best-effort, and when it succeeds
// the memory area survives holding only project archives. The registry is
// saved before any file is removed.
func (r *ProjectRegistry) Delete(name string, archiveTasks bool) error {
	reg, err := r.store.Load()
	if err != nil {
		return err
	}
	if _, ok := reg.Projects[name]; !ok {
		return &NotFoundError{Kind: "project", Key: name}
	}
	if len(reg.Projects) <= 1 {
		return &ConflictError{Reason: fmt.Sprintf("project %q is the last project and cannot be deleted", name)}
	}

	pc := r.ContextFor(name)
	archive := ""
	if archiveTasks {
		archive, err = r.archive(pc)
		if err != nil {
			r.logger.Warn("archiving project tasks before delete", "project", name, "error", err)
		}
	}

	delete(reg.Projects, name)
	if reg.DefaultProject == name {
		reg.DefaultProject = nextDefaultName(reg.Projects)
	}
	if err := r.store.Save(reg); err != nil {
		return err
	}

	if archive != "" {
		err = retainArchives(pc.Dir, pc.MemoryDir)
	} else {
		err = os.RemoveAll(pc.Dir)
	}
	if err != nil {
		return fmt.Errorf("deleting project %s storage: %w", name, err)
	}

	logEvent(r.events, EventProjectDeleted, map[string]any{
		"project":     name,
		"archive":     archive,
		"new_default": reg.DefaultProject,
	})
	return nil
}

func (r *ProjectRegistry) archive(pc models.ProjectContext) (string, error) {
	if _, err := os.Stat(pc.TaskFile); err != nil {
		return "", fmt.Errorf("reading task file: %w", err)
	}
	tasks, err := storage.NewTaskStore(pc.TaskFile).Load()
	if err != nil {
		return "", err
	}
	return storage.NewArchiveManager(pc.MemoryDir, r.archiveRetention).Archive(tasks)
}

// retainArchives deletes every entry of dir other than memDir, then every
// entry of memDir that is not a project archive.
func retainArchives(dir, memDir string) error {
	if err := removeEntries(dir, func(path string, _ os.DirEntry) bool { return path == memDir }); err != nil {
		return err
	}
	return removeEntries(memDir, func(_ string, e os.DirEntry) bool {
		return !e.IsDir() && storage.IsArchiveName(e.Name())
	})
}

// removeEntries deletes every entry of dir for which keep returns false.
func removeEntries(dir string, keep func(path string, e os.DirEntry) bool) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if keep(path, e) {
			continue
		}
		if err := os.RemoveAll(path); err != nil {
			return err
		}
	}
	return nil
}

// nextDefaultName picks the alphabetically first active project, falling
// back to the first project of any state.
func nextDefaultName(projects map[string]models.Project) string {
	names := make([]string, 0, len(projects))
	for n := range projects {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if projects[n].Active {
			return n
		}
	}
	if len(names) == 0 {
		return ""
	}
	return names[0]
}
