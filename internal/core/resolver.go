package core

import (
	"log/slog"

	"github.com/google/uuid"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// DependencyResolver turns raw dependency references into identifier
// references. A reference is either a task ID or a task name.
type DependencyResolver struct {
	byName map[string]string
	// known maps the canonical form of each identifier to the stored one.
	known  map[string]string
	logger *slog.Logger
}

// NewDependencyResolver builds a resolver over the existing collection and
// the name->ID lookup of the current batch. Batch names shadow existing ones.
func NewDependencyResolver(existing []models.Task, batch map[string]string, logger *slog.Logger) *DependencyResolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &DependencyResolver{
		byName: make(map[string]string, len(existing)+len(batch)),
		known:  make(map[string]string, len(existing)+len(batch)),
		logger: logger,
	}
	for _, t := range existing {
		r.byName[t.Name] = t.ID
		r.known[canonicalID(t.ID)] = t.ID
	}
	for name, id := range batch {
		r.byName[name] = id
		r.known[canonicalID(id)] = id
	}
	return r
}

// IsTaskID reports whether ref has the identifier format.
func IsTaskID(ref string) bool {
	_, err := uuid.Parse(ref)
	return err == nil
}

// canonicalID returns the lowercase hyphenated form of an identifier, so
// urn:uuid:, braced and uppercase spellings match. Other strings are
// returned unchanged.
func canonicalID(ref string) string {
	id, err := uuid.Parse(ref)
	if err != nil {
		return ref
	}
	return id.String()
}

// Resolve returns the resolved dependencies in reference order along with the
// references that were dropped. Dropping is a warning, not a failure.
func (r *DependencyResolver) Resolve(refs []string) ([]models.TaskDependency, []string) {
	deps := make([]models.TaskDependency, 0, len(refs))
	seen := make(map[string]bool, len(refs))
	var dropped []string

	for _, ref := range refs {
		id, ok := r.lookup(ref)
		if !ok {
			dropped = append(dropped, ref)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		deps = append(deps, models.TaskDependency{TaskID: id})
	}
	return deps, dropped
}

func (r *DependencyResolver) lookup(ref string) (string, bool) {
	if IsTaskID(ref) {
		if id, ok := r.known[canonicalID(ref)]; ok {
			return id, true
		}
		r.logger.Warn("dropping dangling dependency id", "ref", ref)
		return "", false
	}
	if id, ok := r.byName[ref]; ok {
		return id, true
	}
	r.logger.Warn("dropping unresolvable dependency name", "ref", ref)
	return "", false
}
