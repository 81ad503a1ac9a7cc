package core

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// ReconcileOptions carries the injectable parts of a reconciliation.
type ReconcileOptions struct {
	// Now is the timestamp applied to created and updated tasks. Zero means
	// time.Now().UTC().
	Now time.Time
	// NewID generates task identifiers. Nil means uuid.NewString.
	NewID  func() string
	Logger *slog.Logger
}

// ReconcileResult is the outcome of reconciling a batch against a collection.
type ReconcileResult struct {
	Mode models.UpdateMode
	// Tasks is the full resulting collection.
	Tasks    []models.Task
	Created  []models.Task
	Updated  []models.Task
	Retained []models.Task
	Removed  []models.Task
	// DroppedDependencies maps a task name to the references that could not
	// be resolved for it.
	DroppedDependencies map[string][]string
	// RequiresBackup is set when the mode discards existing tasks that must
	// be snapshotted before the result is persisted.
	RequiresBackup bool
	// BackupFile is filled in by TaskService when a snapshot was written.
	BackupFile string
}

// Modified returns the created and updated tasks.
func (r *ReconcileResult) Modified() []models.Task {
	out := make([]models.Task, 0, len(r.Created)+len(r.Updated))
	out = append(out, r.Created...)
	return append(out, r.Updated...)
}

// Summary renders a one-line description of the reconciliation.
func (r *ReconcileResult) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: added %d task(s), updated %d, retained %d, removed %d",
		r.Mode, len(r.Created), len(r.Updated), len(r.Retained), len(r.Removed))
	if n := len(r.DroppedDependencies); n > 0 {
		fmt.Fprintf(&b, "; %d task(s) had unresolved dependencies", n)
	}
	if r.BackupFile != "" {
		fmt.Fprintf(&b, "; backup written to %s", r.BackupFile)
	}
	return b.String()
}

// provisionalTask is the intermediate form between pass 1 and pass 2. task has
// its final identifier but no dependencies yet.
type provisionalTask struct {
	candidate models.CandidateTask
	task      models.Task
	// existingIdx is the position of the task in the kept collection when a
	// selective reconciliation updates it in place, or -1 for new tasks.
	existingIdx int
}

// Reconcile computes the collection that results from applying incoming to
// existing under mode. It performs no I/O; persisting the result (and taking
// a backup when RequiresBackup is set) is the caller's job.
func Reconcile(existing []models.Task, incoming []models.CandidateTask, mode models.UpdateMode, opts ReconcileOptions) (*ReconcileResult, error) {
	if !mode.Valid() {
		return nil, &ValidationError{Field: "mode", Reason: fmt.Sprintf("unknown update mode %q", mode)}
	}
	if err := ValidateBatch(incoming); err != nil {
		return nil, err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	res := &ReconcileResult{
		Mode:                mode,
		DroppedDependencies: make(map[string][]string),
	}

	kept := partition(existing, mode, res)

	provisional := buildProvisional(kept, incoming, mode, now, newID)

	lookup := make(map[string]string, len(provisional))
	for _, p := range provisional {
		lookup[p.task.Name] = p.task.ID
	}
	resolver := NewDependencyResolver(kept, lookup, opts.Logger)

	updatedIdx := make(map[int]bool)
	for i := range provisional {
		p := &provisional[i]
		deps, dropped := resolver.Resolve(p.candidate.Dependencies)
		if len(dropped) > 0 {
			res.DroppedDependencies[p.task.Name] = dropped
		}
		applyCandidate(&p.task, p.candidate, deps, now)

		if p.existingIdx >= 0 {
			kept[p.existingIdx] = p.task
			updatedIdx[p.existingIdx] = true
			res.Updated = append(res.Updated, p.task)
		} else {
			res.Created = append(res.Created, p.task)
		}
	}

	for i, t := range kept {
		if !updatedIdx[i] {
			res.Retained = append(res.Retained, t)
		}
	}

	res.Tasks = make([]models.Task, 0, len(kept)+len(res.Created))
	res.Tasks = append(res.Tasks, kept...)
	res.Tasks = append(res.Tasks, res.Created...)

	if cycle := findCycle(res.Tasks); cycle != nil {
		return nil, &ValidationError{
			Field:  "dependencies",
			Reason: "dependency cycle: " + describeCycle(res.Tasks, cycle),
		}
	}
	return res, nil
}

// partition returns the existing tasks that survive mode, recording removed
// tasks on res.
func partition(existing []models.Task, mode models.UpdateMode, res *ReconcileResult) []models.Task {
	kept := make([]models.Task, 0, len(existing))
	for _, t := range existing {
		t = t.Clone()
		switch mode {
		case models.ModeOverwrite:
			if t.Status != models.StatusCompleted {
				res.Removed = append(res.Removed, t)
				continue
			}
		case models.ModeClearAll:
			res.Removed = append(res.Removed, t)
			continue
		}
		kept = append(kept, t)
	}
	res.RequiresBackup = mode == models.ModeClearAll && len(existing) > 0
	return kept
}

// buildProvisional is pass 1: every candidate gets an identifier and an empty
// dependency list.
func buildProvisional(kept []models.Task, incoming []models.CandidateTask, mode models.UpdateMode, now time.Time, newID func() string) []provisionalTask {
	byName := make(map[string]int, len(kept))
	if mode == models.ModeSelective {
		for i, t := range kept {
			if _, dup := byName[t.Name]; !dup {
				byName[t.Name] = i
			}
		}
	}

	out := make([]provisionalTask, 0, len(incoming))
	for _, c := range incoming {
		p := provisionalTask{candidate: c, existingIdx: -1}
		if idx, ok := byName[c.Name]; ok {
			p.task = kept[idx].Clone()
			p.existingIdx = idx
		} else {
			p.task = models.Task{
				ID:        newID(),
				Name:      c.Name,
				Status:    models.StatusPending,
				CreatedAt: now,
				UpdatedAt: now,
			}
		}
		p.task.Dependencies = []models.TaskDependency{}
		out = append(out, p)
	}
	return out
}

// applyCandidate is pass 2 for a single task: it writes the mutable fields
// and the resolved dependency set.
func applyCandidate(t *models.Task, c models.CandidateTask, deps []models.TaskDependency, now time.Time) {
	t.Description = c.Description
	t.Notes = c.Notes
	t.ImplementationGuide = c.ImplementationGuide
	t.VerificationCriteria = c.VerificationCriteria
	t.RelatedFiles = append([]models.RelatedFile(nil), c.RelatedFiles...)
	t.Dependencies = deps
	t.UpdatedAt = now
}

// ValidateBatch checks a batch before any mutation: names must be present and
// pairwise distinct, and related files must be well formed.
func ValidateBatch(incoming []models.CandidateTask) error {
	seen := make(map[string]int, len(incoming))
	for i, c := range incoming {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return &ValidationError{Field: fmt.Sprintf("tasks[%d].name", i), Reason: "must not be empty"}
		}
		if prev, dup := seen[c.Name]; dup {
			return &ValidationError{
				Field:  fmt.Sprintf("tasks[%d].name", i),
				Reason: fmt.Sprintf("duplicate task name %q (also at tasks[%d])", c.Name, prev),
			}
		}
		seen[c.Name] = i
		for j, f := range c.RelatedFiles {
			if err := ValidateRelatedFile(f); err != nil {
				return &ValidationError{
					Field:  fmt.Sprintf("tasks[%d].relatedFiles[%d]", i, j),
					Reason: err.Reason,
				}
			}
		}
	}
	return nil
}

// ValidateRelatedFile checks path, type and the optional line range.
func ValidateRelatedFile(f models.RelatedFile) *ValidationError {
	if strings.TrimSpace(f.Path) == "" {
		return &ValidationError{Field: "path", Reason: "must not be empty"}
	}
	if !f.Type.Valid() {
		return &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown related file type %q", f.Type)}
	}
	hasStart, hasEnd := f.LineStart != 0, f.LineEnd != 0
	if hasStart != hasEnd {
		return &ValidationError{Field: "lineStart", Reason: "lineStart and lineEnd must be given together"}
	}
	if hasStart {
		if f.LineStart < 1 {
			return &ValidationError{Field: "lineStart", Reason: "must be at least 1"}
		}
		if f.LineStart >= f.LineEnd {
			return &ValidationError{
				Field:  "lineStart",
				Reason: fmt.Sprintf("lineStart %d must be less than lineEnd %d", f.LineStart, f.LineEnd),
			}
		}
	}
	return nil
}

func describeCycle(tasks []models.Task, ids []string) string {
	names := make(map[string]string, len(tasks))
	for _, t := range tasks {
		names[t.ID] = t.Name
	}
	parts := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		parts = append(parts, names[id])
	}
	parts = append(parts, names[ids[0]])
	return strings.Join(parts, " -> ")
}
