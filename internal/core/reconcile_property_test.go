package core

import (
	"fmt"
	"testing"

	"github.com/valter-silva-au/taskgraph/pkg/models"
	"pgregory.net/rapid"
)

// genExistingTasks builds a collection whose dependencies only point at
// earlier tasks, so it is acyclic.
func genExistingTasks(t *rapid.T) []models.Task {
	n := rapid.IntRange(0, 8).Draw(t, "existing")
	tasks := make([]models.Task, n)
	for i := range tasks {
		status := rapid.SampledFrom(models.AllStatuses).Draw(t, fmt.Sprintf("status%d", i))
		var deps []string
		for j := 0; j < i; j++ {
			if rapid.Bool().Draw(t, fmt.Sprintf("edge%d_%d", i, j)) {
				deps = append(deps, tasks[j].ID)
			}
		}
		tasks[i] = existingTask(fmt.Sprintf("11111111-0000-4000-8000-%012d", i), fmt.Sprintf("existing-%d", i), status, deps...)
	}
	return tasks
}

// genBatch builds a batch whose in-batch references only point forward, plus
// references to existing tasks by name or ID and some that resolve to nothing.
func genBatch(t *rapid.T, existing []models.Task) []models.CandidateTask {
	n := rapid.IntRange(0, 8).Draw(t, "incoming")
	batch := make([]models.CandidateTask, n)
	for i := range batch {
		c := candidate(fmt.Sprintf("new-%d", i))
		for j := i + 1; j < n; j++ {
			if rapid.Bool().Draw(t, fmt.Sprintf("fwd%d_%d", i, j)) {
				c.Dependencies = append(c.Dependencies, fmt.Sprintf("new-%d", j))
			}
		}
		for j, e := range existing {
			switch rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("ref%d_%d", i, j)) {
			case 1:
				c.Dependencies = append(c.Dependencies, e.Name)
			case 2:
				c.Dependencies = append(c.Dependencies, e.ID)
			}
		}
		if rapid.Bool().Draw(t, fmt.Sprintf("dangling%d", i)) {
			c.Dependencies = append(c.Dependencies, "no-such-task")
		}
		batch[i] = c
	}
	return batch
}

func TestProperty_ReconcileKeepsCollectionConsistent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		existing := genExistingTasks(rt)
		batch := genBatch(rt, existing)
		mode := rapid.SampledFrom(models.AllUpdateModes).Draw(rt, "mode")

		res, err := Reconcile(existing, batch, mode, reconcileOpts())
		if err != nil {
			rt.Fatalf("reconcile failed: %v", err)
		}

		kept := 0
		for _, e := range existing {
			switch mode {
			case models.ModeAppend, models.ModeSelective:
				kept++
			case models.ModeOverwrite:
				if e.Status == models.StatusCompleted {
					kept++
				}
			}
		}
		if got, want := len(res.Tasks), kept+len(batch); got != want {
			rt.Fatalf("len(Tasks) = %d, want %d", got, want)
		}
		if got := len(res.Created); got != len(batch) {
			rt.Fatalf("len(Created) = %d, want %d", got, len(batch))
		}
		if len(res.Removed) != len(existing)-kept {
			rt.Fatalf("len(Removed) = %d, want %d", len(res.Removed), len(existing)-kept)
		}

		ids := make(map[string]bool, len(res.Tasks))
		for _, task := range res.Tasks {
			if ids[task.ID] {
				rt.Fatalf("duplicate id %s", task.ID)
			}
			ids[task.ID] = true
		}
		for _, task := range res.Created {
			seen := make(map[string]bool)
			for _, d := range task.Dependencies {
				if !ids[d.TaskID] {
					rt.Fatalf("task %s depends on %s which is not in the collection", task.Name, d.TaskID)
				}
				if seen[d.TaskID] {
					rt.Fatalf("task %s lists %s twice", task.Name, d.TaskID)
				}
				seen[d.TaskID] = true
			}
		}
		if findCycle(res.Tasks) != nil {
			rt.Fatal("result contains a cycle")
		}

		wantBackup := mode == models.ModeClearAll && len(existing) > 0
		if res.RequiresBackup != wantBackup {
			rt.Fatalf("RequiresBackup = %v, want %v", res.RequiresBackup, wantBackup)
		}
	})
}
