package observability

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// For any set of batch events, TasksCreated equals the sum of the created
// counts and Batches equals the number of batch events.
func TestProperty_MetricsBatchCountsMatchEvents(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		el, err := NewJSONLEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
		if err != nil {
			t.Fatalf("creating event log: %v", err)
		}
		defer el.Close()

		n := rapid.IntRange(1, 20).Draw(rt, "numEvents")
		base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
		modes := []string{"append", "overwrite", "selective", "clearAll"}

		wantCreated := 0
		wantByMode := make(map[string]int)
		for i := 0; i < n; i++ {
			created := rapid.IntRange(0, 50).Draw(rt, fmt.Sprintf("created_%d", i))
			mode := rapid.SampledFrom(modes).Draw(rt, fmt.Sprintf("mode_%d", i))
			wantCreated += created
			wantByMode[mode]++

			if err := el.Write(Event{
				Time: base.Add(time.Duration(i) * time.Minute),
				Type: "task.batch_reconciled",
				Data: map[string]any{"project": "alpha", "mode": mode, "created": created},
			}); err != nil {
				t.Fatalf("writing event: %v", err)
			}
		}

		m, err := NewMetricsCalculator(el).Calculate(base.Add(-time.Hour), "alpha")
		if err != nil {
			t.Fatalf("calculating metrics: %v", err)
		}
		if m.Batches != n {
			rt.Errorf("Batches = %d, want %d", m.Batches, n)
		}
		if m.TasksCreated != wantCreated {
			rt.Errorf("TasksCreated = %d, want %d", m.TasksCreated, wantCreated)
		}
		for mode, want := range wantByMode {
			if m.BatchesByMode[mode] != want {
				rt.Errorf("BatchesByMode[%s] = %d, want %d", mode, m.BatchesByMode[mode], want)
			}
		}
	})
}

// For any mix of event types, EventCount equals the number of events written.
func TestProperty_MetricsEventCountIsTotal(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		el, err := NewJSONLEventLog(filepath.Join(t.TempDir(), "events.jsonl"))
		if err != nil {
			t.Fatalf("creating event log: %v", err)
		}
		defer el.Close()

		types := []string{
			"task.batch_reconciled", "task.status_changed", "task.updated",
			"task.deleted", "backup.restored", "project.created",
		}
		n := rapid.IntRange(0, 30).Draw(rt, "numEvents")
		base := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
		for i := 0; i < n; i++ {
			if err := el.Write(Event{
				Time: base.Add(time.Duration(i) * time.Second),
				Type: rapid.SampledFrom(types).Draw(rt, fmt.Sprintf("type_%d", i)),
			}); err != nil {
				t.Fatalf("writing event: %v", err)
			}
		}

		m, err := NewMetricsCalculator(el).Calculate(base.Add(-time.Hour), "")
		if err != nil {
			t.Fatalf("calculating metrics: %v", err)
		}
		if m.EventCount != n {
			rt.Errorf("EventCount = %d, want %d", m.EventCount, n)
		}
	})
}
