package observability

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestEventLog(t *testing.T) (EventLog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "events.jsonl")
	log, err := NewJSONLEventLog(path)
	if err != nil {
		t.Fatalf("creating event log: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })
	return log, path
}

func TestEventLog_WriteAndRead(t *testing.T) {
	log, _ := newTestEventLog(t)

	now := time.Now().UTC().Truncate(time.Millisecond)
	events := []Event{
		{
			Time:    now,
			Level:   LevelInfo,
			Type:    "task.batch_reconciled",
			Message: "batch reconciled",
			Data:    map[string]any{"project": "main", "created": float64(3)},
		},
		{
			Time:    now.Add(time.Second),
			Level:   LevelWarn,
			Type:    "task.status_changed",
			Message: "task started",
			Data:    map[string]any{"project": "main", "new_status": "in_progress"},
		},
	}
	for _, e := range events {
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result))
	}
	if result[0].Type != "task.batch_reconciled" {
		t.Errorf("expected type task.batch_reconciled, got %s", result[0].Type)
	}
	if result[0].Data["created"] != float64(3) {
		t.Errorf("expected created=3, got %v", result[0].Data["created"])
	}
	if result[1].Level != LevelWarn {
		t.Errorf("expected level WARN, got %s", result[1].Level)
	}
	if !result[1].Time.Equal(now.Add(time.Second)) {
		t.Errorf("expected time %v, got %v", now.Add(time.Second), result[1].Time)
	}
}

func TestEventLog_WriteFillsDefaults(t *testing.T) {
	log, _ := newTestEventLog(t)

	before := time.Now().UTC().Add(-time.Second)
	if err := log.Write(Event{Type: "project.created"}); err != nil {
		t.Fatalf("writing event: %v", err)
	}

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 event, got %d", len(result))
	}
	if result[0].Level != LevelInfo {
		t.Errorf("expected default level INFO, got %s", result[0].Level)
	}
	if result[0].Time.Before(before) {
		t.Errorf("expected a current timestamp, got %v", result[0].Time)
	}
}

func TestEventLog_Filters(t *testing.T) {
	log, _ := newTestEventLog(t)

	base := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	for i, e := range []Event{
		{Type: "task.status_changed", Data: map[string]any{"project": "web"}},
		{Type: "task.deleted", Data: map[string]any{"project": "api"}},
		{Type: "task.status_changed", Data: map[string]any{"project": "api"}},
		{Type: "project.created"},
	} {
		e.Time = base.Add(time.Duration(i) * time.Minute)
		if err := log.Write(e); err != nil {
			t.Fatalf("writing event: %v", err)
		}
	}

	since := base.Add(90 * time.Second)
	tests := []struct {
		name   string
		filter EventFilter
		want   int
	}{
		{"no filter", EventFilter{}, 4},
		{"by type", EventFilter{Type: "task.status_changed"}, 2},
		{"by project", EventFilter{Project: "api"}, 2},
		{"by type and project", EventFilter{Type: "task.status_changed", Project: "api"}, 1},
		{"since", EventFilter{Since: &since}, 2},
		{"limit keeps the newest", EventFilter{Limit: 3}, 3},
		{"unknown type", EventFilter{Type: "nope"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := log.Read(tt.filter)
			if err != nil {
				t.Fatalf("reading events: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("expected %d events, got %d", tt.want, len(got))
			}
		})
	}

	latest, err := log.Read(EventFilter{Limit: 1})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(latest) != 1 || latest[0].Type != "project.created" {
		t.Errorf("expected the newest event, got %+v", latest)
	}
}

func TestEventLog_SkipsMalformedLines(t *testing.T) {
	log, path := newTestEventLog(t)

	if err := log.Write(Event{Type: "task.deleted"}); err != nil {
		t.Fatalf("writing event: %v", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("opening log: %v", err)
	}
	if _, err := f.WriteString("{not json\n\n"); err != nil {
		t.Fatalf("appending garbage: %v", err)
	}
	_ = f.Close()
	if err := log.Write(Event{Type: "task.updated"}); err != nil {
		t.Fatalf("writing event: %v", err)
	}

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 events, got %d", len(result))
	}
}

func TestEventLog_EmptyLog(t *testing.T) {
	log, _ := newTestEventLog(t)

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("expected 0 events, got %d", len(result))
	}
}

func TestEventLog_ConcurrentWrites(t *testing.T) {
	log, _ := newTestEventLog(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = log.Write(Event{Type: "task.updated", Message: fmt.Sprintf("update %d", i)})
		}(i)
	}
	wg.Wait()

	result, err := log.Read(EventFilter{})
	if err != nil {
		t.Fatalf("reading events: %v", err)
	}
	if len(result) != 50 {
		t.Errorf("expected 50 events, got %d", len(result))
	}
}

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("warn", &buf)

	logger.Info("hidden")
	logger.Warn("shown", "project", "main")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}
	if !strings.Contains(out, "shown") || !strings.Contains(out, "project=main") {
		t.Errorf("warn record missing: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]string{
		"debug":   "DEBUG",
		"WARN":    "WARN",
		"warning": "WARN",
		" error ": "ERROR",
		"":        "INFO",
		"bogus":   "INFO",
	}
	for in, want := range tests {
		if got := ParseLevel(in).String(); got != want {
			t.Errorf("ParseLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
