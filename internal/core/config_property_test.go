package core

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"
)

// TestProperty_ConfigFileRoundTrip checks that every value written to
// .taskgraph.yaml is read back unchanged.
func TestProperty_ConfigFileRoundTrip(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		project := rapid.StringMatching(`[a-z][a-z0-9_-]{2,20}`).Draw(rt, "project")
		if ValidateProjectName(project) != nil {
			rt.Skip("reserved name")
		}
		level := rapid.SampledFrom([]string{"debug", "info", "warn", "error"}).Draw(rt, "level")
		events := rapid.Bool().Draw(rt, "events")
		timeout := rapid.IntRange(0, 600).Draw(rt, "timeout")
		backupMax := rapid.IntRange(1, 100).Draw(rt, "backupMax")
		archiveMax := rapid.IntRange(1, 100).Draw(rt, "archiveMax")

		dir, err := os.MkdirTemp("", "taskgraph-config-*")
		if err != nil {
			rt.Fatalf("creating temp dir: %v", err)
		}
		defer os.RemoveAll(dir)

		content := fmt.Sprintf(`defaults:
  project: %s
log:
  level: %s
  events: %t
lock:
  timeout_seconds: %d
backup:
  retention:
    enabled: true
    max_count: %d
archive:
  retention:
    enabled: true
    max_count: %d
`, project, level, events, timeout, backupMax, archiveMax)
		if err := os.WriteFile(filepath.Join(dir, ".taskgraph.yaml"), []byte(content), 0o644); err != nil {
			rt.Fatalf("writing config: %v", err)
		}

		cm := NewConfigurationManager(dir)
		cfg, err := cm.LoadGlobalConfig()
		if err != nil {
			rt.Fatalf("loading config: %v", err)
		}
		if cfg.DefaultProject != project || cfg.LogLevel != level || cfg.EventLogEnabled != events {
			rt.Fatalf("config mismatch: %+v", cfg)
		}
		if cfg.LockTimeout != timeout {
			rt.Fatalf("LockTimeout = %d, want %d", cfg.LockTimeout, timeout)
		}
		if cfg.BackupRetention.MaxCount != backupMax || cfg.ArchiveRetention.MaxCount != archiveMax {
			rt.Fatalf("retention mismatch: %+v %+v", cfg.BackupRetention, cfg.ArchiveRetention)
		}
		if err := cm.ValidateConfig(cfg); err != nil {
			rt.Fatalf("round-tripped config should validate: %v", err)
		}
	})
}
