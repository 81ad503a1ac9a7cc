package cli

import (
	"strings"
	"testing"
)

func TestSetVersionInfo(t *testing.T) {
	origVersion := appVersion
	origCommit := appCommit
	origDate := appDate
	defer func() {
		appVersion = origVersion
		appCommit = origCommit
		appDate = origDate
	}()

	SetVersionInfo("1.2.3", "abc1234", "2026-02-13")

	if appVersion != "1.2.3" {
		t.Errorf("appVersion = %q, want 1.2.3", appVersion)
	}
	if appCommit != "abc1234" {
		t.Errorf("appCommit = %q, want abc1234", appCommit)
	}
	if appDate != "2026-02-13" {
		t.Errorf("appDate = %q, want 2026-02-13", appDate)
	}
}

func TestExecute_UnknownCommand(t *testing.T) {
	_, err := runCLI(t, "", "nonexistent-command")
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	if !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestExecute_VersionSubcommand(t *testing.T) {
	// The version command writes to os.Stdout, so only success is checked.
	if _, err := runCLI(t, "", "version"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	subs := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		subs[cmd.Name()] = true
	}
	for _, name := range []string{"version", "plan", "task", "backup", "project", "mcp", "dashboard", "metrics", "alerts"} {
		if !subs[name] {
			t.Errorf("expected subcommand %q on root, but it was not registered", name)
		}
	}
	if rootCmd.PersistentFlags().Lookup("project") == nil {
		t.Error("expected a persistent --project flag")
	}
}

func TestCommands_ServicesNotInitialized(t *testing.T) {
	origProjects, origTasksFor := Projects, TasksFor
	origMetrics, origAlerts := Metrics, Alerts
	defer func() {
		Projects, TasksFor = origProjects, origTasksFor
		Metrics, Alerts = origMetrics, origAlerts
	}()
	Projects, TasksFor = nil, nil
	Metrics, Alerts = nil, nil

	for _, args := range [][]string{
		{"task", "list"},
		{"backup", "list"},
		{"project", "list"},
		{"mcp", "serve"},
		{"metrics"},
		{"alerts"},
	} {
		_, err := runCLI(t, "", args...)
		if err == nil || !strings.Contains(err.Error(), "not initialized") {
			t.Errorf("%v: expected a not initialized error, got %v", args, err)
		}
	}
}
