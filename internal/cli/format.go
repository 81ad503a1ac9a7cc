package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// Status styles shared by the task commands and the dashboard.
var (
	statusPending    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	statusInProgress = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	statusCompleted  = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	statusBlocked    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	labelStyle = lipgloss.NewStyle().Bold(true)
)

func styleForStatus(status string) lipgloss.Style {
	switch status {
	case string(models.StatusPending):
		return statusPending
	case string(models.StatusInProgress):
		return statusInProgress
	case string(models.StatusCompleted):
		return statusCompleted
	case "blocked":
		return statusBlocked
	default:
		return lipgloss.NewStyle()
	}
}

// printTaskTable writes one line per task: ID, status and name.
func printTaskTable(w io.Writer, tasks []models.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-12s  %s\n", "ID", "STATUS", "NAME")
	for _, t := range tasks {
		status := styleForStatus(string(t.Status)).Render(fmt.Sprintf("%-12s", t.Status))
		fmt.Fprintf(w, "%-36s  %s  %s\n", t.ID, status, t.Name)
	}
}

// printTask writes the full details of a task.
func printTask(w io.Writer, t models.Task) {
	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-14s", label+":")), value)
	}

	field("ID", t.ID)
	field("Name", t.Name)
	field("Status", styleForStatus(string(t.Status)).Render(string(t.Status)))
	field("Description", t.Description)
	field("Notes", t.Notes)
	field("Guide", t.ImplementationGuide)
	field("Verification", t.VerificationCriteria)
	field("Summary", t.Summary)
	if ids := t.DependencyIDs(); len(ids) > 0 {
		field("Depends on", strings.Join(ids, ", "))
	}
	for _, f := range t.RelatedFiles {
		loc := f.Path
		if f.LineStart > 0 {
			loc = fmt.Sprintf("%s:%d-%d", f.Path, f.LineStart, f.LineEnd)
		}
		field("File", fmt.Sprintf("%s [%s] %s", loc, f.Type, f.Description))
	}
	field("Created", t.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
	field("Updated", t.UpdatedAt.Format("2006-01-02 15:04:05 UTC"))
	if t.CompletedAt != nil {
		field("Completed", t.CompletedAt.Format("2006-01-02 15:04:05 UTC"))
	}
}
