package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskgraph/internal/core"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// Dashboard panel indices.
const (
	panelTasks = iota
	panelQueue
	panelProjects
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// load fetches a fresh snapshot; changes delivers file change
	// notifications when live reload is enabled.
	load    tea.Cmd
	changes <-chan struct{}

	// Data.
	snapshot dashboardSnapshot

	// State.
	loading bool
	err     error
}

type taskLine struct {
	id   string
	name string
}

type dashboardSnapshot struct {
	project        string
	counts         map[string]int
	ready          []taskLine
	blocked        []taskLine
	projects       []string
	defaultProject string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	snapshot dashboardSnapshot
	err      error
}

// tasksChangedMsg reports that the task file was rewritten.
type tasksChangedMsg struct{}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel(load tea.Cmd, changes <-chan struct{}) dashboardModel {
	return dashboardModel{
		activePanel: panelTasks,
		load:        load,
		changes:     changes,
		loading:     true,
		snapshot:    dashboardSnapshot{counts: make(map[string]int)},
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return tea.Batch(m.load, waitForChange(m.changes))
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, m.load
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tasksChangedMsg:
		return m, tea.Batch(m.load, waitForChange(m.changes))

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.snapshot = msg.snapshot
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" taskgraph ")
	if m.snapshot.project != "" {
		title = titleStyle.Render(fmt.Sprintf(" taskgraph: %s ", m.snapshot.project))
	}
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	tasksPanel := m.renderTasksPanel()
	queuePanel := m.renderQueuePanel()
	projectsPanel := m.renderProjectsPanel()

	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		colWidth := availableWidth / 3
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, colWidth-4)
		queuePanel = m.applyPanelStyle(panelQueue, queuePanel, colWidth-4)
		projectsPanel = m.applyPanelStyle(panelProjects, projectsPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, tasksPanel, queuePanel, projectsPanel)
	} else {
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		tasksPanel = m.applyPanelStyle(panelTasks, tasksPanel, panelWidth)
		queuePanel = m.applyPanelStyle(panelQueue, queuePanel, panelWidth)
		projectsPanel = m.applyPanelStyle(panelProjects, projectsPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, tasksPanel, queuePanel, projectsPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderTasksPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Tasks"))
	b.WriteString("\n")

	total := 0
	for _, s := range models.AllStatuses {
		total += m.snapshot.counts[string(s)]
	}
	if total == 0 {
		b.WriteString("  No tasks found.")
		return b.String()
	}

	for _, s := range models.AllStatuses {
		label := fmt.Sprintf("  %-14s %d", s, m.snapshot.counts[string(s)])
		b.WriteString(styleForStatus(string(s)).Render(label))
		b.WriteString("\n")
	}
	if n := len(m.snapshot.blocked); n > 0 {
		b.WriteString(statusBlocked.Render(fmt.Sprintf("  %-14s %d", "blocked", n)))
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("\n  Total: %d", total))

	return b.String()
}

func (m dashboardModel) renderQueuePanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Ready to start"))
	b.WriteString("\n")

	if len(m.snapshot.ready) == 0 {
		b.WriteString("  Nothing is ready.\n")
	}
	for _, t := range m.snapshot.ready {
		b.WriteString(fmt.Sprintf("  %s  %s\n", shortID(t.id), t.name))
	}

	if len(m.snapshot.blocked) > 0 {
		b.WriteString("\n")
		b.WriteString(statusBlocked.Render("  Blocked"))
		b.WriteString("\n")
		for _, t := range m.snapshot.blocked {
			b.WriteString(fmt.Sprintf("  %s  %s\n", shortID(t.id), t.name))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m dashboardModel) renderProjectsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Projects"))
	b.WriteString("\n")

	if len(m.snapshot.projects) == 0 {
		b.WriteString("  No projects.")
		return b.String()
	}
	for _, name := range m.snapshot.projects {
		marker := " "
		if name == m.snapshot.defaultProject {
			marker = "*"
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", marker, name))
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// projectLister is the subset of core.ProjectRegistry the dashboard reads.
type projectLister interface {
	List(includeInactive bool) ([]models.Project, error)
	Default() (*models.Project, error)
}

// dashboardLoader returns a command that snapshots the task manager and the
// project registry.
func dashboardLoader(tm core.TaskManager, projects projectLister) tea.Cmd {
	return func() tea.Msg {
		snap := dashboardSnapshot{
			project: tm.Project().Name,
			counts:  make(map[string]int),
		}

		tasks, err := tm.ListTasks()
		if err != nil {
			return dataLoadedMsg{err: fmt.Errorf("loading tasks: %w", err)}
		}
		for _, t := range tasks {
			snap.counts[string(t.Status)]++
		}
		ready, blocked := core.SplitPending(tasks)
		for _, t := range ready {
			snap.ready = append(snap.ready, taskLine{id: t.ID, name: t.Name})
		}
		for _, t := range blocked {
			snap.blocked = append(snap.blocked, taskLine{id: t.ID, name: t.Name})
		}

		if projects != nil {
			list, err := projects.List(false)
			if err != nil {
				return dataLoadedMsg{err: fmt.Errorf("loading projects: %w", err)}
			}
			for _, p := range list {
				snap.projects = append(snap.projects, p.Name)
			}
			if p, err := projects.Default(); err == nil {
				snap.defaultProject = p.Name
			}
		}

		return dataLoadedMsg{snapshot: snap}
	}
}

// waitForChange blocks until the next change notification. A nil channel
// disables live reload.
func waitForChange(changes <-chan struct{}) tea.Cmd {
	if changes == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return tasksChangedMsg{}
	}
}

// watchTaskFile watches the directory holding taskFile and signals on every
// write to it. The task file is replaced by rename, so the directory is
// watched rather than the file.
func watchTaskFile(taskFile string) (<-chan struct{}, func() error, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(taskFile)); err != nil {
		_ = w.Close()
		return nil, nil, fmt.Errorf("watching %s: %w", filepath.Dir(taskFile), err)
	}

	changes := make(chan struct{}, 1)
	go func() {
		defer close(changes)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != filepath.Clean(taskFile) {
					continue
				}
				if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) {
					continue
				}
				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				if Logger != nil {
					Logger.Warn("task file watcher", "error", err)
				}
			}
		}
	}()
	return changes, w.Close, nil
}

var dashboardNoWatchFlag bool

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for the selected project",
	Long: `Launch an interactive terminal dashboard showing task counts by status,
the tasks that are ready to start or blocked, and the registered projects.

The view reloads whenever the project's task file changes. Navigate between
panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tm, err := taskManager()
		if err != nil {
			return err
		}

		var changes <-chan struct{}
		if !dashboardNoWatchFlag {
			ch, stop, err := watchTaskFile(tm.Project().TaskFile)
			if err != nil {
				return err
			}
			defer func() { _ = stop() }()
			changes = ch
		}

		var projects projectLister
		if Projects != nil {
			projects = Projects
		}
		p := tea.NewProgram(newDashboardModel(dashboardLoader(tm, projects), changes), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	dashboardCmd.Flags().BoolVar(&dashboardNoWatchFlag, "no-watch", false, "disable live reload on task file changes")
	rootCmd.AddCommand(dashboardCmd)
}
