// Package mcp provides an MCP (Model Context Protocol) server that exposes
// taskgraph operations as MCP tools for AI planning agents.
package mcp

import (
	"context"
	"fmt"
	"time"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/valter-silva-au/taskgraph/internal/core"
	"github.com/valter-silva-au/taskgraph/internal/observability"
	"github.com/valter-silva-au/taskgraph/pkg/models"
)

// ProjectDirectory is the subset of core.ProjectRegistry the server needs.
type ProjectDirectory interface {
	Create(name, description string, setDefault bool) (*models.Project, error)
	List(includeInactive bool) ([]models.Project, error)
	Default() (*models.Project, error)
	SetDefault(name string) error
	SetActive(name string, active bool) error
	Delete(name string, archiveTasks bool) error
}

// TaskManagerFactory returns the task manager of a project. An empty name
// selects the default project.
type TaskManagerFactory func(project string) (core.TaskManager, error)

// Server wraps taskgraph services and exposes them as MCP tools.
type Server struct {
	server   *gomcp.Server
	projects ProjectDirectory
	tasks    TaskManagerFactory
	metrics  observability.MetricsCalculator
	alerts   observability.AlertEngine
}

// Option configures optional Server collaborators.
type Option func(*Server)

// WithMetrics enables the get_metrics tool.
func WithMetrics(m observability.MetricsCalculator) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAlerts enables the get_alerts tool.
func WithAlerts(a observability.AlertEngine) Option {
	return func(s *Server) { s.alerts = a }
}

// NewServer creates a new MCP server over the given project directory and
// task manager factory.
func NewServer(projects ProjectDirectory, tasks TaskManagerFactory, version string, opts ...Option) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		projects: projects,
		tasks:    tasks,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "taskgraph", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type relatedFileInput struct {
	Path        string `json:"path" jsonschema:"file path relative to the repository root"`
	Type        string `json:"type" jsonschema:"one of TO_MODIFY, REFERENCE, CREATE, DEPENDENCY, OTHER"`
	Description string `json:"description,omitempty"`
	LineStart   int    `json:"line_start,omitempty" jsonschema:"first line of the relevant range; requires line_end"`
	LineEnd     int    `json:"line_end,omitempty" jsonschema:"last line of the relevant range; must be greater than line_start"`
}

type candidateInput struct {
	Name                 string             `json:"name" jsonschema:"short task name, unique within the batch"`
	Description          string             `json:"description" jsonschema:"work to do and acceptance criteria"`
	Notes                string             `json:"notes,omitempty"`
	ImplementationGuide  string             `json:"implementation_guide,omitempty"`
	VerificationCriteria string             `json:"verification_criteria,omitempty"`
	Dependencies         []string           `json:"dependencies,omitempty" jsonschema:"prerequisite task IDs or names; names may refer to tasks later in the same batch"`
	RelatedFiles         []relatedFileInput `json:"related_files,omitempty"`
}

type planTasksInput struct {
	Project string           `json:"project,omitempty" jsonschema:"project name; defaults to the default project"`
	Mode    string           `json:"mode" jsonschema:"append, overwrite, selective or clearAll"`
	Tasks   []candidateInput `json:"tasks"`
}

type planTasksOutput struct {
	Summary             string              `json:"summary"`
	BackupFile          string              `json:"backup_file,omitempty"`
	Created             []taskOutput        `json:"created"`
	Updated             []taskOutput        `json:"updated"`
	DroppedDependencies map[string][]string `json:"dropped_dependencies,omitempty"`
}

type taskOutput struct {
	ID                   string             `json:"id"`
	Name                 string             `json:"name"`
	Description          string             `json:"description"`
	Notes                string             `json:"notes,omitempty"`
	ImplementationGuide  string             `json:"implementation_guide,omitempty"`
	VerificationCriteria string             `json:"verification_criteria,omitempty"`
	Summary              string             `json:"summary,omitempty"`
	Status               string             `json:"status"`
	Dependencies         []string           `json:"dependencies"`
	RelatedFiles         []relatedFileInput `json:"related_files,omitempty"`
	CreatedAt            string             `json:"created_at"`
	UpdatedAt            string             `json:"updated_at"`
	CompletedAt          string             `json:"completed_at,omitempty"`
}

type projectScopedInput struct {
	Project string `json:"project,omitempty" jsonschema:"project name; defaults to the default project"`
}

type taskInput struct {
	Project string `json:"project,omitempty" jsonschema:"project name; defaults to the default project"`
	TaskID  string `json:"task_id" jsonschema:"the task identifier (UUID)"`
}

type listTasksInput struct {
	Project string `json:"project,omitempty" jsonschema:"project name; defaults to the default project"`
	Status  string `json:"status,omitempty" jsonschema:"filter by status (pending, in_progress, completed)"`
}

type listTasksOutput struct {
	Tasks []taskOutput `json:"tasks"`
	Count int          `json:"count"`
}

type queryTaskInput struct {
	Project          string `json:"project,omitempty" jsonschema:"project name; defaults to the default project"`
	Query            string `json:"query" jsonschema:"task ID or keyword matched against names and descriptions"`
	IncludeCompleted bool   `json:"include_completed,omitempty"`
}

type completeTaskInput struct {
	Project string `json:"project,omitempty" jsonschema:"project name; defaults to the default project"`
	TaskID  string `json:"task_id" jsonschema:"the task identifier (UUID)"`
	Summary string `json:"summary" jsonschema:"what was done and how it was verified"`
}

type canExecuteOutput struct {
	TaskID      string   `json:"task_id"`
	Executable  bool     `json:"executable"`
	BlockingIDs []string `json:"blocking_ids,omitempty"`
}

type updateTaskInput struct {
	Project              string             `json:"project,omitempty" jsonschema:"project name; defaults to the default project"`
	TaskID               string             `json:"task_id" jsonschema:"the task identifier (UUID)"`
	Name                 *string            `json:"name,omitempty"`
	Description          *string            `json:"description,omitempty"`
	Notes                *string            `json:"notes,omitempty"`
	ImplementationGuide  *string            `json:"implementation_guide,omitempty"`
	VerificationCriteria *string            `json:"verification_criteria,omitempty"`
	Summary              *string            `json:"summary,omitempty"`
	Dependencies         []string           `json:"dependencies,omitempty" jsonschema:"replacement prerequisite IDs or names"`
	RelatedFiles         []relatedFileInput `json:"related_files,omitempty" jsonschema:"replacement related files"`
}

type messageOutput struct {
	Message string `json:"message"`
}

type backupOutput struct {
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
	Size      int64  `json:"size"`
}

type listBackupsOutput struct {
	Backups []backupOutput `json:"backups"`
	Count   int            `json:"count"`
}

type restoreBackupInput struct {
	Project string `json:"project,omitempty" jsonschema:"project name; defaults to the default project"`
	Backup  string `json:"backup" jsonschema:"backup file name as returned by list_backups"`
}

type listProjectsInput struct {
	IncludeInactive bool `json:"include_inactive,omitempty"`
}

type projectOutput struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Active      bool   `json:"active"`
	Default     bool   `json:"default"`
	CreatedAt   string `json:"created_at"`
}

type listProjectsOutput struct {
	Projects []projectOutput `json:"projects"`
	Count    int             `json:"count"`
}

type createProjectInput struct {
	Name        string `json:"name" jsonschema:"3-50 characters of letters, digits, '-' or '_'"`
	Description string `json:"description,omitempty"`
	SetDefault  bool   `json:"set_default,omitempty"`
}

type switchProjectInput struct {
	Name string `json:"name" jsonschema:"project to make the default"`
}

type setProjectActiveInput struct {
	Name   string `json:"name" jsonschema:"project to update"`
	Active bool   `json:"active" jsonschema:"true to activate, false to hide the project from default listings"`
}

type deleteProjectInput struct {
	Name         string `json:"name" jsonschema:"project to delete"`
	ArchiveTasks bool   `json:"archive_tasks,omitempty" jsonschema:"archive the project's tasks before deleting it"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name: "plan_tasks",
		Description: "Submit a batch of tasks. Modes: append (add), overwrite (replace unfinished tasks, keep completed), " +
			"selective (update tasks with matching names, add the rest), clearAll (back up then replace everything). " +
			"Dependencies may name sibling tasks in the same batch.",
	}, s.handlePlanTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_tasks",
		Description: "List tasks in creation order with an optional status filter.",
	}, s.handleListTasks)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get the full details of a task by ID.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "query_task",
		Description: "Find tasks by ID or by keyword in their name or description.",
	}, s.handleQueryTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "execute_task",
		Description: "Start a pending task. Fails while any dependency is not completed.",
	}, s.handleExecuteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "complete_task",
		Description: "Mark an in-progress task completed with a summary of the work.",
	}, s.handleCompleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "can_execute",
		Description: "Report whether a task can start, listing the dependencies that block it.",
	}, s.handleCanExecute)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task",
		Description: "Update a task's content. Completed tasks only accept summary and related_files.",
	}, s.handleUpdateTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "delete_task",
		Description: "Delete a task that is not completed and that no other task depends on.",
	}, s.handleDeleteTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_backups",
		Description: "List task backups written before clearAll reconciliations, newest first.",
	}, s.handleListBackups)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "restore_backup",
		Description: "Replace the live task collection with a named backup.",
	}, s.handleRestoreBackup)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_projects",
		Description: "List registered projects and show which one is the default.",
	}, s.handleListProjects)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "create_project",
		Description: "Create a new project with its own task collection.",
	}, s.handleCreateProject)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "switch_project",
		Description: "Make a project the default for calls that do not name one.",
	}, s.handleSwitchProject)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "set_project_active",
		Description: "Activate or deactivate a project. Inactive projects are hidden from list_projects unless include_inactive is set, and the default project cannot be deactivated.",
	}, s.handleSetProjectActive)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "delete_project",
		Description: "Delete a project, optionally archiving its tasks first. The last project cannot be deleted.",
	}, s.handleDeleteProject)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated metrics from the event log: batches by mode, tasks created, started, completed and deleted, backups written and restored.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate task health alerts for a project: missing dependencies, long-blocked tasks, stale in-progress tasks and backlog size.",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handlePlanTasks(ctx context.Context, _ *gomcp.CallToolRequest, input planTasksInput) (*gomcp.CallToolResult, planTasksOutput, error) {
	mode := models.UpdateMode(input.Mode)
	if !mode.Valid() {
		return errorResult(fmt.Sprintf("validation: invalid mode %q: must be one of append, overwrite, selective, clearAll", input.Mode)), planTasksOutput{}, nil
	}
	tm, err := s.tasks(input.Project)
	if err != nil {
		return toolError(err), planTasksOutput{}, nil
	}

	candidates := make([]models.CandidateTask, len(input.Tasks))
	for i, c := range input.Tasks {
		candidates[i] = models.CandidateTask{
			Name:                 c.Name,
			Description:          c.Description,
			Notes:                c.Notes,
			ImplementationGuide:  c.ImplementationGuide,
			VerificationCriteria: c.VerificationCriteria,
			Dependencies:         c.Dependencies,
			RelatedFiles:         relatedFilesFromInput(c.RelatedFiles),
		}
	}

	res, err := tm.Reconcile(ctx, candidates, mode)
	if err != nil {
		return toolError(err), planTasksOutput{}, nil
	}

	out := planTasksOutput{
		Summary:    res.Summary(),
		BackupFile: res.BackupFile,
		Created:    tasksToOutput(res.Created),
		Updated:    tasksToOutput(res.Updated),
	}
	if len(res.DroppedDependencies) > 0 {
		out.DroppedDependencies = res.DroppedDependencies
	}
	return nil, out, nil
}

func (s *Server) handleListTasks(_ context.Context, _ *gomcp.CallToolRequest, input listTasksInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	var statuses []models.TaskStatus
	if input.Status != "" {
		st := models.TaskStatus(input.Status)
		if !st.Valid() {
			return errorResult(fmt.Sprintf("validation: invalid status %q: must be one of pending, in_progress, completed", input.Status)), listTasksOutput{}, nil
		}
		statuses = append(statuses, st)
	}
	tm, err := s.tasks(input.Project)
	if err != nil {
		return toolError(err), listTasksOutput{}, nil
	}
	tasks, err := tm.ListTasks(statuses...)
	if err != nil {
		return toolError(err), listTasksOutput{}, nil
	}
	out := listTasksOutput{Tasks: tasksToOutput(tasks), Count: len(tasks)}
	return nil, out, nil
}

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input taskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("validation: task_id is required"), taskOutput{}, nil
	}
	tm, err := s.tasks(input.Project)
	if err != nil {
		return toolError(err), taskOutput{}, nil
	}
	task, err := tm.GetTask(input.TaskID)
	if err != nil {
		return toolError(err), taskOutput{}, nil
	}
	return nil, taskToOutput(*task), nil
}

func (s *Server) handleQueryTask(_ context.Context, _ *gomcp.CallToolRequest, input queryTaskInput) (*gomcp.CallToolResult, listTasksOutput, error) {
	if input.Query == "" {
		return errorResult("validation: query is required"), listTasksOutput{}, nil
	}
	tm, err := s.tasks(input.Project)
	if err != nil {
		return toolError(err), listTasksOutput{}, nil
	}
	tasks, err := tm.SearchTasks(input.Query, input.IncludeCompleted)
	if err != nil {
		return toolError(err), listTasksOutput{}, nil
	}
	return nil, listTasksOutput{Tasks: tasksToOutput(tasks), Count: len(tasks)}, nil
}

func (s *Server) handleExecuteTask(ctx context.Context, _ *gomcp.CallToolRequest, input taskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("validation: task_id is required"), taskOutput{}, nil
	}
	tm, err := s.tasks(input.Project)
	if err != nil {
		return toolError(err), taskOutput{}, nil
	}
	task, err := tm.StartTask(ctx, input.TaskID)
	if err != nil {
		return toolError(err), taskOutput{}, nil
	}
	return nil, taskToOutput(*task), nil
}

func (s *Server) handleCompleteTask(ctx context.Context, _ *gomcp.CallToolRequest, input completeTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("validation: task_id is required"), taskOutput{}, nil
	}
	tm, err := s.tasks(input.Project)
	if err != nil {
		return toolError(err), taskOutput{}, nil
	}
	task, err := tm.CompleteTask(ctx, input.TaskID, input.Summary)
	if err != nil {
		return toolError(err), taskOutput{}, nil
	}
	return nil, taskToOutput(*task), nil
}

func (s *Server) handleCanExecute(_ context.Context, _ *gomcp.CallToolRequest, input taskInput) (*gomcp.CallToolResult, canExecuteOutput, error) {
	if input.TaskID == "" {
		return errorResult("validation: task_id is required"), canExecuteOutput{}, nil
	}
	tm, err := s.tasks(input.Project)
	if err != nil {
		return toolError(err), canExecuteOutput{}, nil
	}
	ex, err := tm.CanExecute(input.TaskID)
	if err != nil {
		return toolError(err), canExecuteOutput{}, nil
	}
	return nil, canExecuteOutput{TaskID: input.TaskID, Executable: ex.OK, BlockingIDs: ex.BlockingIDs}, nil
}

func (s *Server) handleUpdateTask(ctx context.Context, _ *gomcp.CallToolRequest, input updateTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("validation: task_id is required"), taskOutput{}, nil
	}
	tm, err := s.tasks(input.Project)
	if err != nil {
		return toolError(err), taskOutput{}, nil
	}

	update := core.TaskUpdate{
		Name:                 input.Name,
		Description:          input.Description,
		Notes:                input.Notes,
		ImplementationGuide:  input.ImplementationGuide,
		VerificationCriteria: input.VerificationCriteria,
		Summary:              input.Summary,
	}
	if input.Dependencies != nil {
		deps := input.Dependencies
		update.Dependencies = &deps
	}
	if input.RelatedFiles != nil {
		files := relatedFilesFromInput(input.RelatedFiles)
		update.RelatedFiles = &files
	}

	task, err := tm.UpdateContent(ctx, input.TaskID, update)
	if err != nil {
		return toolError(err), taskOutput{}, nil
	}
	return nil, taskToOutput(*task), nil
}

func (s *Server) handleDeleteTask(ctx context.Context, _ *gomcp.CallToolRequest, input taskInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.TaskID == "" {
		return errorResult("validation: task_id is required"), messageOutput{}, nil
	}
	tm, err := s.tasks(input.Project)
	if err != nil {
		return toolError(err), messageOutput{}, nil
	}
	if err := tm.DeleteTask(ctx, input.TaskID); err != nil {
		return toolError(err), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("task %s deleted", input.TaskID)}, nil
}

func (s *Server) handleListBackups(_ context.Context, _ *gomcp.CallToolRequest, input projectScopedInput) (*gomcp.CallToolResult, listBackupsOutput, error) {
	tm, err := s.tasks(input.Project)
	if err != nil {
		return toolError(err), listBackupsOutput{}, nil
	}
	infos, err := tm.ListBackups()
	if err != nil {
		return toolError(err), listBackupsOutput{}, nil
	}
	out := listBackupsOutput{Backups: make([]backupOutput, len(infos)), Count: len(infos)}
	for i, b := range infos {
		out.Backups[i] = backupOutput{Name: b.Name, Size: b.Size}
		if !b.CreatedAt.IsZero() {
			out.Backups[i].CreatedAt = b.CreatedAt.Format(time.RFC3339)
		}
	}
	return nil, out, nil
}

func (s *Server) handleRestoreBackup(ctx context.Context, _ *gomcp.CallToolRequest, input restoreBackupInput) (*gomcp.CallToolResult, messageOutput, error) {
	if input.Backup == "" {
		return errorResult("validation: backup is required"), messageOutput{}, nil
	}
	tm, err := s.tasks(input.Project)
	if err != nil {
		return toolError(err), messageOutput{}, nil
	}
	tasks, err := tm.RestoreBackup(ctx, input.Backup)
	if err != nil {
		return toolError(err), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("restored %d task(s) from %s", len(tasks), input.Backup)}, nil
}

func (s *Server) handleListProjects(_ context.Context, _ *gomcp.CallToolRequest, input listProjectsInput) (*gomcp.CallToolResult, listProjectsOutput, error) {
	projects, err := s.projects.List(input.IncludeInactive)
	if err != nil {
		return toolError(err), listProjectsOutput{}, nil
	}
	defaultName := ""
	if p, err := s.projects.Default(); err == nil {
		defaultName = p.Name
	}
	out := listProjectsOutput{Projects: make([]projectOutput, len(projects)), Count: len(projects)}
	for i, p := range projects {
		out.Projects[i] = projectOutput{
			Name:        p.Name,
			Description: p.Description,
			Active:      p.Active,
			Default:     p.Name == defaultName,
			CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

func (s *Server) handleCreateProject(_ context.Context, _ *gomcp.CallToolRequest, input createProjectInput) (*gomcp.CallToolResult, messageOutput, error) {
	p, err := s.projects.Create(input.Name, input.Description, input.SetDefault)
	if err != nil {
		return toolError(err), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("project %s created", p.Name)}, nil
}

func (s *Server) handleSwitchProject(_ context.Context, _ *gomcp.CallToolRequest, input switchProjectInput) (*gomcp.CallToolResult, messageOutput, error) {
	if err := s.projects.SetDefault(input.Name); err != nil {
		return toolError(err), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("default project is now %s", input.Name)}, nil
}

func (s *Server) handleSetProjectActive(_ context.Context, _ *gomcp.CallToolRequest, input setProjectActiveInput) (*gomcp.CallToolResult, messageOutput, error) {
	if err := s.projects.SetActive(input.Name, input.Active); err != nil {
		return toolError(err), messageOutput{}, nil
	}
	state := "inactive"
	if input.Active {
		state = "active"
	}
	return nil, messageOutput{Message: fmt.Sprintf("project %s is now %s", input.Name, state)}, nil
}

func (s *Server) handleDeleteProject(_ context.Context, _ *gomcp.CallToolRequest, input deleteProjectInput) (*gomcp.CallToolResult, messageOutput, error) {
	if err := s.projects.Delete(input.Name, input.ArchiveTasks); err != nil {
		return toolError(err), messageOutput{}, nil
	}
	return nil, messageOutput{Message: fmt.Sprintf("project %s deleted", input.Name)}, nil
}

// --- Helpers ---

func taskToOutput(t models.Task) taskOutput {
	out := taskOutput{
		ID:                   t.ID,
		Name:                 t.Name,
		Description:          t.Description,
		Notes:                t.Notes,
		ImplementationGuide:  t.ImplementationGuide,
		VerificationCriteria: t.VerificationCriteria,
		Summary:              t.Summary,
		Status:               string(t.Status),
		Dependencies:         t.DependencyIDs(),
		CreatedAt:            t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            t.UpdatedAt.Format(time.RFC3339),
	}
	for _, f := range t.RelatedFiles {
		out.RelatedFiles = append(out.RelatedFiles, relatedFileInput{
			Path:        f.Path,
			Type:        string(f.Type),
			Description: f.Description,
			LineStart:   f.LineStart,
			LineEnd:     f.LineEnd,
		})
	}
	if t.CompletedAt != nil {
		out.CompletedAt = t.CompletedAt.Format(time.RFC3339)
	}
	return out
}

func tasksToOutput(tasks []models.Task) []taskOutput {
	out := make([]taskOutput, len(tasks))
	for i, t := range tasks {
		out[i] = taskToOutput(t)
	}
	return out
}

func relatedFilesFromInput(in []relatedFileInput) []models.RelatedFile {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.RelatedFile, len(in))
	for i, f := range in {
		out[i] = models.RelatedFile{
			Path:        f.Path,
			Type:        models.RelatedFileType(f.Type),
			Description: f.Description,
			LineStart:   f.LineStart,
			LineEnd:     f.LineEnd,
		}
	}
	return out
}

// toolError converts a core error into an error result. Domain errors already
// carry their class as a prefix; anything else is reported as internal.
func toolError(err error) *gomcp.CallToolResult {
	if core.ErrorClass(err) == "internal" {
		return errorResult("internal: " + err.Error())
	}
	return errorResult(err.Error())
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
