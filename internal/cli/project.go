package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects (create, list, use, activate, delete)",
	Long: `Each project has its own task collection, backups and lock. Commands
that do not name a project with --project use the default project.`,
}

var (
	projectCreateDescFlag    string
	projectCreateDefaultFlag bool
)

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil {
			return fmt.Errorf("project registry not initialized")
		}
		p, err := Projects.Create(args[0], projectCreateDescFlag, projectCreateDefaultFlag)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created project %s\n", p.Name)
		return nil
	},
}

var projectListAllFlag bool

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil {
			return fmt.Errorf("project registry not initialized")
		}
		projects, err := Projects.List(projectListAllFlag)
		if err != nil {
			return err
		}
		def := ""
		if p, err := Projects.Default(); err == nil {
			def = p.Name
		}
		out := cmd.OutOrStdout()
		for _, p := range projects {
			marker := " "
			if p.Name == def {
				marker = "*"
			}
			state := ""
			if !p.Active {
				state = " (inactive)"
			}
			fmt.Fprintf(out, "%s %s%s  %s\n", marker, labelStyle.Render(p.Name), state, p.Description)
		}
		return nil
	},
}

var projectUseCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Make a project the default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil {
			return fmt.Errorf("project registry not initialized")
		}
		if err := Projects.SetDefault(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Default project is now %s\n", args[0])
		return nil
	},
}

// newProjectActiveCmd builds the activate and deactivate subcommands.
func newProjectActiveCmd(use, short, verb string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <name>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if Projects == nil {
				return fmt.Errorf("project registry not initialized")
			}
			if err := Projects.SetActive(args[0], active); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project %s %s
", args[0], verb)
			return nil
		},
	}
}

var (
	projectActivateCmd   = newProjectActiveCmd("activate", "Mark a project active", "activated", true)
	projectDeactivateCmd = newProjectActiveCmd("deactivate", "Hide a project from default listings", "deactivated", false)
)

var projectDeleteArchiveFlag bool

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a project and its tasks",
	Long: `Delete a project and its storage. With --archive the tasks are first
archived into the project's memory directory, which is kept.

The last remaining project cannot be deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Projects == nil {
			return fmt.Errorf("project registry not initialized")
		}
		if err := Projects.Delete(args[0], projectDeleteArchiveFlag); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", args[0])
		return nil
	},
}

func init() {
	projectCreateCmd.Flags().StringVarP(&projectCreateDescFlag, "description", "d", "", "project description")
	projectCreateCmd.Flags().BoolVar(&projectCreateDefaultFlag, "default", false, "make the new project the default")
	projectListCmd.Flags().BoolVarP(&projectListAllFlag, "all", "a", false, "include inactive projects")
	projectDeleteCmd.Flags().BoolVar(&projectDeleteArchiveFlag, "archive", false, "archive the project's tasks before deleting it")

	projectCmd.AddCommand(projectCreateCmd, projectListCmd, projectUseCmd,
		projectActivateCmd, projectDeactivateCmd, projectDeleteCmd)
	rootCmd.AddCommand(projectCmd)
}
