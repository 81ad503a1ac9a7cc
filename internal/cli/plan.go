package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"github.com/valter-silva-au/taskgraph/pkg/models"
	"gopkg.in/yaml.v3"
)

// planFile is the on-disk shape of a batch submitted with "taskgraph plan".
// A bare list of tasks is accepted as well.
type planFile struct {
	Mode  models.UpdateMode      `yaml:"mode,omitempty"`
	Tasks []models.CandidateTask `yaml:"tasks"`
}

var planModeFlag string

var planCmd = &cobra.Command{
	Use:   "plan <file.yaml|->",
	Short: "Submit a batch of tasks from a YAML file",
	Long: `Submit a batch of candidate tasks to the selected project.

The file holds either a list of tasks or a mapping with "mode" and "tasks".
Dependencies may name other tasks in the same batch, including ones that
appear later in the file. Use "-" to read from stdin.

Modes:
  append     add the batch to the existing tasks (default)
  overwrite  keep completed tasks and replace everything else
  selective  update tasks whose names match, add the rest
  clearAll   back up the current tasks, then replace them all`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tm, err := taskManager()
		if err != nil {
			return err
		}

		data, err := readPlanInput(cmd, args[0])
		if err != nil {
			return err
		}
		plan, err := parsePlan(data)
		if err != nil {
			return err
		}

		mode := plan.Mode
		if cmd.Flags().Changed("mode") || mode == "" {
			mode = models.UpdateMode(planModeFlag)
		}
		if !mode.Valid() {
			return fmt.Errorf("invalid mode %q: must be one of append, overwrite, selective, clearAll", mode)
		}

		res, err := tm.Reconcile(cmd.Context(), plan.Tasks, mode)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res.Summary())
		names := make([]string, 0, len(res.DroppedDependencies))
		for name := range res.DroppedDependencies {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "Warning: %s: dropped unresolved dependencies %v\n", name, res.DroppedDependencies[name])
		}
		printTaskTable(out, res.Modified())
		return nil
	},
}

func readPlanInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("reading plan from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}
	return data, nil
}

// parsePlan decodes either a planFile mapping or a bare task list.
func parsePlan(data []byte) (*planFile, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parsing plan: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, fmt.Errorf("parsing plan: file is empty")
	}

	var plan planFile
	switch root.Content[0].Kind {
	case yaml.SequenceNode:
		if err := root.Content[0].Decode(&plan.Tasks); err != nil {
			return nil, fmt.Errorf("parsing plan tasks: %w", err)
		}
	case yaml.MappingNode:
		if err := root.Content[0].Decode(&plan); err != nil {
			return nil, fmt.Errorf("parsing plan: %w", err)
		}
	default:
		return nil, fmt.Errorf("parsing plan: expected a list of tasks or a mapping with a tasks key")
	}
	return &plan, nil
}

func init() {
	planCmd.Flags().StringVarP(&planModeFlag, "mode", "m", string(models.ModeAppend),
		"update mode: append, overwrite, selective or clearAll")
	rootCmd.AddCommand(planCmd)
}
