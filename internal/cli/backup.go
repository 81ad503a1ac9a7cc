package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "List and restore task backups",
	Long: `Backups are written automatically before a clearAll reconciliation
replaces a non-empty task collection. They live in the project's memory
directory.`,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tm, err := taskManager()
		if err != nil {
			return err
		}
		backups, err := tm.ListBackups()
		if err != nil {
			return fmt.Errorf("listing backups: %w", err)
		}
		out := cmd.OutOrStdout()
		if len(backups) == 0 {
			fmt.Fprintln(out, "No backups found.")
			return nil
		}
		for _, b := range backups {
			fmt.Fprintf(out, "%s  %8d bytes  %s\n", b.Name, b.Size, b.CreatedAt.Format("2006-01-02 15:04:05 UTC"))
		}
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Replace the live tasks with a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tm, err := taskManager()
		if err != nil {
			return err
		}
		tasks, err := tm.RestoreBackup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored %d task(s) from %s\n", len(tasks), args[0])
		return nil
	},
}

func init() {
	backupCmd.AddCommand(backupListCmd, backupRestoreCmd)
	rootCmd.AddCommand(backupCmd)
}
