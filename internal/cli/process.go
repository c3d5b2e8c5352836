package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pathwayhr/pathway/internal/store"
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Inspect and manage processes",
}

var processListCmd = &cobra.Command{
	Use:   "list",
	Short: "List processes",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		userID, _ := cmd.Flags().GetString("user")
		programID, _ := cmd.Flags().GetString("program")
		status, _ := cmd.Flags().GetString("status")

		processes, err := a.processes.List(cmd.Context(), cliActor, store.ProcessFilter{
			UserID:    userID,
			ProgramID: programID,
			Status:    status,
		})
		if err != nil {
			return fmt.Errorf("list processes: %w", err)
		}

		if len(processes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No processes found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-36s %-20s %-14s %-12s %s\n", "ID", "USER", "TYPE", "STATUS", "CURRENT STAGE")
		fmt.Fprintf(w, "%-36s %-20s %-14s %-12s %s\n",
			strings.Repeat("-", 36),
			strings.Repeat("-", 20),
			strings.Repeat("-", 14),
			strings.Repeat("-", 12),
			strings.Repeat("-", 13))
		for _, p := range processes {
			fmt.Fprintf(w, "%-36s %-20s %-14s %-12s %s\n", p.ID, p.UserID, p.Type, p.Status, p.CurrentStageID)
		}
		return nil
	},
}

var processStatusCmd = &cobra.Command{
	Use:   "status <process-id> <status>",
	Short: "Set a process's status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.processes.UpdateStatus(cmd.Context(), cliActor, args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Process %s status is now %s\n", p.ID, p.Status)
		return nil
	},
}

var processAuditCmd = &cobra.Command{
	Use:   "audit <process-id>",
	Short: "Show a process's audit trail",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.audit.List(cmd.Context(), "process", args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(w, "No audit entries found.")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(w, "%s %-18s by %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.UserID)
		}
		return nil
	},
}

func init() {
	processCmd.AddCommand(processListCmd)
	processCmd.AddCommand(processStatusCmd)
	processCmd.AddCommand(processAuditCmd)

	processListCmd.Flags().String("user", "", "Filter by user id")
	processListCmd.Flags().String("program", "", "Filter by program id")
	processListCmd.Flags().String("status", "", "Filter by status (in_progress, approved, rejected)")
}
