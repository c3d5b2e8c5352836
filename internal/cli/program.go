package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pathwayhr/pathway/internal/program"
)

var programCmd = &cobra.Command{
	Use:   "program",
	Short: "Manage programs",
}

var programListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all programs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		programs, err := a.programs.List(cmd.Context())
		if err != nil {
			return fmt.Errorf("list programs: %w", err)
		}

		if len(programs) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No programs found.")
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%-36s %-20s %-14s %-8s %s\n", "ID", "SLUG", "TYPE", "ACTIVE", "NAME")
		fmt.Fprintf(w, "%-36s %-20s %-14s %-8s %s\n",
			strings.Repeat("-", 36),
			strings.Repeat("-", 20),
			strings.Repeat("-", 14),
			strings.Repeat("-", 8),
			strings.Repeat("-", 4))
		for _, p := range programs {
			fmt.Fprintf(w, "%-36s %-20s %-14s %-8t %s\n", p.ID, p.Slug, p.Type, p.IsActive, p.Name)
		}
		return nil
	},
}

var programCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a program",
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		slug, _ := cmd.Flags().GetString("slug")
		programType, _ := cmd.Flags().GetString("type")

		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.programs.Create(cmd.Context(), cliActor, program.CreateInput{
			Name: name,
			Slug: slug,
			Type: programType,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created program %s (%s)\n", p.Slug, p.ID)
		return nil
	},
}

var programActivateCmd = &cobra.Command{
	Use:   "activate <program-id>",
	Short: "Make a program the active one for its type",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		p, err := a.programs.Activate(cmd.Context(), cliActor, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Activated program %s\n", p.Slug)
		return nil
	},
}

var programStagesCmd = &cobra.Command{
	Use:   "stages <program-id>",
	Short: "List a program's stages in pipeline order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		stages, err := a.programs.Stages(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if len(stages) == 0 {
			fmt.Fprintln(w, "No stages found.")
			return nil
		}
		for i, st := range stages {
			fmt.Fprintf(w, "%2d. %-30s %-12s %s\n", i+1, st.Name, st.Type, st.ID)
		}
		return nil
	},
}

func init() {
	programCmd.AddCommand(programListCmd)
	programCmd.AddCommand(programCreateCmd)
	programCmd.AddCommand(programActivateCmd)
	programCmd.AddCommand(programStagesCmd)

	programCreateCmd.Flags().String("name", "", "Program display name")
	programCreateCmd.Flags().String("slug", "", "URL-safe unique identifier")
	programCreateCmd.Flags().String("type", "", "Program type (recruitment, promotion, ...)")
	programCreateCmd.MarkFlagRequired("name")
	programCreateCmd.MarkFlagRequired("slug")
	programCreateCmd.MarkFlagRequired("type")
}
