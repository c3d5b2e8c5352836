package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pathwayhr/pathway/internal/model"
	"github.com/pathwayhr/pathway/internal/program"
)

// seedFile is the YAML shape accepted by "pathway seed".
type seedFile struct {
	Users    []seedUser    `yaml:"users"`
	Programs []seedProgram `yaml:"programs"`
}

type seedUser struct {
	ID         string `yaml:"id"`
	Email      string `yaml:"email"`
	Name       string `yaml:"name"`
	SystemRole string `yaml:"system_role"`
	Status     string `yaml:"status"`
}

type seedProgram struct {
	Name         string      `yaml:"name"`
	Slug         string      `yaml:"slug"`
	Type         string      `yaml:"type"`
	Activate     bool        `yaml:"activate"`
	AllowStartBy []string    `yaml:"allow_start_by"`
	Stages       []seedStage `yaml:"stages"`
}

type seedStage struct {
	Name       string                      `yaml:"name"`
	Type       string                      `yaml:"type"`
	OriginalID string                      `yaml:"original_id"`
	Fields     []seedField                 `yaml:"fields"`
	RoleAccess map[string]model.StageAccess `yaml:"role_access"`
}

type seedField struct {
	ID       string `yaml:"id"`
	Label    string `yaml:"label"`
	Type     string `yaml:"type"`
	Required bool   `yaml:"required"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load programs, stages, and users from a seed file",
	Long: `Load a declarative seed file into the store. Existing documents are not
touched; a seed that collides with an existing program slug fails on
that program and stops.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading seed file: %w", err)
		}
		var seed seedFile
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return fmt.Errorf("parsing seed YAML: %w", err)
		}

		ctx := cmd.Context()
		a, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		w := cmd.OutOrStdout()
		for _, u := range seed.Users {
			if err := a.store.PutUser(ctx, &model.UserProfile{
				ID:         u.ID,
				Email:      u.Email,
				Name:       u.Name,
				SystemRole: u.SystemRole,
				Status:     u.Status,
			}); err != nil {
				return fmt.Errorf("seed user %s: %w", u.ID, err)
			}
			fmt.Fprintf(w, "user %s\n", u.ID)
		}

		for _, sp := range seed.Programs {
			p, err := a.programs.Create(ctx, cliActor, program.CreateInput{
				Name:         sp.Name,
				Slug:         sp.Slug,
				Type:         sp.Type,
				AllowStartBy: sp.AllowStartBy,
			})
			if err != nil {
				return fmt.Errorf("seed program %s: %w", sp.Slug, err)
			}
			fmt.Fprintf(w, "program %s (%s)\n", p.Slug, p.ID)

			for _, ss := range sp.Stages {
				fields := make([]model.FormField, 0, len(ss.Fields))
				for _, f := range ss.Fields {
					fields = append(fields, model.FormField{
						ID:       f.ID,
						Label:    f.Label,
						Type:     f.Type,
						Required: f.Required,
					})
				}
				st, err := a.programs.AddStage(ctx, cliActor, p.ID, program.AddStageInput{
					Name:            ss.Name,
					Type:            ss.Type,
					OriginalStageID: ss.OriginalID,
					Config:          model.StageConfig{FormFields: fields},
					RoleAccess:      ss.RoleAccess,
				})
				if err != nil {
					return fmt.Errorf("seed stage %s in %s: %w", ss.Name, sp.Slug, err)
				}
				fmt.Fprintf(w, "  stage %s (%s)\n", st.Name, st.ID)
			}

			if sp.Activate {
				if _, err := a.programs.Activate(ctx, cliActor, p.ID); err != nil {
					return fmt.Errorf("activate program %s: %w", sp.Slug, err)
				}
				fmt.Fprintf(w, "  activated\n")
			}
		}
		return nil
	},
}
