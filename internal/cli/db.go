package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pathwayhr/pathway/internal/store/pgstore"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the Postgres schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadValidConfig()
		if err != nil {
			return err
		}
		if cfg.Store.Backend != "postgres" {
			return fmt.Errorf("db migrate requires the postgres backend (configured: %s)", cfg.Store.Backend)
		}

		ctx := cmd.Context()
		st, err := pgstore.Open(ctx, cfg.Store.Postgres.DSN())
		if err != nil {
			return fmt.Errorf("open postgres store: %w", err)
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbMigrateCmd)
}
