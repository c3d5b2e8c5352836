package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "pathway",
	Short: "pathway is a program/process workflow engine",
	Long: `pathway runs configurable multi-stage programs (recruitment funnels,
onboarding tracks, approval chains) and tracks each user's traversal
through them as a process.

State lives in a document store: JSON files under ~/.pathway/data by
default, or Postgres when configured. The HTTP API is started with
"pathway serve".`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(programCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(seedCmd)
}
