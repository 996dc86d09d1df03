package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsledger/opsledger/internal/database"
)

var migrateDir string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		if cfg.DryRun {
			fmt.Println("[dry-run] skipping migrations")
			return nil
		}
		if err := database.RunMigrations(cfg.Database, migrateDir); err != nil {
			return fmt.Errorf("migrations failed: %w", err)
		}
		fmt.Println("Migrations applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDir, "dir", "./migrations", "directory holding SQL migrations")
	rootCmd.AddCommand(migrateCmd)
}
