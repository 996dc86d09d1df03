package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database utilities",
}

var dbTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Verify ledger connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, err := openLedger(cfg)
		if err != nil {
			return fmt.Errorf("connection failed: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		defer sqlDB.Close()
		if err := sqlDB.PingContext(cmd.Context()); err != nil {
			return fmt.Errorf("ping failed: %w", err)
		}
		fmt.Printf("Connection OK (%s)\n", cfg.Database.Type)
		return nil
	},
}

func init() {
	dbCmd.AddCommand(dbTestCmd)
	rootCmd.AddCommand(dbCmd)
}
