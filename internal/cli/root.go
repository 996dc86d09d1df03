// Package cli implements the opsledger command surface. Every entry point
// accepts --check (dry run: all inspection steps execute, zero ledger rows
// and zero alert deliveries) and destructive entry points additionally
// require an explicit confirmation flag with no default.
package cli

import (
	"gorm.io/gorm"

	"github.com/spf13/cobra"

	"github.com/opsledger/opsledger/internal/config"
	"github.com/opsledger/opsledger/internal/database"
)

var (
	checkMode    bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "opsledger",
	Short: "Operation ledger and alert fan-out for home-lab automation",
	Long: `opsledger records the outcome of operational runs (backups, updates,
restores, maintenance, health checks) in a MariaDB ledger and fans each
outcome out to independently optional notification sinks.

Playbooks call "opsledger record ..." in their finalization phase;
dashboards read through "opsledger query ...", the HTTP API or the
websocket stream; "opsledger serve" hosts the API plus the scheduled
health pass, retention sweep and Docker size collection.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&checkMode, "check", false,
		"dry run: execute inspection steps only, skip ledger writes and alert deliveries")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "json",
		"output format: json or table")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() *config.Config {
	cfg := config.Load()
	cfg.DryRun = checkMode
	return cfg
}

func openLedger(cfg *config.Config) (*gorm.DB, error) {
	return database.Connect(cfg.Database)
}
