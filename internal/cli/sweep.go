package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opsledger/opsledger/internal/ledger"
)

var sweepConfirm bool

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete ledger rows older than their retention horizon",
	Long: `Sweep deletes expired rows table by table. The updates table is a
version history and is never swept.

Deletion requires --confirm. Without it the command refuses before
touching anything; with --check it previews the per-table counts that
would be deleted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !checkMode && !sweepConfirm {
			return errors.New("refusing to delete without --confirm (use --check to preview)")
		}

		cfg := loadConfig()
		db, err := openLedger(cfg)
		if err != nil {
			return err
		}
		sweeper := ledger.NewSweeper(db, cfg.Retention, cfg.DryRun)

		results := sweeper.Sweep(cmd.Context())
		var failed int
		for _, r := range results {
			if r.Err != nil {
				failed++
			}
		}
		if err := printJSON(results); err != nil {
			return err
		}
		if failed > 0 {
			return fmt.Errorf("sweep failed for %d table(s)", failed)
		}
		return nil
	},
}

func init() {
	sweepCmd.Flags().BoolVar(&sweepConfirm, "confirm", false, "actually delete expired rows")
	rootCmd.AddCommand(sweepCmd)
}
