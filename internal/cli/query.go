package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsledger/opsledger/internal/ledger"
)

const tsFormat = "2006-01-02 15:04"

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Read ledger presets",
	Long: `Query runs the dashboard presets against the ledger. Output is JSON by
default; pass --format table for a column view.`,
}

var (
	queryLimit      int
	queryHost       string
	queryStaleHours int
)

func openQueries() (*ledger.Queries, error) {
	cfg := loadConfig()
	db, err := openLedger(cfg)
	if err != nil {
		return nil, err
	}
	return ledger.NewQueries(db), nil
}

var queryBackupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "Show the newest backup rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueries()
		if err != nil {
			return err
		}
		rows, err := q.RecentBackups(cmd.Context(), queryHost, queryLimit)
		if err != nil {
			return err
		}
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			table = append(table, []string{
				r.Timestamp.Format(tsFormat), r.Hostname, r.Application,
				r.FileName, fmt.Sprintf("%.1f", r.FileSize), r.BackupType,
			})
		}
		return printRows(rows, []string{"TIMESTAMP", "HOST", "APP", "FILE", "SIZE_MB", "TYPE"}, table)
	},
}

var queryStaleBackupsCmd = &cobra.Command{
	Use:   "stale-backups",
	Short: "Show backup groups with no recent successful backup",
	Long: `Stale-backups lists every (host, application, subtype) group whose
newest non-failed backup is older than the threshold. Failed attempts
never count as a backup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueries()
		if err != nil {
			return err
		}
		rows, err := q.StaleBackups(cmd.Context(), time.Duration(queryStaleHours)*time.Hour)
		if err != nil {
			return err
		}
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			table = append(table, []string{
				r.Hostname, r.Application, r.BackupSubtype, r.LastBackup.Format(tsFormat),
			})
		}
		return printRows(rows, []string{"HOST", "APP", "SUBTYPE", "LAST_BACKUP"}, table)
	},
}

var queryHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show hosts whose latest check result is not ok",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueries()
		if err != nil {
			return err
		}
		rows, err := q.LatestUnhealthy(cmd.Context())
		if err != nil {
			return err
		}
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			table = append(table, []string{
				r.Timestamp.Format(tsFormat), r.Hostname, r.CheckName, r.CheckStatus, r.CheckValue,
			})
		}
		return printRows(rows, []string{"TIMESTAMP", "HOST", "CHECK", "STATUS", "VALUE"}, table)
	},
}

var queryUpdatesCmd = &cobra.Command{
	Use:   "updates",
	Short: "Show the newest version-history rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueries()
		if err != nil {
			return err
		}
		rows, err := q.RecentUpdates(cmd.Context(), queryLimit)
		if err != nil {
			return err
		}
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			table = append(table, []string{
				r.Timestamp.Format(tsFormat), r.Hostname, r.Application, r.Version, r.Status,
			})
		}
		return printRows(rows, []string{"TIMESTAMP", "HOST", "APP", "VERSION", "STATUS"}, table)
	},
}

var queryMaintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Show the newest maintenance rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueries()
		if err != nil {
			return err
		}
		rows, err := q.RecentMaintenance(cmd.Context(), queryLimit)
		if err != nil {
			return err
		}
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			table = append(table, []string{
				r.Timestamp.Format(tsFormat), r.Hostname, r.Application, r.MaintenanceType, r.Status,
			})
		}
		return printRows(rows, []string{"TIMESTAMP", "HOST", "APP", "TYPE", "STATUS"}, table)
	},
}

var queryRestoresCmd = &cobra.Command{
	Use:   "restores",
	Short: "Show the newest restore rows",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueries()
		if err != nil {
			return err
		}
		rows, err := q.RecentRestores(cmd.Context(), queryLimit)
		if err != nil {
			return err
		}
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			table = append(table, []string{
				r.Timestamp.Format(tsFormat), r.Hostname, r.Application, r.Operation, r.SourceFile, r.Status,
			})
		}
		return printRows(rows, []string{"TIMESTAMP", "HOST", "APP", "OP", "SOURCE", "STATUS"}, table)
	},
}

var queryDockerSizesCmd = &cobra.Command{
	Use:   "docker-sizes",
	Short: "Show the newest container size snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueries()
		if err != nil {
			return err
		}
		rows, err := q.RecentDockerSizes(cmd.Context(), queryLimit)
		if err != nil {
			return err
		}
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			table = append(table, []string{
				r.Timestamp.Format(tsFormat), r.Hostname, r.Stack, r.Service, fmt.Sprintf("%.1f", r.SizeMB),
			})
		}
		return printRows(rows, []string{"TIMESTAMP", "HOST", "STACK", "SERVICE", "SIZE_MB"}, table)
	},
}

var queryRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Show the newest playbook runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueries()
		if err != nil {
			return err
		}
		rows, err := q.RecentRuns(cmd.Context(), queryLimit)
		if err != nil {
			return err
		}
		table := make([][]string, 0, len(rows))
		for _, r := range rows {
			table = append(table, []string{
				r.Timestamp.Format(tsFormat), r.Hostname, r.Playbook,
			})
		}
		return printRows(rows, []string{"TIMESTAMP", "HOST", "PLAYBOOK"}, table)
	},
}

var queryCountsCmd = &cobra.Command{
	Use:   "counts",
	Short: "Show the row count of every ledger table",
	RunE: func(cmd *cobra.Command, args []string) error {
		q, err := openQueries()
		if err != nil {
			return err
		}
		counts, err := q.TableCounts(cmd.Context())
		if err != nil {
			return err
		}
		table := make([][]string, 0, len(counts))
		for _, c := range counts {
			table = append(table, []string{c.Table, strconv.FormatInt(c.Count, 10)})
		}
		return printRows(counts, []string{"TABLE", "COUNT"}, table)
	},
}

func init() {
	for _, cmd := range []*cobra.Command{
		queryBackupsCmd, queryUpdatesCmd, queryMaintenanceCmd,
		queryRestoresCmd, queryDockerSizesCmd, queryRunsCmd,
	} {
		cmd.Flags().IntVar(&queryLimit, "limit", 20, "maximum rows to return")
	}
	queryBackupsCmd.Flags().StringVar(&queryHost, "host", "", "filter by hostname")
	queryStaleBackupsCmd.Flags().IntVar(&queryStaleHours, "hours", 216, "staleness threshold in hours")

	queryCmd.AddCommand(queryBackupsCmd, queryStaleBackupsCmd, queryHealthCmd,
		queryUpdatesCmd, queryMaintenanceCmd, queryRestoresCmd,
		queryDockerSizesCmd, queryRunsCmd, queryCountsCmd)
	rootCmd.AddCommand(queryCmd)
}
