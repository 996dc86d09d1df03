package cli

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsledger/opsledger/internal/ledger"
	"github.com/opsledger/opsledger/internal/models"
	"github.com/opsledger/opsledger/internal/notification"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record an operation outcome in the ledger",
	Long: `Record appends one operation outcome to the ledger and fans it out to
the configured notification sinks. Playbooks call this in their
finalization phase, for failed runs too: a failed backup is recorded
with a FAILED_ file name rather than omitted.

A ledger write failure is reported as a secondary warning after alert
fan-out has been attempted; it never suppresses the notification.`,
}

var (
	recordApp     string
	recordHost    string
	recordStatus  string
	recordType    string
	recordSubtype string
	recordDetail  string
)

var (
	recordBackupFile string
	recordBackupSize float64
)

var recordBackupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Record a backup attempt",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validStatus(recordStatus); err != nil {
			return err
		}
		cfg := loadConfig()
		db, err := openLedger(cfg)
		if err != nil {
			return err
		}
		recorder := ledger.NewRecorder(db, cfg.DryRun)
		dispatcher := notification.NewDispatcher(cfg.Sinks, cfg.DryRun)

		now := time.Now().UTC()
		file := recordBackupFile
		size := recordBackupSize
		if recordStatus == models.StatusFailed {
			if file == "" {
				file = now.Format("20060102-150405")
			}
			if !strings.HasPrefix(file, models.FailedBackupPrefix) {
				file = models.FailedBackupPrefix + file
			}
			size = 0
		}

		writeErr := recorder.RecordBackup(cmd.Context(), models.Backup{
			Application:   recordApp,
			Hostname:      recordHost,
			FileName:      file,
			FileSize:      size,
			BackupType:    recordType,
			BackupSubtype: recordSubtype,
			Timestamp:     now,
		})

		event := notification.Event{
			Category:  notification.CategoryBackup,
			Subject:   recordApp,
			Operation: "Backup",
			Status:    notification.StatusFromRecord(recordStatus),
			Detail:    recordDetail,
			Fields: []notification.Field{
				{Name: "Host", Value: recordHost, Inline: true},
				{Name: "File", Value: file, Inline: true},
				{Name: "Size", Value: fmt.Sprintf("%.1f MB", size), Inline: true},
			},
			Timestamp: now,
			Author:    cfg.Author,
		}
		dispatcher.Dispatch(cmd.Context(), event)

		return reportWrite(writeErr)
	},
}

var recordUpdateVersion string

var recordUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Record an observed application version",
	Long: `Record update upserts into the version history: re-observing the same
application, host and version refreshes the existing row instead of
duplicating it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validStatus(recordStatus); err != nil {
			return err
		}
		cfg := loadConfig()
		db, err := openLedger(cfg)
		if err != nil {
			return err
		}
		recorder := ledger.NewRecorder(db, cfg.DryRun)
		dispatcher := notification.NewDispatcher(cfg.Sinks, cfg.DryRun)

		now := time.Now().UTC()
		writeErr := recorder.RecordUpdate(cmd.Context(), models.Update{
			Application:   recordApp,
			Hostname:      recordHost,
			Version:       recordUpdateVersion,
			UpdateType:    recordType,
			UpdateSubtype: recordSubtype,
			Status:        recordStatus,
			Timestamp:     now,
		})

		dispatcher.Dispatch(cmd.Context(), notification.Event{
			Category:  notification.CategoryDeploy,
			Subject:   recordApp,
			Operation: "Update",
			Status:    notification.StatusFromRecord(recordStatus),
			Detail:    recordDetail,
			Fields: []notification.Field{
				{Name: "Host", Value: recordHost, Inline: true},
				{Name: "Version", Value: recordUpdateVersion, Inline: true},
			},
			Timestamp: now,
			Author:    cfg.Author,
		})

		return reportWrite(writeErr)
	},
}

var recordMaintenanceCmd = &cobra.Command{
	Use:   "maintenance",
	Short: "Record a maintenance run",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validStatus(recordStatus); err != nil {
			return err
		}
		cfg := loadConfig()
		db, err := openLedger(cfg)
		if err != nil {
			return err
		}
		recorder := ledger.NewRecorder(db, cfg.DryRun)
		dispatcher := notification.NewDispatcher(cfg.Sinks, cfg.DryRun)

		now := time.Now().UTC()
		writeErr := recorder.RecordMaintenance(cmd.Context(), models.Maintenance{
			Application:     recordApp,
			Hostname:        recordHost,
			MaintenanceType: recordType,
			Subtype:         recordSubtype,
			Status:          recordStatus,
			Timestamp:       now,
		})

		// Routine maintenance alerts on failure only; the dispatcher
		// applies that policy.
		dispatcher.Dispatch(cmd.Context(), notification.Event{
			Category:  notification.CategoryMaintenance,
			Subject:   recordApp,
			Operation: "Maintenance",
			Status:    notification.StatusFromRecord(recordStatus),
			Detail:    recordDetail,
			Fields: []notification.Field{
				{Name: "Host", Value: recordHost, Inline: true},
				{Name: "Type", Value: recordType, Inline: true},
			},
			Timestamp: now,
			Author:    cfg.Author,
		})

		return reportWrite(writeErr)
	},
}

var (
	recordRestoreSource string
	recordRestoreOp     string
)

var recordRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Record a restore, rollback or verify operation",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validStatus(recordStatus); err != nil {
			return err
		}
		switch recordRestoreOp {
		case models.OpRestore, models.OpRollback, models.OpVerify:
		default:
			return fmt.Errorf("invalid operation %q (restore, rollback or verify)", recordRestoreOp)
		}
		cfg := loadConfig()
		db, err := openLedger(cfg)
		if err != nil {
			return err
		}
		recorder := ledger.NewRecorder(db, cfg.DryRun)
		dispatcher := notification.NewDispatcher(cfg.Sinks, cfg.DryRun)

		now := time.Now().UTC()
		writeErr := recorder.RecordRestore(cmd.Context(), models.Restore{
			Application:    recordApp,
			Hostname:       recordHost,
			SourceFile:     recordRestoreSource,
			RestoreType:    recordType,
			RestoreSubtype: recordSubtype,
			Operation:      recordRestoreOp,
			Status:         recordStatus,
			Detail:         recordDetail,
			Timestamp:      now,
		})

		category := notification.CategoryRestore
		operation := "Restore"
		if recordRestoreOp == models.OpRollback {
			category = notification.CategoryRollback
			operation = "Rollback"
		}
		dispatcher.Dispatch(cmd.Context(), notification.Event{
			Category:  category,
			Subject:   recordApp,
			Operation: operation,
			Status:    notification.StatusFromRecord(recordStatus),
			Detail:    recordDetail,
			Fields: []notification.Field{
				{Name: "Host", Value: recordHost, Inline: true},
				{Name: "Source", Value: recordRestoreSource, Inline: true},
			},
			Timestamp: now,
			Author:    cfg.Author,
		})

		return reportWrite(writeErr)
	},
}

var (
	recordCheckName  string
	recordCheckValue string
)

var recordHealthCmd = &cobra.Command{
	Use:   "health",
	Short: "Record a single health check result",
	Long: `Record health appends one check row for a host. Alerting on health
findings happens in the scheduled health pass, which deduplicates by
the since-last-check window; this command only writes the row.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch recordStatus {
		case models.CheckOK, models.CheckWarning, models.CheckCritical:
		default:
			return fmt.Errorf("invalid status %q (ok, warning or critical)", recordStatus)
		}
		cfg := loadConfig()
		db, err := openLedger(cfg)
		if err != nil {
			return err
		}
		recorder := ledger.NewRecorder(db, cfg.DryRun)

		return reportWrite(recorder.RecordHealthChecks(cmd.Context(), []models.HealthCheck{{
			Hostname:    recordHost,
			CheckName:   recordCheckName,
			CheckStatus: recordStatus,
			CheckValue:  recordCheckValue,
			CheckDetail: recordDetail,
		}}))
	},
}

var (
	recordRunPlaybook string
	recordRunVars     string
)

var recordRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Record a playbook invocation",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		db, err := openLedger(cfg)
		if err != nil {
			return err
		}
		recorder := ledger.NewRecorder(db, cfg.DryRun)

		return reportWrite(recorder.RecordRun(cmd.Context(), models.PlaybookRun{
			Playbook: recordRunPlaybook,
			Hostname: recordHost,
			RunVars:  recordRunVars,
		}))
	},
}

// reportWrite surfaces a ledger write failure after fan-out has already
// been attempted, so the alert went out even when the row did not.
func reportWrite(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ledger.ErrLedgerWrite) {
		log.Printf("WARNING: %v", err)
	}
	return err
}

func validStatus(s string) error {
	switch s {
	case models.StatusSuccess, models.StatusFailed, models.StatusPartial:
		return nil
	}
	return fmt.Errorf("invalid status %q (success, failed or partial)", s)
}

func init() {
	for _, cmd := range []*cobra.Command{
		recordBackupCmd, recordUpdateCmd, recordMaintenanceCmd, recordRestoreCmd,
	} {
		cmd.Flags().StringVar(&recordApp, "app", "", "application name")
		cmd.Flags().StringVar(&recordHost, "host", "", "hostname the operation ran on")
		cmd.Flags().StringVar(&recordStatus, "status", models.StatusSuccess, "outcome: success, failed or partial")
		cmd.Flags().StringVar(&recordType, "type", "", "operation type")
		cmd.Flags().StringVar(&recordSubtype, "subtype", "", "operation subtype")
		cmd.Flags().StringVar(&recordDetail, "detail", "", "free-form detail for the alert body")
		cmd.MarkFlagRequired("app")
		cmd.MarkFlagRequired("host")
		cmd.MarkFlagRequired("type")
	}

	recordBackupCmd.Flags().StringVar(&recordBackupFile, "file", "", "backup file name")
	recordBackupCmd.Flags().Float64Var(&recordBackupSize, "size-mb", 0, "backup file size in megabytes")

	recordUpdateCmd.Flags().StringVar(&recordUpdateVersion, "version", "", "observed application version")
	recordUpdateCmd.MarkFlagRequired("version")

	recordRestoreCmd.Flags().StringVar(&recordRestoreSource, "source", "", "source backup file")
	recordRestoreCmd.Flags().StringVar(&recordRestoreOp, "operation", models.OpRestore, "operation: restore, rollback or verify")
	recordRestoreCmd.MarkFlagRequired("source")

	recordHealthCmd.Flags().StringVar(&recordHost, "host", "", "hostname the check ran against")
	recordHealthCmd.Flags().StringVar(&recordCheckName, "name", "", "check name")
	recordHealthCmd.Flags().StringVar(&recordStatus, "status", "", "check status: ok, warning or critical")
	recordHealthCmd.Flags().StringVar(&recordCheckValue, "value", "", "measured value")
	recordHealthCmd.Flags().StringVar(&recordDetail, "detail", "", "free-form detail")
	recordHealthCmd.MarkFlagRequired("host")
	recordHealthCmd.MarkFlagRequired("name")
	recordHealthCmd.MarkFlagRequired("status")

	recordRunCmd.Flags().StringVar(&recordRunPlaybook, "playbook", "", "playbook name")
	recordRunCmd.Flags().StringVar(&recordHost, "host", "", "target hostname")
	recordRunCmd.Flags().StringVar(&recordRunVars, "vars", "", "run-time variables, free form")
	recordRunCmd.MarkFlagRequired("playbook")
	recordRunCmd.MarkFlagRequired("host")

	recordCmd.AddCommand(recordBackupCmd, recordUpdateCmd, recordMaintenanceCmd,
		recordRestoreCmd, recordHealthCmd, recordRunCmd)
	rootCmd.AddCommand(recordCmd)
}
