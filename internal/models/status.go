package models

// Operation status values shared by the ledger tables
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusPartial = "partial"
)

// Health check status values
const (
	CheckOK       = "ok"
	CheckWarning  = "warning"
	CheckCritical = "critical"
)

// Restore operation values
const (
	OpRestore  = "restore"
	OpRollback = "rollback"
	OpVerify   = "verify"
)

// FailedBackupPrefix marks a backup row recorded for a failed attempt.
// Absence of a row is never the signal for "no backup ran".
const FailedBackupPrefix = "FAILED_"
