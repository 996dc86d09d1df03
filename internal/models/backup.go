package models

import (
	"strings"
	"time"
)

// Backup records one backup attempt. Failed attempts carry a FAILED_
// filename prefix and zero size rather than being omitted.
type Backup struct {
	ID            int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Application   string    `json:"application" gorm:"size:100;not null"`
	Hostname      string    `json:"hostname" gorm:"size:100;not null;index:idx_backups_host_ts"`
	FileName      string    `json:"file_name" gorm:"size:255;not null"`
	FileSize      float64   `json:"file_size"` // megabytes
	BackupType    string    `json:"backup_type" gorm:"size:50;not null"`
	BackupSubtype string    `json:"backup_subtype" gorm:"size:50"`
	Timestamp     time.Time `json:"timestamp" gorm:"not null;index:idx_backups_host_ts,sort:desc;index:idx_backups_ts"`
}

// TableName specifies the table name for Backup
func (Backup) TableName() string {
	return "backups"
}

// Failed reports whether this row records a failed attempt.
func (b Backup) Failed() bool {
	return strings.HasPrefix(b.FileName, FailedBackupPrefix)
}
