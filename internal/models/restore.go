package models

import "time"

// Restore records a restore, rollback or verify operation.
type Restore struct {
	ID             int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Application    string    `json:"application" gorm:"size:100;not null"`
	Hostname       string    `json:"hostname" gorm:"size:100;not null"`
	SourceFile     string    `json:"source_file" gorm:"size:255;not null"`
	RestoreType    string    `json:"restore_type" gorm:"size:50;not null"`
	RestoreSubtype string    `json:"restore_subtype" gorm:"size:50"`
	Operation      string    `json:"operation" gorm:"size:20;not null"` // restore, rollback, verify
	Status         string    `json:"status" gorm:"size:20;not null"`
	Detail         string    `json:"detail" gorm:"type:text"`
	Timestamp      time.Time `json:"timestamp" gorm:"not null;index:idx_restores_ts"`
}

// TableName specifies the table name for Restore
func (Restore) TableName() string {
	return "restores"
}
