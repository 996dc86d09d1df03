package models

import "time"

// Maintenance records one scheduled maintenance run per host, written
// unconditionally even on failure.
type Maintenance struct {
	ID              int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Application     string    `json:"application" gorm:"size:100;not null"`
	Hostname        string    `json:"hostname" gorm:"size:100;not null"`
	MaintenanceType string    `json:"maintenance_type" gorm:"size:50;not null"`
	Subtype         string    `json:"subtype" gorm:"size:50"`
	Status          string    `json:"status" gorm:"size:20;not null"` // success, failed, partial
	Timestamp       time.Time `json:"timestamp" gorm:"not null;index:idx_maintenance_ts"`
}

// TableName specifies the table name for Maintenance
func (Maintenance) TableName() string {
	return "maintenance"
}
