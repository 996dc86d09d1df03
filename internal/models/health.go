package models

import "time"

// HealthCheck records a single check result for a host. A health pass
// writes many rows, one per check per host, batch-inserted.
type HealthCheck struct {
	ID          int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Hostname    string    `json:"hostname" gorm:"size:100;not null;index:idx_health_host_check_ts"`
	CheckName   string    `json:"check_name" gorm:"size:100;not null;index:idx_health_host_check_ts"`
	CheckStatus string    `json:"check_status" gorm:"size:20;not null"` // ok, warning, critical
	CheckValue  string    `json:"check_value" gorm:"size:255"`
	CheckDetail string    `json:"check_detail" gorm:"type:text"`
	Timestamp   time.Time `json:"timestamp" gorm:"not null;index:idx_health_host_check_ts,sort:desc;index:idx_health_ts"`
}

// TableName specifies the table name for HealthCheck
func (HealthCheck) TableName() string {
	return "health_checks"
}

// HealthCheckState is the singleton last-check marker. Single-row-ness is
// enforced by a CHECK (id = 1) constraint in the schema, not application
// logic.
type HealthCheckState struct {
	ID        int       `json:"id" gorm:"primaryKey"`
	LastCheck time.Time `json:"last_check" gorm:"not null"`
}

// TableName specifies the table name for HealthCheckState
func (HealthCheckState) TableName() string {
	return "health_check_state"
}
