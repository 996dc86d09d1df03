package models

import "time"

// PlaybookRun records one playbook invocation with its run-time variables.
type PlaybookRun struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Playbook  string    `json:"playbook" gorm:"size:255;not null"`
	Hostname  string    `json:"hostname" gorm:"size:100;not null"`
	RunVars   string    `json:"run_vars" gorm:"type:text"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index:idx_playbook_runs_ts"`
}

// TableName specifies the table name for PlaybookRun
func (PlaybookRun) TableName() string {
	return "playbook_runs"
}
