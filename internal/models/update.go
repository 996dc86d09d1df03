package models

import "time"

// Update records an observed application version. The table is a version
// history, not a run log: (application, hostname, version) is unique and
// re-observing a version refreshes status and timestamp in place.
type Update struct {
	ID            int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Application   string    `json:"application" gorm:"size:100;not null;uniqueIndex:uniq_updates_app_host_version"`
	Hostname      string    `json:"hostname" gorm:"size:100;not null;uniqueIndex:uniq_updates_app_host_version"`
	Version       string    `json:"version" gorm:"size:100;not null;uniqueIndex:uniq_updates_app_host_version"`
	UpdateType    string    `json:"update_type" gorm:"size:50;not null"`
	UpdateSubtype string    `json:"update_subtype" gorm:"size:50"`
	Status        string    `json:"status" gorm:"size:20;not null;default:success"`
	Timestamp     time.Time `json:"timestamp" gorm:"not null"`
}

// TableName specifies the table name for Update
func (Update) TableName() string {
	return "updates"
}
