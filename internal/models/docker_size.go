package models

import "time"

// DockerSize records a point-in-time size snapshot for one container.
type DockerSize struct {
	ID        int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Hostname  string    `json:"hostname" gorm:"size:100;not null"`
	Stack     string    `json:"stack" gorm:"size:100"`
	Service   string    `json:"service" gorm:"size:100;not null"`
	SizeMB    float64   `json:"size_mb"`
	Timestamp time.Time `json:"timestamp" gorm:"not null;index:idx_docker_sizes_ts"`
}

// TableName specifies the table name for DockerSize
func (DockerSize) TableName() string {
	return "docker_sizes"
}
