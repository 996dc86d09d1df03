package ledger

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/opsledger/opsledger/internal/models"
)

// Queries serves the read side of the ledger: dashboard presets and the
// health pass "new since last check" window. Nothing here mutates rows.
type Queries struct {
	db *gorm.DB
}

// NewQueries creates the read-side accessor.
func NewQueries(db *gorm.DB) *Queries {
	return &Queries{db: db}
}

// StaleBackup is one (host, application, subtype) group whose newest
// successful backup is older than the requested threshold.
type StaleBackup struct {
	Hostname      string    `json:"hostname"`
	Application   string    `json:"application"`
	BackupSubtype string    `json:"backup_subtype"`
	LastBackup    time.Time `json:"last_backup"`
}

// TableCount is a row count for one ledger table.
type TableCount struct {
	Table string `json:"table"`
	Count int64  `json:"count"`
}

// RecentBackups returns the newest backup rows, optionally filtered by host.
func (q *Queries) RecentBackups(ctx context.Context, host string, limit int) ([]models.Backup, error) {
	tx := q.db.WithContext(ctx).Order("timestamp DESC").Limit(limit)
	if host != "" {
		tx = tx.Where("hostname = ?", host)
	}
	var rows []models.Backup
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying backups: %w", err)
	}
	return rows, nil
}

// StaleBackups returns backup groups whose newest non-failed row is older
// than the cutoff. Failed attempts (FAILED_ filename) never count as a
// successful backup.
func (q *Queries) StaleBackups(ctx context.Context, olderThan time.Duration) ([]StaleBackup, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	var rows []StaleBackup
	err := q.db.WithContext(ctx).Raw(`
		SELECT hostname, application, backup_subtype, MAX(timestamp) AS last_backup
		FROM backups
		WHERE file_name NOT LIKE ?
		GROUP BY hostname, application, backup_subtype
		HAVING MAX(timestamp) < ?
		ORDER BY last_backup ASC`,
		models.FailedBackupPrefix+"%", cutoff,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying stale backups: %w", err)
	}
	return rows, nil
}

// LatestUnhealthy returns the most recent row per (host, check) where the
// latest status is not ok.
func (q *Queries) LatestUnhealthy(ctx context.Context) ([]models.HealthCheck, error) {
	var rows []models.HealthCheck
	err := q.db.WithContext(ctx).Raw(`
		SELECT h.id, h.hostname, h.check_name, h.check_status, h.check_value, h.check_detail, h.timestamp
		FROM health_checks h
		INNER JOIN (
			SELECT hostname, check_name, MAX(timestamp) AS max_ts
			FROM health_checks
			GROUP BY hostname, check_name
		) latest ON h.hostname = latest.hostname
			AND h.check_name = latest.check_name
			AND h.timestamp = latest.max_ts
		WHERE h.check_status <> ?
		ORDER BY h.hostname, h.check_name`,
		models.CheckOK,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying unhealthy checks: %w", err)
	}
	return rows, nil
}

// RecentUpdates returns the newest version-history rows.
func (q *Queries) RecentUpdates(ctx context.Context, limit int) ([]models.Update, error) {
	var rows []models.Update
	err := q.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying updates: %w", err)
	}
	return rows, nil
}

// RecentMaintenance returns the newest maintenance rows.
func (q *Queries) RecentMaintenance(ctx context.Context, limit int) ([]models.Maintenance, error) {
	var rows []models.Maintenance
	err := q.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying maintenance: %w", err)
	}
	return rows, nil
}

// RecentRestores returns the newest restore rows.
func (q *Queries) RecentRestores(ctx context.Context, limit int) ([]models.Restore, error) {
	var rows []models.Restore
	err := q.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying restores: %w", err)
	}
	return rows, nil
}

// RecentDockerSizes returns the newest container size snapshots.
func (q *Queries) RecentDockerSizes(ctx context.Context, limit int) ([]models.DockerSize, error) {
	var rows []models.DockerSize
	err := q.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying docker sizes: %w", err)
	}
	return rows, nil
}

// RecentRuns returns the newest playbook run rows.
func (q *Queries) RecentRuns(ctx context.Context, limit int) ([]models.PlaybookRun, error) {
	var rows []models.PlaybookRun
	err := q.db.WithContext(ctx).Order("timestamp DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying playbook runs: %w", err)
	}
	return rows, nil
}

// TableCounts returns the row count of every ledger table.
func (q *Queries) TableCounts(ctx context.Context) ([]TableCount, error) {
	tables := []struct {
		name  string
		model interface{}
	}{
		{"backups", &models.Backup{}},
		{"updates", &models.Update{}},
		{"maintenance", &models.Maintenance{}},
		{"health_checks", &models.HealthCheck{}},
		{"restores", &models.Restore{}},
		{"docker_sizes", &models.DockerSize{}},
		{"playbook_runs", &models.PlaybookRun{}},
	}

	counts := make([]TableCount, 0, len(tables))
	for _, t := range tables {
		var n int64
		if err := q.db.WithContext(ctx).Model(t.model).Count(&n).Error; err != nil {
			return nil, fmt.Errorf("counting %s: %w", t.name, err)
		}
		counts = append(counts, TableCount{Table: t.name, Count: n})
	}
	return counts, nil
}

// Failure is one finding from the since-last-check window.
type Failure struct {
	Hostname  string    `json:"hostname"`
	Source    string    `json:"source"` // health_check, maintenance, backup
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// FailuresSince collects failures recorded after the given timestamp:
// non-ok health checks, failed or partial maintenance runs and failed
// backup attempts. Used by the health pass to alert only on findings that
// are new since the previous pass.
func (q *Queries) FailuresSince(ctx context.Context, since time.Time) ([]Failure, error) {
	var failures []Failure

	var checks []models.HealthCheck
	err := q.db.WithContext(ctx).
		Where("check_status <> ? AND timestamp > ?", models.CheckOK, since).
		Order("timestamp ASC").
		Find(&checks).Error
	if err != nil {
		return nil, fmt.Errorf("querying health failures: %w", err)
	}
	for _, c := range checks {
		failures = append(failures, Failure{
			Hostname:  c.Hostname,
			Source:    "health_check",
			Name:      c.CheckName,
			Status:    c.CheckStatus,
			Detail:    firstNonEmpty(c.CheckDetail, c.CheckValue),
			Timestamp: c.Timestamp,
		})
	}

	var maint []models.Maintenance
	err = q.db.WithContext(ctx).
		Where("status IN ? AND timestamp > ?", []string{models.StatusFailed, models.StatusPartial}, since).
		Order("timestamp ASC").
		Find(&maint).Error
	if err != nil {
		return nil, fmt.Errorf("querying maintenance failures: %w", err)
	}
	for _, m := range maint {
		failures = append(failures, Failure{
			Hostname:  m.Hostname,
			Source:    "maintenance",
			Name:      m.MaintenanceType,
			Status:    m.Status,
			Detail:    m.Application,
			Timestamp: m.Timestamp,
		})
	}

	var backups []models.Backup
	err = q.db.WithContext(ctx).
		Where("file_name LIKE ? AND timestamp > ?", models.FailedBackupPrefix+"%", since).
		Order("timestamp ASC").
		Find(&backups).Error
	if err != nil {
		return nil, fmt.Errorf("querying backup failures: %w", err)
	}
	for _, b := range backups {
		failures = append(failures, Failure{
			Hostname:  b.Hostname,
			Source:    "backup",
			Name:      b.Application,
			Status:    models.StatusFailed,
			Detail:    b.FileName,
			Timestamp: b.Timestamp,
		})
	}

	return failures, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
