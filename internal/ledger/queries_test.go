package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/opsledger/opsledger/internal/models"
)

func seedBackup(t *testing.T, db *gorm.DB, app, host, file string, age time.Duration) {
	t.Helper()
	require.NoError(t, db.Create(&models.Backup{
		Application: app,
		Hostname:    host,
		FileName:    file,
		BackupType:  "file",
		Timestamp:   time.Now().UTC().Add(-age),
	}).Error)
}

func TestStaleBackups(t *testing.T) {
	db := newTestDB(t)
	q := NewQueries(db)
	ctx := context.Background()

	seedBackup(t, db, "gitea", "host1", "gitea-fresh.tar.gz", 2*time.Hour)
	seedBackup(t, db, "vaultwarden", "host1", "vw-old.tar.gz", 20*24*time.Hour)
	// A recent failed attempt must not hide the staleness of the group.
	seedBackup(t, db, "vaultwarden", "host1", models.FailedBackupPrefix+"vw.tar.gz", time.Hour)

	stale, err := q.StaleBackups(ctx, 216*time.Hour)
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "vaultwarden", stale[0].Application)
	assert.Equal(t, "host1", stale[0].Hostname)
}

func TestStaleBackupsNoneStale(t *testing.T) {
	db := newTestDB(t)
	q := NewQueries(db)

	seedBackup(t, db, "gitea", "host1", "gitea.tar.gz", time.Hour)

	stale, err := q.StaleBackups(context.Background(), 216*time.Hour)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestLatestUnhealthy(t *testing.T) {
	db := newTestDB(t)
	q := NewQueries(db)
	now := time.Now().UTC()

	// host1 recovered: older critical, newer ok.
	require.NoError(t, db.Create(&models.HealthCheck{
		Hostname: "host1", CheckName: "ping", CheckStatus: models.CheckCritical,
		Timestamp: now.Add(-2 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.HealthCheck{
		Hostname: "host1", CheckName: "ping", CheckStatus: models.CheckOK,
		Timestamp: now.Add(-time.Hour),
	}).Error)
	// host2 still degraded.
	require.NoError(t, db.Create(&models.HealthCheck{
		Hostname: "host2", CheckName: "disk", CheckStatus: models.CheckWarning,
		CheckValue: "91%", Timestamp: now.Add(-time.Minute),
	}).Error)

	rows, err := q.LatestUnhealthy(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "host2", rows[0].Hostname)
	assert.Equal(t, models.CheckWarning, rows[0].CheckStatus)
}

func TestFailuresSince(t *testing.T) {
	db := newTestDB(t)
	q := NewQueries(db)
	now := time.Now().UTC()
	since := now.Add(-time.Hour)

	// Inside the window: one of each failure source.
	require.NoError(t, db.Create(&models.HealthCheck{
		Hostname: "host1", CheckName: "ping", CheckStatus: models.CheckCritical,
		CheckDetail: "no reply", Timestamp: now.Add(-30 * time.Minute),
	}).Error)
	require.NoError(t, db.Create(&models.Maintenance{
		Application: "apt", Hostname: "host2", MaintenanceType: "os_update",
		Status: models.StatusFailed, Timestamp: now.Add(-20 * time.Minute),
	}).Error)
	seedBackup(t, db, "gitea", "host3", models.FailedBackupPrefix+"gitea.tar.gz", 10*time.Minute)

	// Outside the window or not failures.
	require.NoError(t, db.Create(&models.HealthCheck{
		Hostname: "host1", CheckName: "ping", CheckStatus: models.CheckCritical,
		Timestamp: now.Add(-2 * time.Hour),
	}).Error)
	require.NoError(t, db.Create(&models.Maintenance{
		Application: "apt", Hostname: "host2", MaintenanceType: "os_update",
		Status: models.StatusSuccess, Timestamp: now.Add(-10 * time.Minute),
	}).Error)
	seedBackup(t, db, "gitea", "host3", "gitea-ok.tar.gz", 5*time.Minute)

	failures, err := q.FailuresSince(context.Background(), since)
	require.NoError(t, err)
	require.Len(t, failures, 3)

	sources := make(map[string]int)
	for _, f := range failures {
		sources[f.Source]++
	}
	assert.Equal(t, map[string]int{"health_check": 1, "maintenance": 1, "backup": 1}, sources)
}

func TestFailuresSinceEmptyWindow(t *testing.T) {
	q := NewQueries(newTestDB(t))
	failures, err := q.FailuresSince(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	assert.Empty(t, failures)
}

func TestRecentBackupsHostFilter(t *testing.T) {
	db := newTestDB(t)
	q := NewQueries(db)

	seedBackup(t, db, "gitea", "host1", "a.tar.gz", time.Hour)
	seedBackup(t, db, "gitea", "host2", "b.tar.gz", time.Minute)

	rows, err := q.RecentBackups(context.Background(), "host2", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "b.tar.gz", rows[0].FileName)

	all, err := q.RecentBackups(context.Background(), "", 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b.tar.gz", all[0].FileName, "newest first")
}

func TestTableCounts(t *testing.T) {
	db := newTestDB(t)
	q := NewQueries(db)

	seedBackup(t, db, "gitea", "host1", "a.tar.gz", time.Hour)
	require.NoError(t, db.Create(&models.PlaybookRun{
		Playbook: "site.yml", Hostname: "host1", Timestamp: time.Now().UTC(),
	}).Error)

	counts, err := q.TableCounts(context.Background())
	require.NoError(t, err)
	byTable := make(map[string]int64)
	for _, c := range counts {
		byTable[c.Table] = c.Count
	}
	assert.EqualValues(t, 1, byTable["backups"])
	assert.EqualValues(t, 1, byTable["playbook_runs"])
	assert.EqualValues(t, 0, byTable["updates"])
	assert.Len(t, counts, 7)
}
