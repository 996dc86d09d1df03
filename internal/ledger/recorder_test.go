package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opsledger/opsledger/internal/models"
)

// newTestDB creates a SQLite ledger in a temp directory with the full
// schema migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "ledger.db")), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Backup{}, &models.Update{}, &models.Maintenance{},
		&models.HealthCheck{}, &models.HealthCheckState{},
		&models.Restore{}, &models.DockerSize{}, &models.PlaybookRun{},
	))
	return db
}

// capturePublisher records published events for assertions.
type capturePublisher struct {
	events []string
}

func (p *capturePublisher) Publish(eventType string, payload interface{}) {
	p.events = append(p.events, eventType)
}

func TestRecordBackup(t *testing.T) {
	db := newTestDB(t)
	r := NewRecorder(db, false)
	ctx := context.Background()

	err := r.RecordBackup(ctx, models.Backup{
		Application: " gitea ",
		Hostname:    "Docker-Host-01",
		FileName:    "gitea-20260829.tar.gz",
		FileSize:    142.5,
		BackupType:  "file",
	})
	require.NoError(t, err)

	var row models.Backup
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, "gitea", row.Application)
	assert.Equal(t, "docker-host-01", row.Hostname)
	assert.Equal(t, 142.5, row.FileSize)
	assert.False(t, row.Failed())
	assert.False(t, row.Timestamp.IsZero())
}

func TestRecordBackupFailedAttempt(t *testing.T) {
	db := newTestDB(t)
	r := NewRecorder(db, false)

	err := r.RecordBackup(context.Background(), models.Backup{
		Application: "vaultwarden",
		Hostname:    "host1",
		FileName:    models.FailedBackupPrefix + "20260829-031500",
		BackupType:  "db",
	})
	require.NoError(t, err)

	var row models.Backup
	require.NoError(t, db.First(&row).Error)
	assert.True(t, row.Failed())
	assert.Zero(t, row.FileSize)
}

func TestRecordBackupDryRun(t *testing.T) {
	db := newTestDB(t)
	r := NewRecorder(db, true)

	err := r.RecordBackup(context.Background(), models.Backup{
		Application: "gitea",
		Hostname:    "host1",
		FileName:    "gitea.tar.gz",
		BackupType:  "file",
	})
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.Backup{}).Count(&count).Error)
	assert.Zero(t, count, "dry run must not write rows")
}

func TestRecordUpdateUpsert(t *testing.T) {
	db := newTestDB(t)
	r := NewRecorder(db, false)
	ctx := context.Background()

	first := models.Update{
		Application: "jellyfin",
		Hostname:    "media1",
		Version:     "10.9.1",
		UpdateType:  "docker",
		Status:      models.StatusSuccess,
		Timestamp:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, r.RecordUpdate(ctx, first))

	// Re-observing the same version refreshes rather than duplicates.
	second := first
	second.Status = models.StatusFailed
	second.Timestamp = time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.RecordUpdate(ctx, second))

	var rows []models.Update
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, models.StatusFailed, rows[0].Status)
	assert.True(t, rows[0].Timestamp.Equal(second.Timestamp), "timestamp refreshed to %s, got %s", second.Timestamp, rows[0].Timestamp)

	// A different version is a new row.
	third := first
	third.Version = "10.9.2"
	require.NoError(t, r.RecordUpdate(ctx, third))
	require.NoError(t, db.Find(&rows).Error)
	assert.Len(t, rows, 2)
}

func TestRecordUpdateDefaultsStatus(t *testing.T) {
	db := newTestDB(t)
	r := NewRecorder(db, false)

	require.NoError(t, r.RecordUpdate(context.Background(), models.Update{
		Application: "traefik",
		Hostname:    "edge1",
		Version:     "3.1.0",
		UpdateType:  "docker",
	}))

	var row models.Update
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, models.StatusSuccess, row.Status)
}

func TestRecordMaintenanceFailedRun(t *testing.T) {
	db := newTestDB(t)
	r := NewRecorder(db, false)

	// Failed runs are recorded too, not just successes.
	require.NoError(t, r.RecordMaintenance(context.Background(), models.Maintenance{
		Application:     "apt",
		Hostname:        "host1",
		MaintenanceType: "os_update",
		Status:          models.StatusFailed,
	}))

	var row models.Maintenance
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, models.StatusFailed, row.Status)
}

func TestRecordHealthChecksBatch(t *testing.T) {
	db := newTestDB(t)
	r := NewRecorder(db, false)

	checks := []models.HealthCheck{
		{Hostname: "Host-A", CheckName: "ping", CheckStatus: models.CheckOK, CheckValue: "3ms"},
		{Hostname: "host-b", CheckName: "ping", CheckStatus: models.CheckCritical, CheckDetail: "no reply"},
	}
	require.NoError(t, r.RecordHealthChecks(context.Background(), checks))

	var rows []models.HealthCheck
	require.NoError(t, db.Order("hostname").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.Equal(t, "host-a", rows[0].Hostname)
	assert.False(t, rows[0].Timestamp.IsZero())
	assert.False(t, rows[1].Timestamp.IsZero())
}

func TestRecordHealthChecksEmpty(t *testing.T) {
	r := NewRecorder(newTestDB(t), false)
	assert.NoError(t, r.RecordHealthChecks(context.Background(), nil))
}

func TestRecordRestore(t *testing.T) {
	db := newTestDB(t)
	r := NewRecorder(db, false)

	require.NoError(t, r.RecordRestore(context.Background(), models.Restore{
		Application: "gitea",
		Hostname:    "host1",
		SourceFile:  "gitea-20260820.tar.gz",
		RestoreType: "file",
		Status:      models.StatusSuccess,
	}))

	var row models.Restore
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, models.OpRestore, row.Operation, "operation defaults to restore")
}

func TestRecordWriteFailureWrapsSentinel(t *testing.T) {
	db := newTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	r := NewRecorder(db, false)
	err = r.RecordBackup(context.Background(), models.Backup{
		Application: "gitea",
		Hostname:    "host1",
		FileName:    "gitea.tar.gz",
		BackupType:  "file",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLedgerWrite), "write failures wrap ErrLedgerWrite")
}

func TestRecorderPublishesEvents(t *testing.T) {
	db := newTestDB(t)
	r := NewRecorder(db, false)
	pub := &capturePublisher{}
	r.SetPublisher(pub)
	ctx := context.Background()

	require.NoError(t, r.RecordBackup(ctx, models.Backup{
		Application: "gitea", Hostname: "host1", FileName: "f", BackupType: "file",
	}))
	require.NoError(t, r.RecordRun(ctx, models.PlaybookRun{
		Playbook: "site.yml", Hostname: "host1",
	}))

	assert.Equal(t, []string{"backup", "playbook_run"}, pub.events)
}
