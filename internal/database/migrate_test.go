package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsledger/opsledger/internal/config"
	"github.com/opsledger/opsledger/internal/models"
)

func sqliteConfig(t *testing.T) config.DatabaseConfig {
	t.Helper()
	return config.DatabaseConfig{
		Type:         "sqlite",
		DSN:          filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}
}

func migrationsDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	return dir
}

func TestRunMigrationsSqlite(t *testing.T) {
	cfg := sqliteConfig(t)
	require.NoError(t, RunMigrations(cfg, migrationsDir(t)))

	// The migrated schema must accept ledger rows.
	db, err := Connect(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, db.Create(&models.Backup{
		Application: "gitea", Hostname: "host1", FileName: "gitea.tar.gz",
		BackupType: "file", Timestamp: time.Now().UTC(),
	}).Error)
	require.NoError(t, db.Create(&models.HealthCheckState{
		ID: 1, LastCheck: time.Now().UTC(),
	}).Error)
}

func TestRunMigrationsSqliteIdempotent(t *testing.T) {
	cfg := sqliteConfig(t)
	dir := migrationsDir(t)

	require.NoError(t, RunMigrations(cfg, dir))
	assert.NoError(t, RunMigrations(cfg, dir), "re-running applied migrations is a no-op")
}

func TestRunMigrationsSqliteUniqueUpdates(t *testing.T) {
	cfg := sqliteConfig(t)
	require.NoError(t, RunMigrations(cfg, migrationsDir(t)))

	db, err := Connect(cfg)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()

	row := models.Update{
		Application: "jellyfin", Hostname: "media1", Version: "10.9.1",
		UpdateType: "docker", Status: models.StatusSuccess,
		Timestamp: time.Now().UTC(),
	}
	require.NoError(t, db.Create(&row).Error)

	dup := row
	dup.ID = 0
	assert.Error(t, db.Create(&dup).Error, "version history enforces uniqueness in the schema")
}

func TestRunMigrationsUnknownType(t *testing.T) {
	err := RunMigrations(config.DatabaseConfig{Type: "postgres", DSN: "x"}, migrationsDir(t))
	assert.Error(t, err)
}
