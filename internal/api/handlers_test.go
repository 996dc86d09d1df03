package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/opsledger/opsledger/internal/config"
	"github.com/opsledger/opsledger/internal/ledger"
	"github.com/opsledger/opsledger/internal/models"
	"github.com/opsledger/opsledger/internal/websocket"
)

func newTestServer(t *testing.T) (*gorm.DB, http.Handler, string) {
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

	cfg := &config.Config{
		API: config.APIConfig{
			JWTSecret:   testSecret,
			CORSOrigins: []string{"http://localhost:3000"},
			Environment: "test",
		},
	}
	hub := websocket.NewHub(cfg.API.JWTSecret, cfg.API.CORSOrigins)
	router := NewRouter(cfg, ledger.NewQueries(db), hub)

	token, err := IssueToken(testSecret, time.Hour)
	require.NoError(t, err)
	return db, router, token
}

func get(t *testing.T, router http.Handler, token, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthzUnauthenticated(t *testing.T) {
	_, router, _ := newTestServer(t)
	rec := get(t, router, "", "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDataRoutesRequireAuth(t *testing.T) {
	_, router, _ := newTestServer(t)
	rec := get(t, router, "", "/api/backups")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetBackups(t *testing.T) {
	db, router, token := newTestServer(t)
	require.NoError(t, db.Create(&models.Backup{
		Application: "gitea", Hostname: "host1", FileName: "gitea.tar.gz",
		FileSize: 42, BackupType: "file", Timestamp: time.Now().UTC(),
	}).Error)

	rec := get(t, router, token, "/api/backups")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rows []models.Backup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "gitea", rows[0].Application)
}

func TestGetBackupsHostFilter(t *testing.T) {
	db, router, token := newTestServer(t)
	for _, host := range []string{"host1", "host2"} {
		require.NoError(t, db.Create(&models.Backup{
			Application: "gitea", Hostname: host, FileName: host + ".tar.gz",
			BackupType: "file", Timestamp: time.Now().UTC(),
		}).Error)
	}

	rec := get(t, router, token, "/api/backups?host=host2")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []models.Backup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "host2", rows[0].Hostname)
}

func TestGetStaleBackups(t *testing.T) {
	db, router, token := newTestServer(t)
	require.NoError(t, db.Create(&models.Backup{
		Application: "vaultwarden", Hostname: "host1", FileName: "vw.tar.gz",
		BackupType: "file", Timestamp: time.Now().UTC().Add(-20 * 24 * time.Hour),
	}).Error)

	rec := get(t, router, token, "/api/backups/stale")
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []ledger.StaleBackup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "vaultwarden", rows[0].Application)

	// A generous threshold reports nothing stale.
	rec = get(t, router, token, "/api/backups/stale?hours=9000")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Empty(t, rows)
}

func TestGetCounts(t *testing.T) {
	_, router, token := newTestServer(t)
	rec := get(t, router, token, "/api/counts")
	require.Equal(t, http.StatusOK, rec.Code)

	var counts []ledger.TableCount
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
	assert.Len(t, counts, 7)
}

func TestLimitParamCap(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/backups?limit=99999", nil)
	assert.Equal(t, maxLimit, limitParam(req))

	req = httptest.NewRequest(http.MethodGet, "/api/backups?limit=7", nil)
	assert.Equal(t, 7, limitParam(req))

	req = httptest.NewRequest(http.MethodGet, "/api/backups", nil)
	assert.Equal(t, defaultLimit, limitParam(req))
}

func TestSecurityHeaders(t *testing.T) {
	_, router, _ := newTestServer(t)
	rec := get(t, router, "", "/healthz")
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"), "HSTS only in production")
}
