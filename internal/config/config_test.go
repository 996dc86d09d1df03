package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "mysql", cfg.Database.Type)
	assert.Contains(t, cfg.Database.DSN, "parseTime=true")
	assert.Contains(t, cfg.Database.DSN, "loc=UTC")
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 365*24*time.Hour, cfg.Retention.Default)
	assert.Equal(t, 90*24*time.Hour, cfg.Retention.HealthCheck)
	assert.Equal(t, "0 * * * *", cfg.Schedule.HealthPass)
	assert.Equal(t, "opsledger", cfg.Author)
	assert.False(t, cfg.DryRun)
}

func TestSinksAbsentByDefault(t *testing.T) {
	cfg := Load()

	// A sink exists only if its configuration is present.
	assert.Nil(t, cfg.Sinks.Discord)
	assert.Nil(t, cfg.Sinks.Apprise)
	assert.Nil(t, cfg.Sinks.Heartbeat)
}

func TestSinkProbing(t *testing.T) {
	t.Setenv("DISCORD_WEBHOOK_URL", "https://discord.com/api/webhooks/1/abc")
	t.Setenv("APPRISE_URL", "https://apprise.local")
	t.Setenv("APPRISE_TAG", "homelab")
	t.Setenv("HEARTBEAT_URL", "https://kuma.local/api/push/xyz")

	cfg := Load()

	require.NotNil(t, cfg.Sinks.Discord)
	assert.Equal(t, "https://discord.com/api/webhooks/1/abc", cfg.Sinks.Discord.WebhookURL)
	assert.Equal(t, "opsledger", cfg.Sinks.Discord.Username)
	require.NotNil(t, cfg.Sinks.Apprise)
	assert.Equal(t, "homelab", cfg.Sinks.Apprise.Tag)
	require.NotNil(t, cfg.Sinks.Heartbeat)
}

func TestValidateDatabaseType(t *testing.T) {
	cfg := Load()
	cfg.Database.Type = "postgres"
	assert.Error(t, cfg.Validate())

	cfg.Database.Type = "sqlite"
	assert.NoError(t, cfg.Validate())
}

func TestValidateSinkURLs(t *testing.T) {
	cfg := Load()
	cfg.Sinks.Discord = &DiscordConfig{WebhookURL: "not a url"}
	assert.Error(t, cfg.Validate())
}

func TestValidateJWTSecretLength(t *testing.T) {
	cfg := Load()
	cfg.API.JWTSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg.API.JWTSecret = strings.Repeat("x", 32)
	assert.NoError(t, cfg.Validate())
}

func TestValidateRetention(t *testing.T) {
	cfg := Load()
	cfg.Retention.Default = time.Hour
	assert.Error(t, cfg.Validate())
}

func TestProbeHostList(t *testing.T) {
	t.Setenv("PROBE_PING_HOSTS", "host1, host2 ,,host3")

	cfg := Load()
	assert.Equal(t, []string{"host1", "host2", "host3"}, cfg.Probes.PingHosts)
}

func TestRetentionOverride(t *testing.T) {
	t.Setenv("RETENTION_DEFAULT_DAYS", "30")
	t.Setenv("RETENTION_HEALTH_DAYS", "7")

	cfg := Load()
	assert.Equal(t, 30*24*time.Hour, cfg.Retention.Default)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention.HealthCheck)
}
