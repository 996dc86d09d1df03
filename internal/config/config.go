package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration. All values come from environment
// variables; sink and probe sections are nil when their variables are unset,
// which is a valid, silently-degraded configuration.
type Config struct {
	Database  DatabaseConfig
	API       APIConfig
	Sinks     SinkConfig
	Retention RetentionConfig
	Probes    ProbeConfig
	Schedule  ScheduleConfig
	Author    string
	DryRun    bool
}

// DatabaseConfig holds ledger store configuration
type DatabaseConfig struct {
	Type         string // mysql or sqlite
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// APIConfig holds read-API configuration
type APIConfig struct {
	Port        int
	JWTSecret   string
	APIKeyHash  string // bcrypt hash of the static dashboard key
	CORSOrigins []string
	Environment string
}

// SinkConfig holds notification sink configuration. Each sink is enabled
// solely by the presence of its own settings.
type SinkConfig struct {
	Discord   *DiscordConfig
	Apprise   *AppriseConfig
	Heartbeat *HeartbeatConfig
}

// DiscordConfig holds Discord webhook settings
type DiscordConfig struct {
	WebhookURL string
	Username   string
}

// AppriseConfig holds Apprise relay settings
type AppriseConfig struct {
	URL string
	Tag string
}

// HeartbeatConfig holds the Uptime-Kuma push monitor settings
type HeartbeatConfig struct {
	URL string
}

// RetentionConfig holds per-table deletion horizons. The updates table is a
// version history and is never swept.
type RetentionConfig struct {
	Default     time.Duration
	HealthCheck time.Duration
	DockerSizes time.Duration
}

// ProbeConfig holds collector settings for serve mode and the collect/
// health-pass commands.
type ProbeConfig struct {
	PingHosts   []string
	PingTimeout time.Duration
	DockerHosts []string
}

// ScheduleConfig holds cron expressions for serve-mode background jobs
type ScheduleConfig struct {
	HealthPass  string
	Sweep       string
	DockerSizes string
}

// Load loads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Database: DatabaseConfig{
			Type:         getEnv("LEDGER_DB_TYPE", "mysql"),
			DSN:          getEnv("LEDGER_DB_DSN", buildMariaDBDSN()),
			MaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 2),
		},
		API: APIConfig{
			Port:        getEnvInt("API_PORT", 8080),
			JWTSecret:   os.Getenv("API_JWT_SECRET"),
			APIKeyHash:  os.Getenv("API_KEY_HASH"),
			CORSOrigins: loadCORSOrigins(),
			Environment: getEnv("ENVIRONMENT", "production"),
		},
		Sinks:     loadSinkConfig(),
		Retention: loadRetentionConfig(),
		Probes: ProbeConfig{
			PingHosts:   splitAndTrim(os.Getenv("PROBE_PING_HOSTS")),
			PingTimeout: time.Duration(getEnvInt("PROBE_PING_TIMEOUT_SECONDS", 5)) * time.Second,
			DockerHosts: splitAndTrim(os.Getenv("DOCKER_HOSTS")),
		},
		Schedule: ScheduleConfig{
			HealthPass:  getEnv("SCHEDULE_HEALTH_PASS", "0 * * * *"),
			Sweep:       getEnv("SCHEDULE_SWEEP", "14 3 * * *"),
			DockerSizes: getEnv("SCHEDULE_DOCKER_SIZES", "30 2 * * *"),
		},
		Author: getEnv("LEDGER_AUTHOR", "opsledger"),
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	return cfg
}

func buildMariaDBDSN() string {
	host := getEnv("MARIADB_HOST", "localhost")
	port := getEnv("MARIADB_PORT", "3306")
	user := getEnv("MARIADB_USER", "opsledger")
	password := getEnv("MARIADB_PASSWORD", "")
	dbName := getEnv("MARIADB_DATABASE", "ansible_logging")

	// go-sql-driver DSN; parseTime so timestamps scan into time.Time,
	// UTC location to match the write-time timezone contract.
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&loc=UTC&timeout=10s",
		user, password, host, port, dbName)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Type != "mysql" && c.Database.Type != "sqlite" {
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	if c.Sinks.Discord != nil {
		if _, err := url.ParseRequestURI(c.Sinks.Discord.WebhookURL); err != nil {
			return fmt.Errorf("invalid DISCORD_WEBHOOK_URL: %w", err)
		}
	}
	if c.Sinks.Apprise != nil {
		if _, err := url.ParseRequestURI(c.Sinks.Apprise.URL); err != nil {
			return fmt.Errorf("invalid APPRISE_URL: %w", err)
		}
	}
	if c.Sinks.Heartbeat != nil {
		if _, err := url.ParseRequestURI(c.Sinks.Heartbeat.URL); err != nil {
			return fmt.Errorf("invalid HEARTBEAT_URL: %w", err)
		}
	}

	if c.API.JWTSecret != "" && len(c.API.JWTSecret) < 32 {
		return fmt.Errorf("API_JWT_SECRET must be at least 32 characters")
	}

	if c.Retention.Default < 24*time.Hour {
		return fmt.Errorf("RETENTION_DEFAULT_DAYS must be at least 1")
	}

	return nil
}

func loadSinkConfig() SinkConfig {
	var sinks SinkConfig

	if webhookURL := os.Getenv("DISCORD_WEBHOOK_URL"); webhookURL != "" {
		sinks.Discord = &DiscordConfig{
			WebhookURL: webhookURL,
			Username:   getEnv("DISCORD_USERNAME", "opsledger"),
		}
	}

	if appriseURL := os.Getenv("APPRISE_URL"); appriseURL != "" {
		sinks.Apprise = &AppriseConfig{
			URL: appriseURL,
			Tag: getEnv("APPRISE_TAG", "all"),
		}
	}

	if heartbeatURL := os.Getenv("HEARTBEAT_URL"); heartbeatURL != "" {
		sinks.Heartbeat = &HeartbeatConfig{URL: heartbeatURL}
	}

	return sinks
}

func loadRetentionConfig() RetentionConfig {
	day := 24 * time.Hour
	return RetentionConfig{
		Default:     time.Duration(getEnvInt("RETENTION_DEFAULT_DAYS", 365)) * day,
		HealthCheck: time.Duration(getEnvInt("RETENTION_HEALTH_DAYS", 90)) * day,
		DockerSizes: time.Duration(getEnvInt("RETENTION_DOCKER_DAYS", 90)) * day,
	}
}

func loadCORSOrigins() []string {
	if appURL := strings.TrimRight(os.Getenv("APP_URL"), "/"); appURL != "" {
		return []string{appURL}
	}
	return []string{"http://localhost:3000", "http://localhost:8080"}
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	var parts []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}
