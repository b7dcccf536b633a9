package config

import (
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		Database
		Local
		Sync
		Worker
		Tasks
		Auth
	}

	// Database holds the remote PostgreSQL connection parameters.
	// Either ConnectionString or the discrete fields may be used.
	Database struct {
		Host             string
		Port             int
		Name             string
		User             string
		Password         string
		ConnectionString string
		ConnectTimeout   time.Duration
	}

	// Local holds the embedded SQLite configuration.
	Local struct {
		Path string
	}

	// Sync controls the optional scheduled reconciliation pass.
	Sync struct {
		Enabled  bool
		Schedule string // Cron format: "*/15 * * * *" = every 15 minutes
	}

	// Worker controls the background persistence worker.
	Worker struct {
		SubmitTimeout time.Duration
	}

	Tasks struct {
		Workers           int
		MaxRetries        int
		RetryDelay        time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}

	Auth struct {
		BcryptCost int
	}
)

// IsConfigured reports whether enough remote parameters are present to
// attempt a PostgreSQL connection. Absence is a normal state (local-only
// mode), not an error.
func (d Database) IsConfigured() bool {
	if d.ConnectionString != "" {
		return true
	}
	return d.Host != "" && d.Name != "" && d.User != ""
}

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("db_host", "")
	v.SetDefault("db_port", 5432)
	v.SetDefault("db_name", "")
	v.SetDefault("db_user", "")
	v.SetDefault("db_password", "")
	v.SetDefault("database_url", "")
	v.SetDefault("db_connect_timeout", "10s")
	v.SetDefault("local_db_path", DefaultLocalDatabasePath)

	// Scheduled reconciliation defaults
	v.SetDefault("sync_enabled", false)
	v.SetDefault("sync_schedule", "*/15 * * * *")

	// Worker defaults
	v.SetDefault("worker_submit_timeout", "30s")

	// Outbox task queue defaults
	v.SetDefault("task_workers", 1)
	v.SetDefault("task_max_retries", 5)
	v.SetDefault("task_retry_delay", "1m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	// Auth defaults
	v.SetDefault("auth_bcrypt_cost", 12)

	return &Config{
		Database: Database{
			Host:             v.GetString("DB_HOST"),
			Port:             v.GetInt("DB_PORT"),
			Name:             v.GetString("DB_NAME"),
			User:             v.GetString("DB_USER"),
			Password:         v.GetString("DB_PASSWORD"),
			ConnectionString: v.GetString("DATABASE_URL"),
			ConnectTimeout:   v.GetDuration("DB_CONNECT_TIMEOUT"),
		},
		Local: Local{
			Path: v.GetString("LOCAL_DB_PATH"),
		},
		Sync: Sync{
			Enabled:  v.GetBool("SYNC_ENABLED"),
			Schedule: v.GetString("SYNC_SCHEDULE"),
		},
		Worker: Worker{
			SubmitTimeout: v.GetDuration("WORKER_SUBMIT_TIMEOUT"),
		},
		Tasks: Tasks{
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			RetryDelay:        v.GetDuration("TASK_RETRY_DELAY"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Auth: Auth{
			BcryptCost: v.GetInt("AUTH_BCRYPT_COST"),
		},
	}
}
