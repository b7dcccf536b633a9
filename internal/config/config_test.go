package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 10*time.Second, cfg.Database.ConnectTimeout)
	assert.Equal(t, DefaultLocalDatabasePath, cfg.Local.Path)
	assert.False(t, cfg.Sync.Enabled)
	assert.Equal(t, "*/15 * * * *", cfg.Sync.Schedule)
	assert.Equal(t, 30*time.Second, cfg.Worker.SubmitTimeout)
	assert.Equal(t, 1, cfg.Tasks.Workers)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.example.com")
	t.Setenv("DB_NAME", "arcade")
	t.Setenv("DB_USER", "arcade_app")
	t.Setenv("LOCAL_DB_PATH", "/tmp/arcade-test.db")
	t.Setenv("SYNC_ENABLED", "true")
	t.Setenv("WORKER_SUBMIT_TIMEOUT", "5s")

	cfg := NewConfig()

	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, "arcade", cfg.Database.Name)
	assert.Equal(t, "/tmp/arcade-test.db", cfg.Local.Path)
	assert.True(t, cfg.Sync.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Worker.SubmitTimeout)
}

func TestDatabase_IsConfigured(t *testing.T) {
	assert.False(t, Database{}.IsConfigured())
	assert.False(t, Database{Host: "db.example.com"}.IsConfigured())
	assert.True(t, Database{Host: "db.example.com", Name: "arcade", User: "arcade_app"}.IsConfigured())
	assert.True(t, Database{ConnectionString: "postgres://u:p@h/db"}.IsConfigured())
}
