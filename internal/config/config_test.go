package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"clientbook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  path: test.db
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "clientbook", cfg.App.Name)
	assert.Equal(t, 60*time.Second, cfg.Engine.TickInterval())
	assert.Equal(t, models.DefaultSafetyBufferMinutes, cfg.Engine.SafetyBufferMin)
	assert.Equal(t, 128, cfg.Engine.NotifyQueueSize)
	assert.Equal(t, 24*time.Hour, cfg.Engine.NotifyDedupWindow())
	assert.Equal(t, "exports", cfg.Exports.Path)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_DB_PATH", "from-env.db")
	path := writeConfig(t, `
database:
  path: ${TEST_DB_PATH}
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env.db", cfg.Database.Path)
}

func TestLoadRejectsMissingDatabasePath(t *testing.T) {
	path := writeConfig(t, `
app:
  name: test
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "database path")
}

func TestLoadRejectsTelegramWithoutToken(t *testing.T) {
	path := writeConfig(t, `
database:
  path: test.db
notifications:
  telegram:
    enabled: true
    chat_id: 123
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "bot token")
}

func TestLoadRejectsAuthWithoutKeys(t *testing.T) {
	path := writeConfig(t, `
database:
  path: test.db
api:
  enabled: true
  auth:
    enabled: true
`)
	_, err := Load(path)
	assert.ErrorContains(t, err, "no api keys")
}

func TestAPIDefaultsOnlyWhenEnabled(t *testing.T) {
	path := writeConfig(t, `
database:
  path: test.db
api:
  enabled: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.API.HTTP.Port)
	assert.Equal(t, "x-api-key", cfg.API.Auth.HeaderAPIKey)
	assert.Equal(t, float64(10), cfg.API.RateLimit.RPS)
	assert.Equal(t, 20, cfg.API.RateLimit.Burst)
}

func TestEngineOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  path: test.db
engine:
  tick_seconds: 30
  notify_dedup_window_hours: 6
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Engine.TickInterval())
	assert.Equal(t, 6*time.Hour, cfg.Engine.NotifyDedupWindow())
}

func TestValidateServices(t *testing.T) {
	ok := []models.ServiceOffering{
		{Name: "standard", DurationMin: 90, BaseRate: 60000},
		{Name: "extended", DurationMin: 180, BaseRate: 110000},
	}
	assert.NoError(t, ValidateServices(ok))

	dup := append(ok, models.ServiceOffering{Name: "standard"})
	assert.ErrorContains(t, ValidateServices(dup), "duplicate")

	assert.ErrorContains(t, ValidateServices([]models.ServiceOffering{{Name: ""}}), "empty name")

	negative := []models.ServiceOffering{{Name: "bad", DurationMin: -1}}
	assert.ErrorContains(t, ValidateServices(negative), "negative")
}
