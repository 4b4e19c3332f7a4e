package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Catalog.Driver)
	assert.Equal(t, 2, cfg.Search.MinPrefixLength)
	assert.Equal(t, 5, cfg.Search.AutocompleteLimit)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Zero(t, cfg.Index.RebuildInterval)
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlDoc := `
catalog:
  driver: sqlite
  sqlitePath: /tmp/catalog.db
index:
  rebuildInterval: 5m
search:
  maxResults: 50
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))
	t.Setenv("SP_LOGGING_LEVEL", "debug")
	t.Setenv("SP_KAFKA_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Catalog.Driver)
	assert.Equal(t, "/tmp/catalog.db", cfg.Catalog.SQLitePath)
	assert.Equal(t, 5*time.Minute, cfg.Index.RebuildInterval)
	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Kafka.Enabled)
	// untouched sections keep their defaults
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("SP_CATALOG_DRIVER", "mysql")
	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadRateLimitDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 100, cfg.Server.RateLimit.Requests)
	assert.Equal(t, time.Second, cfg.Server.RateLimit.Window)
}

func TestValidateRejectsRateLimitWithoutWindow(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.Server.RateLimit.Window = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadDevelopmentConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Catalog.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Index.RebuildInterval)
}
