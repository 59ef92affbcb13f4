package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
web_service:
  port: 8081
storage:
  backend: sqlite
  timeout: 3s
  sqlite:
    path: /tmp/reports.db
identity:
  api_key: test-key
session:
  secret_key: s3cret
  expire_hours: 2
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8081", cfg.GetWebServiceAddr())
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, 3*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, "/tmp/reports.db", cfg.Storage.SQLite.Path)
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL())
	// untouched sections keep their defaults
	assert.Equal(t, "animal_reports", cfg.Storage.Mongo.Collection)
	assert.Equal(t, "uploads", cfg.Upload.Dir)
	assert.Equal(t, 5*time.Minute, cfg.RateLimit.Window)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STRAYSAVER_IDENTITY_API_KEY", "env-key")
	t.Setenv("STRAYSAVER_SESSION_SECRET_KEY", "env-secret")
	t.Setenv("STRAYSAVER_STORAGE_BACKEND", "mongo")
	t.Setenv("STRAYSAVER_STORAGE_MONGO_URI", "mongodb://db:27017")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Identity.APIKey)
	assert.Equal(t, "env-secret", cfg.Session.SecretKey)
	assert.Equal(t, BackendMongo, cfg.Storage.Backend)
	assert.Equal(t, "mongodb://db:27017", cfg.Storage.Mongo.URI)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Storage:  StorageConfig{Backend: BackendFile},
			Session:  SessionConfig{Store: SessionStoreMemory, SecretKey: "k"},
			Identity: IdentityConfig{APIKey: "k"},
		}
	}

	require.NoError(t, valid().Validate())

	c := valid()
	c.Storage.Backend = "postgres"
	assert.ErrorIs(t, c.Validate(), ErrUnknownBackend)

	c = valid()
	c.Session.Store = "memcached"
	assert.ErrorIs(t, c.Validate(), ErrUnknownSessionStore)

	c = valid()
	c.Session.SecretKey = "  "
	assert.ErrorIs(t, c.Validate(), ErrMissingSecret)

	c = valid()
	c.Identity.APIKey = ""
	assert.ErrorIs(t, c.Validate(), ErrMissingAPIKey)

	c = valid()
	c.Security.CSRFKey = "too-short"
	assert.ErrorIs(t, c.Validate(), ErrBadCSRFKey)
	c.Security.CSRFKey = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, c.Validate())
}
