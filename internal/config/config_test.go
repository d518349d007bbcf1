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
	path := filepath.Join(t.TempDir(), "chronoquery.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen: ":9000"
logLevel: debug
backend:
  url: https://akips.example.com
  datasourceId: 4
  username: api-ro
  password: hunter2
  timeoutSeconds: 10
breaker:
  maxFailures: 3
query:
  timezone: Australia/Sydney
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "https://akips.example.com", cfg.Backend.URL)
	assert.Equal(t, int64(4), cfg.Backend.DatasourceID)
	assert.Equal(t, "api-ro", cfg.Backend.Username)
	assert.Equal(t, 10*time.Second, cfg.Timeout())
	assert.Equal(t, uint32(3), cfg.Breaker.MaxFailures)
	assert.Equal(t, 30*time.Second, cfg.OpenTimeout())
	assert.Equal(t, int64(1000), cfg.Query.MaxDataPoints)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Australia/Sydney", loc.String())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(envBackendURL, "http://env-backend:3000")
	t.Setenv(envPassword, "from-env")

	cfg, err := Load(writeConfig(t, "backend:\n  url: http://file-backend\n  password: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://env-backend:3000", cfg.Backend.URL)
	assert.Equal(t, "from-env", cfg.Backend.Password)
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv(envBackendURL, "http://localhost:3000")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "info", cfg.LogLevel)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Nil(t, loc)
}

func TestLoadEmptyFile(t *testing.T) {
	t.Setenv(envBackendURL, "http://localhost:3000")
	_, err := Load(writeConfig(t, ""))
	require.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv(envBackendURL, "")

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"missing url", "listen: ':1'\n", "backend.url"},
		{"bad scheme", "backend:\n  url: ftp://x\n", "backend.url"},
		{"negative timeout", "backend:\n  url: http://x\n  timeoutSeconds: -1\n", "backend.timeoutSeconds"},
		{"bad level", "logLevel: loud\nbackend:\n  url: http://x\n", "logLevel"},
		{"bad timezone", "backend:\n  url: http://x\nquery:\n  timezone: Mars/Olympus\n", "query.timezone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			var ce *ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestLoadUnknownField(t *testing.T) {
	_, err := Load(writeConfig(t, "backend:\n  url: http://x\n  passwrd: typo\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "can't decode config")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
