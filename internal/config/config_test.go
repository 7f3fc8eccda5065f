package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 2*time.Second, cfg.Polling.Interval)
	assert.Equal(t, 10*time.Second, cfg.Polling.StreamRefresh)
	assert.Equal(t, 5*time.Minute, cfg.Upload.Timeout)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Database.Enabled())
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 9090
backends:
  query_url: http://query:8080/api/v1/jobs
  violence_url: http://violence:9001
polling:
  interval: 500ms
database:
  host: db
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("VSC_VIOLENCE_URL", "http://10.0.0.5:9001")
	t.Setenv("VSC_UPLOAD_TIMEOUT", "90s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "http://query:8080/api/v1/jobs", cfg.Backends.QueryURL)
	assert.Equal(t, "http://10.0.0.5:9001", cfg.Backends.ViolenceURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Polling.Interval)
	assert.Equal(t, 90*time.Second, cfg.Upload.Timeout)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, "postgres://:@db:5432/?sslmode=disable", cfg.Database.DSN())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("VSC_API_KEY=from-dotenv\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("VSC_API_KEY") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Server.APIKey)
}

func TestLoad_BadYAML(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
}
