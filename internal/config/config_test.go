package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pointConfigAt isolates the test from any real config file.
func pointConfigAt(t *testing.T, path string) {
	t.Helper()
	t.Setenv("SND_CONFIG", path)
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8005, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Bind)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/mcp", cfg.MCP.Path)
	assert.Equal(t, 30, cfg.ServiceNow.TimeoutSeconds)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.IsDebug())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	pointConfigAt(t, filepath.Join(t.TempDir(), "missing.json"))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8005, cfg.Server.Port)
}

func TestLoad_FileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sndiag.json")
	content := `{
		"server": {"port": 9999, "bind": "127.0.0.1"},
		"servicenow": {"instance_url": "https://file.service-now.com"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	pointConfigAt(t, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind)
	assert.Equal(t, "https://file.service-now.com", cfg.ServiceNow.InstanceURL)
	// untouched sections keep defaults
	assert.Equal(t, "/mcp", cfg.MCP.Path)
}

func TestLoad_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sndiag.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))
	pointConfigAt(t, path)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sndiag.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"server": {"port": 9999}}`), 0o600))
	pointConfigAt(t, path)

	t.Setenv("SND_PORT", "7070")
	t.Setenv("SND_SN_INSTANCE", "https://env.service-now.com")
	t.Setenv("SND_SN_USERNAME", "env-user")
	t.Setenv("SND_LOG_MODE", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "https://env.service-now.com", cfg.ServiceNow.InstanceURL)
	assert.Equal(t, "env-user", cfg.ServiceNow.Username)
	assert.True(t, cfg.IsDebug())
}

func TestLoad_PortEnvFallback(t *testing.T) {
	pointConfigAt(t, filepath.Join(t.TempDir(), "missing.json"))
	t.Setenv("PORT", "8123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8123, cfg.Server.Port)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sndiag.json")
	pointConfigAt(t, path)

	cfg := Default()
	cfg.Server.Port = 8100
	cfg.ServiceNow.InstanceURL = "https://saved.service-now.com"
	require.NoError(t, Save(cfg))

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8100, loaded.Server.Port)
	assert.Equal(t, "https://saved.service-now.com", loaded.ServiceNow.InstanceURL)
}

func TestListenAddrAndTimeout(t *testing.T) {
	cfg := Default()
	cfg.Server.Bind = "127.0.0.1"
	cfg.Server.Port = 8005
	assert.Equal(t, "127.0.0.1:8005", cfg.ListenAddr())

	cfg.ServiceNow.TimeoutSeconds = 0
	assert.Equal(t, "30s", cfg.RequestTimeout().String())
	cfg.ServiceNow.TimeoutSeconds = 5
	assert.Equal(t, "5s", cfg.RequestTimeout().String())
}
