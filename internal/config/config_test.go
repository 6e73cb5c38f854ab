package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"halights/internal/ha"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvHost, EnvToken, EnvSecure, EnvStore, EnvStorePath,
		EnvConnectTimeout, EnvLogLevel, EnvLogFile,
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.Store)
	assert.Equal(t, ha.DefaultConnectTimeout, cfg.ConnectTimeout)
	assert.False(t, cfg.Secure)
	assert.Equal(t, "store.yaml", filepath.Base(cfg.StorePath))
	assert.Equal(t, "halights", filepath.Base(filepath.Dir(cfg.StorePath)))
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "halights.yaml")
	content := `host: 192.168.1.50
token: abc
secure: true
store: sqlite
store_path: /tmp/halights.db
connect_timeout: 2s
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "192.168.1.50", cfg.Host)
	assert.Equal(t, "abc", cfg.Token)
	assert.True(t, cfg.Secure)
	assert.Equal(t, "sqlite", cfg.Store)
	assert.Equal(t, "/tmp/halights.db", cfg.StorePath)
	assert.Equal(t, 2*time.Second, cfg.ConnectTimeout)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "halights.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: 10.0.0.1\n"), 0644))

	t.Setenv(EnvHost, "10.0.0.2")
	t.Setenv(EnvSecure, "true")
	t.Setenv(EnvConnectTimeout, "1500")
	t.Setenv(EnvStore, "sqlite")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.2", cfg.Host)
	assert.True(t, cfg.Secure)
	assert.Equal(t, 1500*time.Millisecond, cfg.ConnectTimeout)
	assert.Equal(t, "store.db", filepath.Base(cfg.StorePath))
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("host: [unterminated"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)

	t.Setenv(EnvSecure, "maybe")
	_, err = Load("")
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv(EnvStore, "postgres")
	_, err = Load("")
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv(EnvConnectTimeout, "-5s")
	_, err = Load("")
	assert.Error(t, err)
}
