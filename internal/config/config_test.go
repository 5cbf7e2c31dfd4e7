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
	cfg, err := load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Addr)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, 20, cfg.Server.RateLimit.Burst)
	assert.Equal(t, 10, cfg.Server.RateLimit.PerSecond)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.False(t, cfg.Ledger.SeedDemo)
	assert.Equal(t, 10, cfg.Ledger.BcryptCost)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 16, cfg.Events.Buffer)
	assert.Equal(t, 15*time.Second, cfg.Events.Heartbeat)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OSRYN_SERVER_ADDR", "127.0.0.1:9000")
	t.Setenv("OSRYN_SERVER_RATELIMIT_BURST", "5")
	t.Setenv("OSRYN_LEDGER_SEEDDEMO", "true")
	t.Setenv("OSRYN_EVENTS_HEARTBEAT", "2s")

	cfg, err := load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, 5, cfg.Server.RateLimit.Burst)
	assert.True(t, cfg.Ledger.SeedDemo)
	assert.Equal(t, 2*time.Second, cfg.Events.Heartbeat)
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := "log:\n  level: debug\n  format: text\nledger:\n  bcryptcost: 4\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	cfg, err := load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, 4, cfg.Ledger.BcryptCost)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("OSRYN_EVENTS_BUFFER", "0")
	_, err := load(t.TempDir())
	assert.Error(t, err)
}

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nOSRYN_TEST_A=\"from-file\"\nexport OSRYN_TEST_B=b\nbroken\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("OSRYN_TEST_B", "from-env")
	t.Setenv("OSRYN_TEST_A", "")
	os.Unsetenv("OSRYN_TEST_A")

	loadDotEnv(path)
	assert.Equal(t, "from-file", os.Getenv("OSRYN_TEST_A"))
	assert.Equal(t, "from-env", os.Getenv("OSRYN_TEST_B"))
}
