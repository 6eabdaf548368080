package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setArgs replaces os.Args for the duration of the test so the flag and
// JSON overlays see a controlled command line.
func setArgs(t *testing.T, args ...string) {
	t.Helper()
	saved := os.Args
	os.Args = append([]string{"identity-server"}, args...)
	t.Cleanup(func() { os.Args = saved })
}

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.NotEmpty(t, cfg.DatabaseDSN)
	assert.Equal(t, "sid", cfg.SessionCookie)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
}

func TestParseEnv_Overlay(t *testing.T) {
	t.Setenv("ADDRESS", ":9090")
	t.Setenv("DATABASE_DSN", "postgres://env/dsn")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("SESSION_TTL", "30m")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, ":9090", cfg.EndpointAddrHTTP)
	assert.Equal(t, "postgres://env/dsn", cfg.DatabaseDSN)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)

	// untouched fields keep their defaults
	assert.Equal(t, "sid", cfg.SessionCookie)
}

func TestParseEnv_MalformedNumberPanics(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := &Config{}
	cfg.LoadDefaults()
	require.Panics(t, func() { parseEnv(cfg) })
}

func TestLoadConfig_EnvTTLSurvivesFlagParsing(t *testing.T) {
	// a sub-hour TTL from the environment must not be truncated by the
	// whole-hours -t flag when that flag is absent
	setArgs(t)
	t.Setenv("SESSION_TTL", "30m")

	cfg := LoadConfig()

	assert.Equal(t, 30*time.Minute, cfg.SessionTTL)
}

func TestParseFlags_AbsentFlagsKeepValues(t *testing.T) {
	setArgs(t)

	cfg := &Config{}
	cfg.LoadDefaults()
	cfg.SessionTTL = 45 * time.Minute
	cfg.DatabaseDSN = "postgres://keep/me"

	parseFlags(cfg)

	assert.Equal(t, 45*time.Minute, cfg.SessionTTL)
	assert.Equal(t, "postgres://keep/me", cfg.DatabaseDSN)
}

func TestParseFlags_SessionTTLFlag(t *testing.T) {
	setArgs(t, "-t", "2", "-a", ":9999")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, ":9999", cfg.EndpointAddrHTTP)
}

func TestParseJson_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"database_dsn": "postgres://from/json"}`), 0o600))
	setArgs(t, "-c", path)

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, "postgres://from/json", cfg.DatabaseDSN)

	// fields absent from the file keep their defaults
	assert.Equal(t, ":8080", cfg.EndpointAddrHTTP)
	assert.Equal(t, "sid", cfg.SessionCookie)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestJsonConfig_DurationForms(t *testing.T) {
	var c JsonConfig
	require.NoError(t, json.Unmarshal([]byte(`{"session_ttl": "12h"}`), &c))
	assert.Equal(t, 12*time.Hour, time.Duration(c.SessionTTL.Duration))

	var c2 JsonConfig
	require.NoError(t, json.Unmarshal([]byte(`{"session_ttl": 1000000000}`), &c2))
	assert.Equal(t, time.Second, time.Duration(c2.SessionTTL.Duration))
}
