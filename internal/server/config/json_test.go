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

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	path := writeTempJSON(t, map[string]any{
		"env":                "production",
		"http_addr":          "www.example:9000",
		"grpc_addr":          ":7000",
		"database_dsn":       "postgres://db",
		"session_secret":     "s1",
		"service_secret":     "s2",
		"token_issuer":       "issuer",
		"session_token_ttl":  "720h",
		"service_token_ttl":  60000000000,
		"bcrypt_cost":        12,
		"hash_workers":       8,
		"store_timeout":      "2s",
		"redis_addr":         "redis:6379",
		"login_max_attempts": 5,
		"login_window":       "10m",
		"trust_gate_bypass":  true,
	})

	t.Run("loads from json", func(t *testing.T) {
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, []string{"-config", path}))

		assert.Equal(t, EnvProduction, cfg.Env)
		assert.Equal(t, "www.example:9000", cfg.HTTPAddr)
		assert.Equal(t, ":7000", cfg.GRPCAddr)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "s1", cfg.SessionSecret)
		assert.Equal(t, "s2", cfg.ServiceSecret)
		assert.Equal(t, "issuer", cfg.TokenIssuer)
		assert.Equal(t, 720*time.Hour, cfg.SessionTokenTTL)
		assert.Equal(t, time.Minute, cfg.ServiceTokenTTL)
		assert.Equal(t, 12, cfg.BcryptCost)
		assert.Equal(t, 8, cfg.HashWorkers)
		assert.Equal(t, 2*time.Second, cfg.StoreTimeout)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, 5, cfg.LoginMaxAttempts)
		assert.Equal(t, 10*time.Minute, cfg.LoginWindow)
		assert.False(t, cfg.TrustGateBypass, "bypass must not be settable from a file")
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		partial := writeTempJSON(t, map[string]any{"log_level": "warn"})
		cfg := &Config{}
		cfg.LoadDefaults()
		require.NoError(t, parseJson(cfg, []string{"-c", partial}))

		assert.Equal(t, "warn", cfg.LogLevel)
		assert.Equal(t, ":8080", cfg.HTTPAddr)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		cfg := &Config{HTTPAddr: "defaults:1234"}
		require.NoError(t, parseJson(cfg, nil))
		assert.Equal(t, "defaults:1234", cfg.HTTPAddr)
	})

	t.Run("invalid JSON → error", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		err := parseJson(&Config{}, []string{"-c", bad})
		require.Error(t, err)
	})

	t.Run("missing file → error", func(t *testing.T) {
		err := parseJson(&Config{}, []string{"-c", filepath.Join(t.TempDir(), "nope.json")})
		require.Error(t, err)
	})
}
