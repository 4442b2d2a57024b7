package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestApplyEnv(t *testing.T) {
	cfg := validConfig()
	err := cfg.ApplyEnv(envFrom(map[string]string{
		EnvMaxHops:  "12",
		EnvStore:    "sqlite:/var/lib/relay/relay.db",
		EnvLogLevel: "warn",
		EnvProvider: "google",
		EnvModel:    "gemini-2.5-pro",
	}))
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.MaxHops)
	assert.Equal(t, Store{Type: StoreSQLite, Path: "/var/lib/relay/relay.db"}, cfg.Store)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, Backend{Provider: "google", Model: "gemini-2.5-pro"}, cfg.Backend)
}

func TestApplyEnvLeavesUnsetValues(t *testing.T) {
	cfg := validConfig()
	cfg.MaxHops = 3
	require.NoError(t, cfg.ApplyEnv(envFrom(nil)))
	assert.Equal(t, 3, cfg.MaxHops)
}

func TestApplyEnvInvalid(t *testing.T) {
	cfg := validConfig()
	err := cfg.ApplyEnv(envFrom(map[string]string{EnvMaxHops: "many"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvMaxHops)

	err = cfg.ApplyEnv(envFrom(map[string]string{EnvStore: "file"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a path")
}

func TestApplyEnvironment(t *testing.T) {
	t.Setenv(EnvMaxHops, "7")
	cfg := validConfig()
	require.NoError(t, cfg.ApplyEnvironment())
	assert.Equal(t, 7, cfg.MaxHops)
}

func TestParseStore(t *testing.T) {
	tests := []struct {
		ref  string
		want Store
	}{
		{"memory", Store{Type: StoreMemory}},
		{"file:/tmp/checkpoints", Store{Type: StoreFile, Path: "/tmp/checkpoints"}},
		{"SQLite:relay.db", Store{Type: StoreSQLite, Path: "relay.db"}},
		{"redis", Store{Type: StoreRedis, Addr: "localhost:6379"}},
		{"redis:cache.internal:6380", Store{Type: StoreRedis, Addr: "cache.internal:6380"}},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := ParseStore(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseStore("etcd:localhost")
	assert.Error(t, err)
}
