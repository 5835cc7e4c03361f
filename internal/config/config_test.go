package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFromEnv_Defaults(t *testing.T) {
	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "/app/web", cfg.HTTP.UIStaticDir)
	assert.True(t, cfg.HTTP.UIEnabled)
	assert.Equal(t, "/app/data/subedit.db", cfg.Storage.DBPath)
	assert.Equal(t, 1, cfg.Storage.AutosaveWorkers)
	assert.Equal(t, "http://localhost:8000", cfg.Backend.URL)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 50, cfg.Editor.HistoryMaxSize)
	assert.Equal(t, 2*time.Hour, cfg.Editor.IdleTTL)
	assert.Equal(t, "*/10 * * * *", cfg.Editor.SweepCron)
	assert.False(t, cfg.Editor.StrictParsing)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestNewFromEnv_ReadsEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", "127.0.0.1:9000")
	t.Setenv("DB_PATH", "/tmp/subs.db")
	t.Setenv("BACKEND_URL", "https://videos.example")
	t.Setenv("BACKEND_TOKEN", "secret")
	t.Setenv("BACKEND_TIMEOUT", "5s")
	t.Setenv("HISTORY_MAX_SIZE", "10")
	t.Setenv("SESSION_IDLE_TTL", "30m")
	t.Setenv("SRT_STRICT", "true")
	t.Setenv("LOG_PRETTY", "1")

	cfg, err := NewFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, "/tmp/subs.db", cfg.Storage.DBPath)
	assert.Equal(t, "https://videos.example", cfg.Backend.URL)
	assert.Equal(t, "secret", cfg.Backend.Token)
	assert.Equal(t, 5*time.Second, cfg.Backend.Timeout)
	assert.Equal(t, 10, cfg.Editor.HistoryMaxSize)
	assert.Equal(t, 30*time.Minute, cfg.Editor.IdleTTL)
	assert.True(t, cfg.Editor.StrictParsing)
	assert.True(t, cfg.Log.Pretty)
}

func TestNewFromEnv_MalformedValuesFallBack(t *testing.T) {
	t.Setenv("HISTORY_MAX_SIZE", "many")
	t.Setenv("SRT_STRICT", "maybe")
	t.Setenv("BACKEND_TIMEOUT", "soon")

	cfg, err := NewFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.Editor.HistoryMaxSize)
	assert.False(t, cfg.Editor.StrictParsing)
	assert.Equal(t, 30*time.Second, cfg.Backend.Timeout)
}

func TestNewFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "bad cron", key: "SESSION_SWEEP_CRON", value: "every minute"},
		{name: "negative history", key: "HISTORY_MAX_SIZE", value: "-1"},
		{name: "backend scheme", key: "BACKEND_URL", value: "ftp://videos.example"},
		{name: "backend host", key: "BACKEND_URL", value: "http://"},
		{name: "zero ttl", key: "SESSION_IDLE_TTL", value: "0s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := NewFromEnv()
			require.Error(t, err)
		})
	}
}

func TestNewFromEnv_Options(t *testing.T) {
	cfg, err := NewFromEnv(WithDBPath("/data/x.db"), WithAddr(":9999"), WithDBPath("  "))
	require.NoError(t, err)
	assert.Equal(t, "/data/x.db", cfg.Storage.DBPath)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
}
