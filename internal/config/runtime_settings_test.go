package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() RuntimeSettings {
	return RuntimeSettings{
		BackendURL:     "https://videos.example",
		HistoryMaxSize: 50,
		SweepCron:      "*/5 * * * *",
		StrictParsing:  false,
	}
}

func TestRuntimeSettings_Validate(t *testing.T) {
	valid := validSettings()
	require.NoError(t, valid.Validate())

	invalid := valid
	invalid.SweepCron = "bad cron"
	require.Error(t, invalid.Validate())

	invalidSize := valid
	invalidSize.HistoryMaxSize = 0
	require.Error(t, invalidSize.Validate())

	invalidURL := valid
	invalidURL.BackendURL = "videos.example"
	require.Error(t, invalidURL.Validate())
}

func TestRuntimeSettingsFile_RoundTrip(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "settings", "runtime.json")
	input := validSettings()
	input.StrictParsing = true

	require.NoError(t, WriteRuntimeSettingsFile(filePath, input))

	got, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, input, got)

	info, err := os.Stat(filePath)
	require.NoError(t, err)
	assert.False(t, info.IsDir())

	_, err = os.Stat(filePath + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestWriteRuntimeSettingsFile_RejectsInvalid(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "runtime.json")
	bad := validSettings()
	bad.HistoryMaxSize = -3

	require.Error(t, WriteRuntimeSettingsFile(filePath, bad))
	_, err := os.Stat(filePath)
	assert.True(t, os.IsNotExist(err))
}

func TestWithRuntimeSettings_OverridesConfig(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://env.example")
	t.Setenv("SESSION_SWEEP_CRON", "0 1 * * *")

	override := RuntimeSettings{
		BackendURL:     "https://file.example",
		HistoryMaxSize: 20,
		SweepCron:      "*/30 * * * *",
		StrictParsing:  true,
	}

	cfg, err := NewFromEnv(WithRuntimeSettings(override))
	require.NoError(t, err)
	assert.Equal(t, override.BackendURL, cfg.Backend.URL)
	assert.Equal(t, 20, cfg.Editor.HistoryMaxSize)
	assert.Equal(t, override.SweepCron, cfg.Editor.SweepCron)
	assert.True(t, cfg.Editor.StrictParsing)
	assert.Equal(t, override, cfg.RuntimeSettings())
}

func TestRuntimeSettingsStore_UpdatePersistsFile(t *testing.T) {
	tmp := t.TempDir()
	filePath := filepath.Join(tmp, "runtime-settings.json")

	store, err := NewRuntimeSettingsStore(filePath, validSettings())
	require.NoError(t, err)

	next := RuntimeSettings{
		BackendURL:     "https://new.example",
		HistoryMaxSize: 5,
		SweepCron:      "0 0 * * *",
		StrictParsing:  true,
	}
	got, err := store.UpdateRuntimeSettings(next)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	current, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, next, current)

	loaded, err := LoadRuntimeSettingsFile(filePath)
	require.NoError(t, err)
	assert.Equal(t, next, loaded)
}

func TestRuntimeSettingsStore_RejectedUpdateKeepsCurrent(t *testing.T) {
	store, err := NewRuntimeSettingsStore(filepath.Join(t.TempDir(), "s.json"), validSettings())
	require.NoError(t, err)

	bad := validSettings()
	bad.SweepCron = "nope"
	_, err = store.UpdateRuntimeSettings(bad)
	require.Error(t, err)

	current, err := store.GetRuntimeSettings()
	require.NoError(t, err)
	assert.Equal(t, validSettings(), current)
}
