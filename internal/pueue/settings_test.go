package pueue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadSettings_MissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.yml")

	settings, found, err := ReadSettings(&path)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, "127.0.0.1", settings.Shared.Host)
	assert.Equal(t, 10, settings.Daemon.CallbackLogLines)
}

func TestSettings_SaveAndReadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pueue.yml")
	callback := "notify-send done"

	settings := DefaultSettings()
	settings.Daemon.Callback = &callback
	settings.Daemon.CallbackLogLines = 25
	require.NoError(t, SaveSettings(settings, &path))

	loaded, found, err := ReadSettings(&path)
	require.NoError(t, err)
	assert.True(t, found)
	require.NotNil(t, loaded.Daemon.Callback)
	assert.Equal(t, "notify-send done", *loaded.Daemon.Callback)
	assert.Equal(t, 25, loaded.Daemon.CallbackLogLines)
}

func TestReadSettings_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pueue.yml")
	require.NoError(t, os.WriteFile(path, []byte("shared: [not: a map"), 0o644))

	_, _, err := ReadSettings(&path)
	require.Error(t, err)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PUEUE_DIRECTORY", "/data/pueue")
	t.Setenv("PUEUE_RUNTIME_DIRECTORY", "/run/pueue")
	t.Setenv("PUEUE_SOCKET_PATH", "/run/pueue/custom.socket")

	settings := DefaultSettings()
	settings.Shared.UseUnixSocket = false
	ApplyEnvOverrides(&settings)

	require.NotNil(t, settings.Shared.PueueDirectory)
	assert.Equal(t, "/data/pueue", *settings.Shared.PueueDirectory)
	assert.True(t, settings.Shared.UseUnixSocket)
	assert.Equal(t, "/run/pueue/custom.socket", settings.Shared.SocketPath())
	assert.Equal(t, filepath.Join("/data/pueue", "shared_secret"), settings.Shared.SharedSecretPathResolved())
}

func TestConfigPathOverride(t *testing.T) {
	t.Setenv("PUEUE_CONFIG", "/etc/pueue/pueue.yml")
	path := ConfigPathOverride()
	require.NotNil(t, path)
	assert.Equal(t, "/etc/pueue/pueue.yml", *path)
}
