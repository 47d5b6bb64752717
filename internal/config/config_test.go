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
	t.Setenv("STORAGE_PATH", "/srv/winnow")
	t.Setenv("WINNOW_DEV", "")

	cfg := Load()
	assert.Equal(t, "8001", cfg.App.Port)
	assert.Equal(t, "production", cfg.App.Environment)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 6*time.Hour, cfg.Tool.Timeout)
	assert.Equal(t, []string{"python3", "cli.py", "--tool-script"}, cfg.ToolCommand())
	assert.Equal(t, filepath.Join("/srv/winnow", "logs", "winnow.log"), cfg.LogFile())
	assert.False(t, cfg.Tracing.Enabled)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("WINNOW_DEV", "true")
	t.Setenv("STORAGE_PATH", "./state")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("TOOL_COMMAND", "/opt/winnow/tool  --json")
	t.Setenv("TOOL_TIMEOUT", "90")
	t.Setenv("TOOL_WAIT_DELAY", "250ms")
	t.Setenv("LOG_FILE_PATH", "/tmp/w.log")
	t.Setenv("OTEL_ENABLED", "true")

	cfg := Load()
	assert.Equal(t, "9000", cfg.App.Port)
	assert.True(t, cfg.App.Dev)
	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "./state", cfg.Storage.Root)
	assert.Equal(t, []string{"/opt/winnow/tool", "--json"}, cfg.ToolCommand())
	assert.Equal(t, 90*time.Second, cfg.Tool.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Tool.WaitDelay)
	assert.Equal(t, "/tmp/w.log", cfg.LogFile())
	assert.True(t, cfg.Tracing.Enabled)
}

func TestStorageLayout(t *testing.T) {
	root := t.TempDir()
	s := StorageConfig{Root: root}

	assert.Equal(t, filepath.Join(root, "data", "session.json"), s.DataFile())
	assert.Equal(t, filepath.Join(root, "data", "run.json"), s.RunFile())

	require.NoError(t, s.EnsureLayout())
	for _, dir := range []string{s.CollectionsDir(), s.MetadataDir(), s.RunsDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestDefaultStorageRootDev(t *testing.T) {
	assert.Equal(t, ".", defaultStorageRoot(true))
	assert.NotEmpty(t, defaultStorageRoot(false))
}

func TestLoadWithOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("STORAGE_PATH", "/srv/winnow")
	t.Setenv("WINNOW_DEV", "false")

	cfg := LoadWith(Overrides{Port: "7000", SpaPath: "/opt/www", Dev: true})
	assert.Equal(t, "7000", cfg.App.Port)
	assert.Equal(t, "/opt/www", cfg.App.SpaPath)
	assert.Equal(t, "/srv/winnow", cfg.Storage.Root)
	assert.True(t, cfg.App.Dev)
	assert.False(t, cfg.IsProduction())
}
