package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load()
	require.NoError(t, err)

	dataDir := filepath.Join(home, ".local", "share", "modctl")
	assert.Equal(t, dataDir, cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join(dataDir, "store"), cfg.Paths.StoreDir)
	assert.Equal(t, filepath.Join(dataDir, "installog.db"), cfg.Paths.DBFile)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "auto", cfg.Logging.Color)
	assert.Empty(t, cfg.Game.Dir)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("MODCTL_GAME_DIR", "/games/skyrim")
	t.Setenv("MODCTL_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/games/skyrim", cfg.Game.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	confDir := filepath.Join(home, ".config", "modctl")
	require.NoError(t, os.MkdirAll(confDir, 0755))
	content := "[game]\ndir = \"/games/morrowind\"\n\n[logging]\nlevel = \"warn\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(confDir, "config.toml"), []byte(content), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/games/morrowind", cfg.Game.Dir)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "games"), expandPath("~/games"))
	assert.Equal(t, "", expandPath(""))
	assert.Equal(t, "/absolute/path", expandPath("/absolute/path"))
}
