package cmd

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantmind-br/modctl/internal/config"
	"github.com/quantmind-br/modctl/internal/core"
	"github.com/quantmind-br/modctl/internal/manager"
	"github.com/quantmind-br/modctl/internal/ui"
)

// testConfig builds a config whose game dir, store and database all live
// under a fresh temp dir.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	tmpDir := t.TempDir()
	return &config.Config{
		Paths: config.PathsConfig{
			DataDir:  filepath.Join(tmpDir, "data"),
			StoreDir: filepath.Join(tmpDir, "data", "store"),
			DBFile:   filepath.Join(tmpDir, "data", "modctl.db"),
		},
		Game: config.GameConfig{
			Dir: filepath.Join(tmpDir, "game"),
		},
	}
}

// seedMod registers a one-file package directory named name through a
// short-lived engine using the same config the command under test will use.
func seedMod(t *testing.T, cfg *config.Config, name string) {
	t.Helper()

	pkgDir := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(filepath.Join(pkgDir, "data"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(pkgDir, "data", "mesh.pak"), []byte(name), 0644))

	ctx := context.Background()
	log := zerolog.Nop()
	m, err := manager.New(ctx, cfg, &log)
	require.NoError(t, err)
	defer m.Close()

	tk, err := m.AddMod(ctx, pkgDir, nil)
	require.NoError(t, err)
	out, err := tk.Wait(ctx)
	require.NoError(t, err)
	require.True(t, out.Success)
}

func TestResolverFromFlag(t *testing.T) {
	t.Parallel()

	t.Run("ask prompts per file", func(t *testing.T) {
		t.Parallel()
		res, err := resolverFromFlag("ask")
		require.NoError(t, err)
		assert.IsType(t, ui.PromptResolver{}, res)
	})

	t.Run("yes answers every conflict", func(t *testing.T) {
		t.Parallel()
		res, err := resolverFromFlag("yes")
		require.NoError(t, err)
		static, ok := res.(core.StaticResolver)
		require.True(t, ok)
		assert.Equal(t, core.OverwriteYesToAll, static.Overwrite)
	})

	t.Run("no declines every conflict", func(t *testing.T) {
		t.Parallel()
		res, err := resolverFromFlag("no")
		require.NoError(t, err)
		static, ok := res.(core.StaticResolver)
		require.True(t, ok)
		assert.Equal(t, core.OverwriteNoToAll, static.Overwrite)
	})

	t.Run("unknown value rejected", func(t *testing.T) {
		t.Parallel()
		_, err := resolverFromFlag("maybe")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--overwrite")
	})
}
