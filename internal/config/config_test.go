package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Initialize(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, WorkspaceDir), cfg.Path())
	assert.Equal(t, filepath.Join(dir, WorkspaceDir, DatabaseFile), cfg.DatabasePath())
	assert.Equal(t, filepath.Join(dir, WorkspaceDir, LogFile), cfg.LogPath())
	assert.FileExists(t, filepath.Join(dir, WorkspaceDir, ConfigFile))

	_, err = Initialize(dir)
	assert.Error(t, err)
}

func TestLoadFrom_RoundTrip(t *testing.T) {
	cfg, err := Initialize(t.TempDir())
	require.NoError(t, err)

	cfg.CurrentProject = "p1"
	cfg.RowLimit = 50
	cfg.LogLevel = "debug"
	require.NoError(t, cfg.Save())

	loaded, err := LoadFrom(cfg.Path())
	require.NoError(t, err)
	assert.Equal(t, "p1", loaded.CurrentProject)
	assert.Equal(t, 50, loaded.RowLimit)
	assert.Equal(t, "debug", loaded.LogLevel)
	assert.Equal(t, DefaultDiffWorkers, loaded.DiffWorkers)
}

func TestLoadFrom_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), WorkspaceDir)
	require.NoError(t, os.MkdirAll(path, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(path, ConfigFile), []byte("row_limit = 0\n"), 0644))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultRowLimit, cfg.RowLimit)
	assert.Equal(t, DefaultDiffWorkers, cfg.DiffWorkers)
	assert.Equal(t, DefaultLogLevel, cfg.LogLevel)
	assert.Equal(t, DefaultLogFormat, cfg.LogFormat)
	assert.Empty(t, cfg.CurrentProject)
}

func TestLoadFrom_Invalid(t *testing.T) {
	path := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(path, ConfigFile), []byte("row_limit = ["), 0644))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestFindRoot_Env(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	root, err := FindRoot()
	require.NoError(t, err)
	assert.Equal(t, home, root)

	t.Setenv(HomeEnv, filepath.Join(home, "missing"))
	_, err = FindRoot()
	assert.Error(t, err)
}

func TestFindRoot_WalksUp(t *testing.T) {
	t.Setenv(HomeEnv, "")
	dir := t.TempDir()
	_, err := Initialize(dir)
	require.NoError(t, err)

	nested := filepath.Join(dir, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	root, err := FindRoot()
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(filepath.Join(dir, WorkspaceDir))
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
