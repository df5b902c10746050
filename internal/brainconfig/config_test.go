package brainconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Port, cfg.Port)
	assert.Equal(t, Default().DefaultAgent, cfg.DefaultAgent)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9090\nmax_concurrent: 5\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 5, cfg.MaxConcurrent)
	assert.Equal(t, Default().Host, cfg.Host)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "brain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: 9090\n"), 0o644))

	t.Setenv("BRAIN_PORT", "4444")
	t.Setenv("ENABLE_AUTH", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4444, cfg.Port)
	assert.True(t, cfg.EnableAuth)
}

func TestDerivedPaths(t *testing.T) {
	cfg := Config{BrainDir: "/tmp/brain"}
	assert.Equal(t, "/tmp/brain/state", cfg.StateDir())
	assert.Equal(t, "/tmp/brain/brain.db", cfg.DBPath())
	assert.Equal(t, "/tmp/brain/projects", cfg.ProjectsDir())
}
