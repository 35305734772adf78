package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bzclust.toml")
	content := "graph_tol = 0.9\nmin_tol = 0.2\nseed = 42\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.GraphTol)
	assert.Equal(t, 0.2, cfg.MinTol)
	assert.Equal(t, uint64(42), cfg.Seed)
	// fields absent from the file keep their DefaultConfig value, since
	// Load starts from DefaultConfig() and Unmarshal only overwrites keys
	// present in the file.
	assert.Equal(t, DefaultConfig().StartTol, cfg.StartTol)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not = [valid"), 0644))
	_, err := Load(path)
	assert.Error(t, err)
}
