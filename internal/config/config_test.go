package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
storage:
  path: /data/graph.bin
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "sync_read", cfg.Storage.Mode)
	assert.Equal(t, 256, cfg.Storage.QueueDepth)
	assert.Equal(t, "normal", cfg.Cache.Mode)
	assert.Equal(t, 1024, cfg.Cache.SizeSlots)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_CustomValues(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := `
storage:
  path: /data/graph.bin
  mode: in_memory
cache:
  mode: simple
  size_slots: 4096
pool:
  max_workers: 16
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0644))

	cfg, err := Load(configFile)
	require.NoError(t, err)
	assert.Equal(t, "in_memory", cfg.Storage.Mode)
	assert.Equal(t, "simple", cfg.Cache.Mode)
	assert.Equal(t, 4096, cfg.Cache.SizeSlots)
	assert.Equal(t, 16, cfg.Pool.MaxWorkers)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_RejectsUnknownStorageMode(t *testing.T) {
	_, err := LoadFromReader("yaml", []byte("storage:\n  mode: teleport\n"))
	require.Error(t, err)
}

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader("yaml", []byte("cache:\n  mode: none\n"))
	require.NoError(t, err)
	assert.Equal(t, "none", cfg.Cache.Mode)
}
