package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Bind)
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 50, cfg.TopN)
	assert.Equal(t, 100*time.Millisecond, cfg.CPUSampleInterval())
	assert.Equal(t, "nvidia-smi", cfg.NvidiaSmiPath)
	assert.False(t, cfg.ClampNegativeIO)
}

func TestLoadConfigParsesAndBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	content := `
bind: 0.0.0.0
token: secret
top_n: 10
clamp_negative_io: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Bind)
	assert.Equal(t, "secret", cfg.Token)
	assert.Equal(t, 10, cfg.TopN)
	assert.True(t, cfg.ClampNegativeIO)
	// Unset fields fall back to defaults.
	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, 100, cfg.CPUSampleMs)
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [not a port"), 0o600))

	_, err := loadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}
