package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.State.Interval)
	assert.Empty(t, cfg.Layout)
	assert.False(t, cfg.Console)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
layout: /etc/panda/layout.yaml
state:
  path: /var/lib/panda/state.json
  interval: 10s
event_log: registry.rlog
log_level: debug
metrics_addr: ":9100"
simulation:
  enabled: true
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/etc/panda/layout.yaml", cfg.Layout)
	assert.Equal(t, "/var/lib/panda/state.json", cfg.State.Path)
	assert.Equal(t, 10*time.Second, cfg.State.Interval)
	assert.Equal(t, "registry.rlog", cfg.EventLog)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, ":9100", cfg.MetricsAddr)
	assert.True(t, cfg.Simulation.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Simulation.Interval, "unset keys keep defaults")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "loud"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.State.Path = "state.json"
	cfg.State.Interval = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Simulation.Enabled = true
	cfg.Simulation.Interval = -time.Second
	assert.Error(t, cfg.Validate())
}

func TestServeFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log_level: warn\nlayout: a.yaml\n"), 0644))

	root := newRootCmd()
	serve, _, err := root.Find([]string{"serve"})
	require.NoError(t, err)
	require.NoError(t, root.PersistentFlags().Set("config", path))
	require.NoError(t, serve.ParseFlags([]string{"--layout", "b.yaml", "--state", "s.json", "--state-interval", "1m", "--console"}))

	cfg, err := serveConfig(serve)
	require.NoError(t, err)
	assert.Equal(t, "b.yaml", cfg.Layout)
	assert.Equal(t, "warn", cfg.LogLevel, "file value kept when flag unset")
	assert.Equal(t, "s.json", cfg.State.Path)
	assert.Equal(t, time.Minute, cfg.State.Interval)
	assert.True(t, cfg.Console)
	assert.False(t, cfg.Simulation.Enabled)
}
