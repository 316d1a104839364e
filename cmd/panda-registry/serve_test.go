package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pandablocks/panda-registry/pkg/persistence"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServerPersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.State.Path = filepath.Join(dir, "state.json")
	cfg.State.Interval = time.Hour
	cfg.EventLog = filepath.Join(dir, "registry.rlog")

	srv, err := newServer(cfg, quietLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.run(ctx, cancel) }()

	require.NoError(t, srv.reg.ApplyLine("PULSE1.WIDTH.UNITS=ms"))
	require.NoError(t, srv.reg.ApplyLine("PULSE1.WIDTH=20"))
	require.NoError(t, srv.reg.ApplyLine("TTLOUT3.VAL=TTLIN2.VAL"))
	cancel()
	require.NoError(t, <-done)
	srv.close()

	state, err := persistence.NewStore(cfg.State.Path).Load()
	require.NoError(t, err)
	require.NotNil(t, state, "state saved on shutdown")

	restarted, err := newServer(cfg, quietLogger())
	require.NoError(t, err)
	defer restarted.close()

	got, err := restarted.reg.Get("PULSE1.WIDTH")
	require.NoError(t, err)
	assert.Equal(t, "20", got.Value)
	got, err = restarted.reg.Get("TTLOUT3.VAL")
	require.NoError(t, err)
	assert.Equal(t, "TTLIN2.VAL", got.Value)

	// The restored state counts as saved.
	saved, err := restarted.saver.Poll()
	require.NoError(t, err)
	assert.False(t, saved)

	var stats bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stats)
	root.SetArgs([]string{"log", "stats", cfg.EventLog})
	require.NoError(t, root.Execute())
	assert.Contains(t, stats.String(), "PUT:")
}

func TestServerBadLayout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Layout = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := newServer(cfg, quietLogger())
	assert.Error(t, err)
}

func TestSimulationDrivesBuses(t *testing.T) {
	srv, err := newServer(DefaultConfig(), quietLogger())
	require.NoError(t, err)
	defer srv.close()

	bits := assignedSlots(srv.reg.BitMux())
	positions := assignedSlots(srv.reg.PosMux())
	assert.NotEmpty(t, bits)
	assert.NotEmpty(t, positions)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	runSimulation(ctx, srv.reg, srv.sim, 5*time.Millisecond, quietLogger())

	values := make([]uint32, 32)
	changes := make([]bool, 32)
	srv.sim.ReadPositions(values, changes)
	assert.NotZero(t, values[positions[0]], "position bus moved")
}
