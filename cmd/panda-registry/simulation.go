package main

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/pandablocks/panda-registry/pkg/hardware"
	"github.com/pandablocks/panda-registry/pkg/model"
	"github.com/pandablocks/panda-registry/pkg/muxlookup"
)

// runSimulation drives the simulated buses until ctx is cancelled: each
// tick one assigned bit toggles and every assigned position moves.
func runSimulation(ctx context.Context, reg *model.Registry, sim *hardware.Simulator, interval time.Duration, logger *slog.Logger) {
	bits := assignedSlots(reg.BitMux())
	positions := assignedSlots(reg.PosMux())
	logger.Info("simulation started", "bits", len(bits), "positions", len(positions))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	values := make(map[int]bool, len(bits))
	var tick uint32
	for {
		select {
		case <-ctx.Done():
			logger.Info("simulation stopped")
			return
		case <-ticker.C:
			tick++
			if len(bits) > 0 {
				slot := bits[rand.IntN(len(bits))]
				values[slot] = !values[slot]
				sim.SetBit(slot, values[slot])
			}
			for i, slot := range positions {
				sim.SetPosition(slot, tick*uint32(i+1))
			}
			logger.Debug("simulation tick", "tick", tick)
		}
	}
}

// assignedSlots lists the bus slots that have a name.
func assignedSlots(t *muxlookup.Table) []int {
	var slots []int
	for slot := range t.Capacity() {
		if _, ok := t.LookupSlot(uint32(slot)); ok {
			slots = append(slots, slot)
		}
	}
	return slots
}
