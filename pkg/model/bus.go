package model

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pandablocks/panda-registry/pkg/changeindex"
	"github.com/pandablocks/panda-registry/pkg/hardware"
	"github.com/pandablocks/panda-registry/pkg/metrics"
)

const (
	busBits      = "bits"
	busPositions = "positions"
)

// busCache is the registry's snapshot of the bit and position buses with a
// stamp per bus entry.
type busCache struct {
	hw      hardware.Hardware
	metrics *metrics.Metrics

	// flight coalesces concurrent field reads of the same bus.
	flight singleflight.Group

	mu        sync.Mutex
	bits      [hardware.BitBusCount]bool
	bitStamps [hardware.BitBusCount]uint64
	positions [hardware.PosBusCount]uint32
	posStamps [hardware.PosBusCount]uint64
}

func newBusCache(hw hardware.Hardware, m *metrics.Metrics) *busCache {
	c := &busCache{hw: hw, metrics: m}
	for i := range c.bitStamps {
		c.bitStamps[i] = changeindex.InitialStamp
	}
	for i := range c.posStamps {
		c.posStamps[i] = changeindex.InitialStamp
	}
	return c
}

// readBits snapshots the bit bus and stamps changed bits with stamp. The
// caller holds the registry's changeMu and issued stamp under it, so bus
// reads happen in stamp order.
func (c *busCache) readBits(stamp uint64) {
	var values, changes [hardware.BitBusCount]bool
	c.hw.ReadBits(values[:], changes[:])

	c.mu.Lock()
	for i, changed := range changes {
		if changed && stamp > c.bitStamps[i] {
			c.bitStamps[i] = stamp
		}
	}
	c.bits = values
	c.mu.Unlock()

	c.metrics.ObserveRefresh(busBits)
}

// readPositions snapshots the position bus like readBits.
func (c *busCache) readPositions(stamp uint64) {
	var values [hardware.PosBusCount]uint32
	var changes [hardware.PosBusCount]bool
	c.hw.ReadPositions(values[:], changes[:])

	c.mu.Lock()
	for i, changed := range changes {
		if changed && stamp > c.posStamps[i] {
			c.posStamps[i] = stamp
		}
	}
	c.positions = values
	c.mu.Unlock()

	c.metrics.ObserveRefresh(busPositions)
}

// refreshBus takes a fresh snapshot of one bus for a field read, stamped
// with a new clock value. Concurrent field reads of the same bus share one
// snapshot.
func (r *Registry) refreshBus(bus string) {
	_, _, _ = r.bus.flight.Do(bus, func() (any, error) {
		r.changeMu.Lock()
		defer r.changeMu.Unlock()

		stamp := r.clock.Advance()
		if bus == busBits {
			r.bus.readBits(stamp)
		} else {
			r.bus.readPositions(stamp)
		}
		return nil, nil
	})
}

func (c *busCache) bit(index uint32) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bits[index]
}

func (c *busCache) position(index uint32) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.positions[index]
}

func (c *busCache) bitChanges(indices []uint32, reportIndex uint64, changes []bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ix := range indices {
		changes[i] = c.bitStamps[ix] > reportIndex
	}
}

func (c *busCache) positionChanges(indices []uint32, reportIndex uint64, changes []bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, ix := range indices {
		changes[i] = c.posStamps[ix] > reportIndex
	}
}
