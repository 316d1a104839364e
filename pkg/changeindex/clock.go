package changeindex

import (
	"math"
	"sync/atomic"
)

// Never is the report index given to categories that were not requested.
// No stamp can exceed it, so nothing in that category is reported.
const Never uint64 = math.MaxUint64

// InitialStamp is the stamp every entity starts with.
const InitialStamp uint64 = 1

// Clock issues strictly increasing 64-bit stamps.
// A Clock is safe for concurrent use.
type Clock struct {
	value atomic.Uint64
}

// NewClock creates a clock whose current value is InitialStamp.
func NewClock() *Clock {
	c := &Clock{}
	c.value.Store(InitialStamp)
	return c
}

// Advance increments the clock and returns the new value.
func (c *Clock) Advance() uint64 {
	return c.value.Add(1)
}

// Current returns the most recently issued stamp without advancing.
func (c *Clock) Current() uint64 {
	return c.value.Load()
}
