package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pandablocks/panda-registry/pkg/attr"
	"github.com/pandablocks/panda-registry/pkg/types"
)

// ErrValueTooSmall is returned for a non-zero time below the minimum.
var ErrValueTooSmall = errors.New("Value too small")

// timeClass holds a 48-bit tick count split over a low and a high register,
// presented in per-instance units.
type timeClass struct {
	f         *Field
	low, high uint32
	min       uint64

	mu     sync.Mutex
	values []uint64
	units  []types.TimeUnit
	stamps stamps
}

func newTimeClass(f *Field, spec string) (class, types.Type, error) {
	if spec != "" {
		return nil, nil, fmt.Errorf("%w: %s", ErrClassForcesType, spec)
	}
	c := &timeClass{
		f:      f,
		values: make([]uint64, f.Count()),
		units:  make([]types.TimeUnit, f.Count()),
		stamps: newStamps(f.Count()),
	}
	for i := range c.units {
		c.units[i] = types.TimeUnitSeconds
	}
	return c, nil, nil
}

// parseRegister accepts "low high" optionally followed by "> min", the
// smallest non-zero tick count accepted.
func (c *timeClass) parseRegister(line string) error {
	regs, minimum, hasMin := strings.Cut(line, ">")
	words := strings.Fields(regs)
	if len(words) != 2 {
		return fmt.Errorf("%w: expected low and high registers", ErrInvalidRegister)
	}
	low, err := c.f.block.parseRegister(words[0])
	if err != nil {
		return err
	}
	high, err := c.f.block.parseRegister(words[1])
	if err != nil {
		c.f.block.releaseRegister(low)
		return err
	}
	if hasMin {
		v, err := strconv.ParseUint(strings.TrimSpace(minimum), 0, 48)
		if err != nil {
			c.f.block.releaseRegister(low)
			c.f.block.releaseRegister(high)
			return fmt.Errorf("%w: minimum %q", ErrInvalidRegister, minimum)
		}
		c.min = v
	}
	c.low, c.high = low, high
	return nil
}

func (c *timeClass) get(instance int) (string, error) {
	c.mu.Lock()
	v, unit := c.values[instance], c.units[instance]
	c.mu.Unlock()
	return types.FormatFloat(types.TimeFromTicks(v, unit)), nil
}

func (c *timeClass) put(instance int, value string) error {
	v, err := types.ParseFloat(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	unit := c.units[instance]
	c.mu.Unlock()

	ticks, err := types.TicksFromTime(v, unit, types.MaxClockValue)
	if err != nil {
		return err
	}
	return c.write(instance, ticks)
}

func (c *timeClass) write(instance int, ticks uint64) error {
	if ticks > types.MaxClockValue {
		return types.ErrTimeRange
	}
	if ticks != 0 && ticks < c.min {
		return ErrValueTooSmall
	}

	c.mu.Lock()
	c.values[instance] = ticks
	c.stamps[instance] = c.f.registry().clock.Advance()
	c.mu.Unlock()

	r := c.f.registry()
	r.hw.WriteRegister(c.f.block.base, uint32(instance), c.low, uint32(ticks))
	r.hw.WriteRegister(c.f.block.base, uint32(instance), c.high, uint32(ticks>>32))
	return nil
}

func (c *timeClass) changeSet(reportIndex uint64, changes []bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stamps.changeSet(reportIndex, changes)
}

func (c *timeClass) stamp(instance int) {
	c.mu.Lock()
	c.stamps[instance] = c.f.registry().clock.Advance()
	c.mu.Unlock()
}

func (c *timeClass) finalise() error {
	r := c.f.registry()
	for i := range c.values {
		r.hw.WriteRegister(c.f.block.base, uint32(i), c.low, 0)
		r.hw.WriteRegister(c.f.block.base, uint32(i), c.high, 0)
	}
	return nil
}

func (c *timeClass) attributes() []attr.Methods {
	return []attr.Methods{
		{
			Name:        "RAW",
			Description: "Raw time in FPGA clock cycles",
			Format: func(i int) (string, error) {
				c.mu.Lock()
				defer c.mu.Unlock()
				return strconv.FormatUint(c.values[i], 10), nil
			},
			Put: func(i int, value string) error {
				v, err := strconv.ParseUint(strings.TrimSpace(value), 0, 64)
				if err != nil {
					return fmt.Errorf("%w: %q", types.ErrInvalidNumber, value)
				}
				return c.write(i, v)
			},
		},
		types.UnitsAttribute(&c.mu, c.units, c.stamp),
		{
			Name:        "MIN",
			Description: "Minimum programmable time in current units",
			Polled:      true,
			Format: func(i int) (string, error) {
				c.mu.Lock()
				unit := c.units[i]
				c.mu.Unlock()
				return types.FormatFloat(types.TimeFromTicks(c.min, unit)), nil
			},
		},
	}
}

var (
	_ getter    = (*timeClass)(nil)
	_ putter    = (*timeClass)(nil)
	_ finaliser = (*timeClass)(nil)
)
