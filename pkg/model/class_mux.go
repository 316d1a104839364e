package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pandablocks/panda-registry/pkg/attr"
	"github.com/pandablocks/panda-registry/pkg/muxlookup"
	"github.com/pandablocks/panda-registry/pkg/types"
)

// MaxBitMuxDelay is the longest input delay the hardware supports.
const MaxBitMuxDelay = 31

// ErrDelayTooLong is returned for a DELAY above MaxBitMuxDelay.
var ErrDelayTooLong = errors.New("Delay too long")

// muxClass selects a bus entry by name. Bit bus selectors also carry a
// per-instance input delay in a second register.
type muxClass struct {
	f        *Field
	typ      types.Type
	table    *muxlookup.Table
	hasDelay bool
	muxReg   uint32
	delayReg uint32

	// defaultName is resolved once every output is registered.
	defaultName string

	writeMu sync.Mutex
	mu      sync.Mutex
	values  []uint32
	delays  []uint32
	stamps  stamps
}

func newBitMux(f *Field, spec string) (class, types.Type, error) {
	return newMuxClass(f, spec, "bit_mux", f.registry().bitMux, muxlookup.BitBusZero, true)
}

func newPosMux(f *Field, spec string) (class, types.Type, error) {
	return newMuxClass(f, spec, "pos_mux", f.registry().posMux, muxlookup.PosBusZero, false)
}

func newMuxClass(f *Field, spec, typeName string, table *muxlookup.Table, zero uint32, hasDelay bool) (class, types.Type, error) {
	typeSpec, def, hasDefault := splitDefault(spec)
	if typeSpec != "" && typeSpec != typeName {
		return nil, nil, fmt.Errorf("%w: %s", ErrClassForcesType, typeSpec)
	}
	c := &muxClass{
		f:        f,
		table:    table,
		hasDelay: hasDelay,
		values:   make([]uint32, f.Count()),
		delays:   make([]uint32, f.Count()),
		stamps:   newStamps(f.Count()),
	}
	for i := range c.values {
		c.values[i] = zero
	}
	if hasDefault {
		if def == "" {
			return nil, nil, fmt.Errorf("%w: empty", ErrInvalidDefault)
		}
		c.defaultName = def
	}

	typ, err := newFieldType(f, typeName, c)
	if err != nil {
		return nil, nil, err
	}
	c.typ = typ
	return c, typ, nil
}

func (c *muxClass) parseRegister(line string) error {
	words := strings.Fields(line)
	want := 1
	if c.hasDelay {
		want = 2
	}
	if len(words) != want {
		return fmt.Errorf("%w: expected %d registers", ErrInvalidRegister, want)
	}
	reg, err := c.f.block.parseRegister(words[0])
	if err != nil {
		return err
	}
	if c.hasDelay {
		delay, err := c.f.block.parseRegister(words[1])
		if err != nil {
			c.f.block.releaseRegister(reg)
			return err
		}
		c.delayReg = delay
	}
	c.muxReg = reg
	return nil
}

// validate resolves the default selection now that every output name is
// known. A numeric default is taken as a bus index.
func (c *muxClass) validate() error {
	if c.defaultName == "" {
		return nil
	}
	v, err := c.table.LookupName(c.defaultName)
	if err != nil {
		n, perr := strconv.ParseUint(c.defaultName, 0, 32)
		if perr != nil {
			return fmt.Errorf("%w: %s", ErrInvalidDefault, c.defaultName)
		}
		v = uint32(n)
	}
	c.mu.Lock()
	for i := range c.values {
		c.values[i] = v
	}
	c.mu.Unlock()
	return nil
}

func (c *muxClass) finalise() error {
	r := c.f.registry()
	for i := range c.values {
		r.hw.WriteRegister(c.f.block.base, uint32(i), c.muxReg, c.value(i))
	}
	return nil
}

func (c *muxClass) value(instance int) uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[instance]
}

func (c *muxClass) get(instance int) (string, error) {
	return c.typ.Format(instance, c.value(instance))
}

func (c *muxClass) put(instance int, value string) error {
	v, err := c.typ.Parse(instance, strings.TrimSpace(value))
	if err != nil {
		return err
	}
	return c.WriteRaw(instance, v)
}

func (c *muxClass) changeSet(reportIndex uint64, changes []bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stamps.changeSet(reportIndex, changes)
}

func (c *muxClass) enumeration(instance int) ([]string, bool) {
	return c.typ.Enumeration(instance)
}

// ReadRaw implements types.Register.
func (c *muxClass) ReadRaw(instance int) (uint32, error) { return c.value(instance), nil }

// WriteRaw implements types.Register.
func (c *muxClass) WriteRaw(instance int, value uint32) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	c.values[instance] = value
	c.stamps[instance] = c.f.registry().clock.Advance()
	c.mu.Unlock()

	r := c.f.registry()
	r.hw.WriteRegister(c.f.block.base, uint32(instance), c.muxReg, value)
	return nil
}

// Changed implements types.Register.
func (c *muxClass) Changed(instance int) {
	c.mu.Lock()
	c.stamps[instance] = c.f.registry().clock.Advance()
	c.mu.Unlock()
}

func (c *muxClass) attributes() []attr.Methods {
	if !c.hasDelay {
		return nil
	}
	return []attr.Methods{
		{
			Name:        "DELAY",
			Description: "Clock delay on input",
			InChangeSet: true,
			Format: func(i int) (string, error) {
				c.mu.Lock()
				defer c.mu.Unlock()
				return strconv.FormatUint(uint64(c.delays[i]), 10), nil
			},
			Put: func(i int, value string) error {
				v, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
				if err != nil {
					return fmt.Errorf("%w: %q", types.ErrInvalidNumber, value)
				}
				if v > MaxBitMuxDelay {
					return ErrDelayTooLong
				}
				c.mu.Lock()
				c.delays[i] = uint32(v)
				c.mu.Unlock()
				r := c.f.registry()
				r.hw.WriteRegister(c.f.block.base, uint32(i), c.delayReg, uint32(v))
				return nil
			},
		},
		{
			Name:        "MAX_DELAY",
			Description: "Maximum valid input delay",
			Format: func(int) (string, error) {
				return strconv.Itoa(MaxBitMuxDelay), nil
			},
		},
	}
}

var (
	_ types.Register = (*muxClass)(nil)
	_ validator      = (*muxClass)(nil)
	_ finaliser      = (*muxClass)(nil)
	_ enumerator     = (*muxClass)(nil)
)
