package model

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pandablocks/panda-registry/pkg/attr"
	"github.com/pandablocks/panda-registry/pkg/types"
)

// registerBase is shared by the param, read and write classes: a type over
// one hardware register.
type registerBase struct {
	f   *Field
	typ types.Type
	reg uint32
}

func (c *registerBase) parseRegister(line string) error {
	if strings.ContainsAny(line, " \t") {
		return fmt.Errorf("%w: %q", ErrExtraArguments, line)
	}
	reg, err := c.f.block.parseRegister(line)
	if err != nil {
		return err
	}
	c.reg = reg
	return nil
}

func (c *registerBase) writeRegister(instance int, value uint32) {
	r := c.f.registry()
	r.hw.WriteRegister(c.f.block.base, uint32(instance), c.reg, value)
}

func (c *registerBase) readRegister(instance int) uint32 {
	r := c.f.registry()
	return r.hw.ReadRegister(c.f.block.base, uint32(instance), c.reg)
}

func (c *registerBase) attributes() []attr.Methods { return nil }

func (c *registerBase) enumeration(instance int) ([]string, bool) {
	return c.typ.Enumeration(instance)
}

func (c *registerBase) parseAttribute(line string) error {
	return c.typ.ParseAttributeLine(line)
}

// valueCache holds the last written or read value of each instance with
// its stamp.
type valueCache struct {
	mu     sync.Mutex
	values []uint32
	stamps stamps
}

func (v *valueCache) init(count int) {
	v.values = make([]uint32, count)
	v.stamps = newStamps(count)
}

func (v *valueCache) value(instance int) uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.values[instance]
}

func (v *valueCache) changeSet(reportIndex uint64, changes []bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.stamps.changeSet(reportIndex, changes)
}

// paramClass caches client-written values and writes them to hardware.
type paramClass struct {
	registerBase
	valueCache

	// writeMu serialises hardware writes with cache updates. The change
	// set walk never takes it.
	writeMu sync.Mutex
}

func newParam(f *Field, spec string) (class, types.Type, error) {
	c := &paramClass{registerBase: registerBase{f: f}}
	c.valueCache.init(f.Count())
	typeSpec, def, hasDefault := splitDefault(spec)
	if typeSpec == "" {
		typeSpec = "uint"
	}
	typ, err := newFieldType(f, typeSpec, c)
	if err != nil {
		return nil, nil, err
	}
	c.typ = typ

	if hasDefault {
		v, err := strconv.ParseUint(def, 0, 32)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q", ErrInvalidDefault, def)
		}
		for i := range c.values {
			c.values[i] = uint32(v)
		}
	}
	return c, typ, nil
}

func (c *paramClass) get(instance int) (string, error) {
	return c.typ.Format(instance, c.value(instance))
}

func (c *paramClass) put(instance int, value string) error {
	v, err := c.typ.Parse(instance, value)
	if err != nil {
		return err
	}
	return c.WriteRaw(instance, v)
}

// changeSet reports nothing for actions: there is no value to show.
func (c *paramClass) changeSet(reportIndex uint64, changes []bool) {
	if c.typ.Name() == "action" {
		for i := range changes {
			changes[i] = false
		}
		return
	}
	c.valueCache.changeSet(reportIndex, changes)
}

func (c *paramClass) finalise() error {
	for i := range c.values {
		c.writeRegister(i, c.value(i))
	}
	return nil
}

// ReadRaw implements types.Register.
func (c *paramClass) ReadRaw(instance int) (uint32, error) { return c.value(instance), nil }

// WriteRaw implements types.Register.
func (c *paramClass) WriteRaw(instance int, value uint32) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	c.values[instance] = value
	c.stamps[instance] = c.f.registry().clock.Advance()
	c.mu.Unlock()

	c.writeRegister(instance, value)
	return nil
}

// Changed implements types.Register.
func (c *paramClass) Changed(instance int) {
	c.mu.Lock()
	c.stamps[instance] = c.f.registry().clock.Advance()
	c.mu.Unlock()
}

// readClass reads a hardware register on demand and reports a change
// whenever the value read differs from the last one.
type readClass struct {
	registerBase
	valueCache
}

func newRead(f *Field, spec string) (class, types.Type, error) {
	c := &readClass{registerBase: registerBase{f: f}}
	c.valueCache.init(f.Count())
	if spec == "" {
		spec = "uint"
	}
	typ, err := newFieldType(f, spec, c)
	if err != nil {
		return nil, nil, err
	}
	c.typ = typ
	return c, typ, nil
}

// sample reads hardware outside the lock and stamps a changed value.
func (c *readClass) sample(instance int) uint32 {
	v := c.readRegister(instance)
	c.mu.Lock()
	defer c.mu.Unlock()
	if v != c.values[instance] {
		c.values[instance] = v
		c.stamps[instance] = c.f.registry().clock.Advance()
	}
	return v
}

func (c *readClass) get(instance int) (string, error) {
	return c.typ.Format(instance, c.sample(instance))
}

func (c *readClass) changeSet(reportIndex uint64, changes []bool) {
	for i := range changes {
		c.sample(i)
	}
	c.valueCache.changeSet(reportIndex, changes)
}

// ReadRaw implements types.Register.
func (c *readClass) ReadRaw(instance int) (uint32, error) { return c.sample(instance), nil }

// WriteRaw implements types.Register.
func (c *readClass) WriteRaw(int, uint32) error { return ErrNotWriteable }

// Changed implements types.Register.
func (c *readClass) Changed(instance int) {
	c.mu.Lock()
	c.stamps[instance] = c.f.registry().clock.Advance()
	c.mu.Unlock()
}

// writeClass forwards client writes to hardware and keeps nothing.
type writeClass struct {
	registerBase
}

func newWrite(f *Field, spec string) (class, types.Type, error) {
	c := &writeClass{registerBase: registerBase{f: f}}
	if spec == "" {
		spec = "uint"
	}
	typ, err := newFieldType(f, spec, c)
	if err != nil {
		return nil, nil, err
	}
	c.typ = typ
	return c, typ, nil
}

func (c *writeClass) put(instance int, value string) error {
	v, err := c.typ.Parse(instance, value)
	if err != nil {
		return err
	}
	c.writeRegister(instance, v)
	return nil
}

func (c *writeClass) changeSet(_ uint64, changes []bool) {
	for i := range changes {
		changes[i] = false
	}
}

// ReadRaw implements types.Register.
func (c *writeClass) ReadRaw(int) (uint32, error) { return 0, ErrNotReadable }

// WriteRaw implements types.Register.
func (c *writeClass) WriteRaw(instance int, value uint32) error {
	c.writeRegister(instance, value)
	return nil
}

// Changed implements types.Register.
func (c *writeClass) Changed(int) {}

var (
	_ types.Register = (*paramClass)(nil)
	_ types.Register = (*readClass)(nil)
	_ types.Register = (*writeClass)(nil)
	_ getter         = (*paramClass)(nil)
	_ putter         = (*paramClass)(nil)
	_ finaliser      = (*paramClass)(nil)
	_ getter         = (*readClass)(nil)
	_ putter         = (*writeClass)(nil)
)
