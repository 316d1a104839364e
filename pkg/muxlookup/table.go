package muxlookup

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/pandablocks/panda-registry/pkg/hardware"
)

// Lookup errors.
var (
	ErrIndexOutOfRange = errors.New("Index out of range")
	ErrIndexAssigned   = errors.New("Index already assigned")
	ErrDuplicateName   = errors.New("Duplicate mux name")
	ErrUnknownSelector = errors.New("Mux selector not known")
	ErrEmptyName       = errors.New("Empty mux name")
)

// Constant values on the two buses.
const (
	BitBusZero = hardware.BitBusCount
	BitBusOne  = hardware.BitBusCount + 1
	PosBusZero = hardware.PosBusCount
)

// Table is a bidirectional slot/name map.
// A Table is safe for concurrent use.
type Table struct {
	mu        sync.RWMutex
	names     []string
	slots     map[string]uint32
	constants map[uint32]string
}

// New creates a table with the given number of slots.
func New(capacity int) *Table {
	return &Table{
		names:     make([]string, capacity),
		slots:     make(map[string]uint32),
		constants: make(map[uint32]string),
	}
}

// NewBitBus creates the bit bus table with ZERO and ONE.
func NewBitBus() *Table {
	t := New(hardware.BitBusCount)
	t.addConstant("ZERO", BitBusZero)
	t.addConstant("ONE", BitBusOne)
	return t
}

// NewPosBus creates the position bus table with ZERO.
func NewPosBus() *Table {
	t := New(hardware.PosBusCount)
	t.addConstant("ZERO", PosBusZero)
	return t
}

func (t *Table) addConstant(name string, value uint32) {
	t.slots[name] = value
	t.constants[value] = name
}

// Capacity returns the number of insertable slots.
func (t *Table) Capacity() int { return len(t.names) }

// Insert binds name to slot.
func (t *Table) Insert(slot uint32, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if name == "" {
		return ErrEmptyName
	}
	if int(slot) >= len(t.names) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, slot)
	}
	if t.names[slot] != "" {
		return fmt.Errorf("%w: %d", ErrIndexAssigned, slot)
	}
	if _, ok := t.slots[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	t.names[slot] = name
	t.slots[name] = slot
	return nil
}

// Remove unbinds slot. Removing an unassigned slot does nothing.
func (t *Table) Remove(slot uint32) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if int(slot) >= len(t.names) || t.names[slot] == "" {
		return
	}
	delete(t.slots, t.names[slot])
	t.names[slot] = ""
}

// LookupName returns the slot (or constant value) selected by name.
func (t *Table) LookupName(name string) (uint32, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	slot, ok := t.slots[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownSelector, name)
	}
	return slot, nil
}

// LookupSlot returns the name bound to a slot or constant value.
// ok is false for unassigned or out of range values.
func (t *Table) LookupSlot(slot uint32) (name string, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(slot) < len(t.names) {
		name = t.names[slot]
		return name, name != ""
	}
	name, ok = t.constants[slot]
	return name, ok
}

// Format renders a selector value. Unassigned values render as "".
func (t *Table) Format(slot uint32) string {
	name, _ := t.LookupSlot(slot)
	return name
}

// Names returns every selectable name: the constants first, then the
// assigned slots in slot order.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	values := make([]uint32, 0, len(t.constants))
	for v := range t.constants {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })

	out := make([]string, 0, len(t.slots))
	for _, v := range values {
		out = append(out, t.constants[v])
	}
	for _, name := range t.names {
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
