package hardware

import (
	"io"
	"log/slog"
	"sync"
)

// Write records one register write made through a Simulator.
type Write struct {
	Base, Instance, Reg, Value uint32
}

type registerKey struct {
	base, instance, reg uint32
}

// Simulator is an in-memory Hardware. Register writes are stored and can be
// read back; bus values are set by tests or the console.
type Simulator struct {
	logger *slog.Logger

	mu        sync.Mutex
	registers map[registerKey]uint32
	writes    []Write

	bits       [BitBusCount]bool
	bitChanges [BitBusCount]bool
	pos        [PosBusCount]uint32
	posChanges [PosBusCount]bool
}

// NewSimulator creates a simulator. A nil logger discards output.
func NewSimulator(logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Simulator{
		logger:    logger,
		registers: make(map[registerKey]uint32),
	}
}

// ReadRegister returns the last value written to the register, or 0.
func (s *Simulator) ReadRegister(base, instance, reg uint32) uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.registers[registerKey{base, instance, reg}]
}

// WriteRegister stores the value and records the write.
func (s *Simulator) WriteRegister(base, instance, reg, value uint32) {
	s.mu.Lock()
	s.registers[registerKey{base, instance, reg}] = value
	s.writes = append(s.writes, Write{base, instance, reg, value})
	s.mu.Unlock()

	s.logger.Debug("register write",
		slog.Uint64("base", uint64(base)),
		slog.Uint64("instance", uint64(instance)),
		slog.Uint64("reg", uint64(reg)),
		slog.Uint64("value", uint64(value)))
}

// SetRegister sets a register value without recording a write. Use it to
// simulate hardware-driven changes to read registers.
func (s *Simulator) SetRegister(base, instance, reg, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registers[registerKey{base, instance, reg}] = value
}

// Writes returns a copy of all register writes in order.
func (s *Simulator) Writes() []Write {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Write, len(s.writes))
	copy(out, s.writes)
	return out
}

// SetBit drives one bit bus entry.
func (s *Simulator) SetBit(index int, value bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.bits[index] != value {
		s.bits[index] = value
		s.bitChanges[index] = true
	}
}

// SetPosition drives one position bus entry.
func (s *Simulator) SetPosition(index int, value uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos[index] != value {
		s.pos[index] = value
		s.posChanges[index] = true
	}
}

// ReadBits copies the bit bus and clears the change flags.
func (s *Simulator) ReadBits(values, changes []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(values, s.bits[:])
	copy(changes, s.bitChanges[:])
	s.bitChanges = [BitBusCount]bool{}
}

// ReadPositions copies the position bus and clears the change flags.
func (s *Simulator) ReadPositions(values []uint32, changes []bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy(values, s.pos[:])
	copy(changes, s.posChanges[:])
	s.posChanges = [PosBusCount]bool{}
}

// Compile-time interface satisfaction check.
var _ Hardware = (*Simulator)(nil)
