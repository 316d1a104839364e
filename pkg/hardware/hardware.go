package hardware

// Bus sizes.
const (
	// BitBusCount is the number of bits on the bit bus.
	BitBusCount = 128
	// PosBusCount is the number of values on the position bus.
	PosBusCount = 32
)

// BlockRegisterCount is the number of registers each block instance owns.
const BlockRegisterCount = 64

// Hardware is the FPGA access used by the registry.
// Implementations must be safe for concurrent use.
type Hardware interface {
	// ReadRegister reads a 32-bit register of one block instance.
	ReadRegister(base, instance, reg uint32) uint32

	// WriteRegister writes a 32-bit register of one block instance.
	WriteRegister(base, instance, reg, value uint32)

	// ReadBits snapshots the bit bus. changes[i] is true if bit i has
	// changed since the previous snapshot. Both slices have BitBusCount
	// entries.
	ReadBits(values, changes []bool)

	// ReadPositions snapshots the position bus. changes[i] is true if
	// position i has changed since the previous snapshot. Both slices have
	// PosBusCount entries.
	ReadPositions(values []uint32, changes []bool)
}
