// Package model implements the versioned block/field/attribute registry.
//
// # Hierarchy
//
// A Registry holds Blocks, each a group of identical instances sharing a
// hardware base address. Blocks hold Fields, each with a class, an
// optional type and a set of attributes:
//
//	Registry
//	├── Block TTLIN (6 instances, base 3)
//	│   ├── Field TERM   param enum 2
//	│   └── Field VAL    bit_out
//	└── Block COUNTER (4 instances, base 5)
//	    ├── Field ENABLE bit_mux
//	    ├── Field START  param
//	    └── Field OUT    pos_out
//
// Instance n of a multi-instance block is addressed as BLOCKn counting
// from 1, so TTLIN3.VAL is the VAL field of the third TTLIN.
//
// # Classes
//
// A class decides where a field's value lives and how its changes are
// tracked:
//
//	param    value written by clients, cached and written to hardware
//	read     value read from hardware on demand
//	write    value written to hardware, never read back
//	time     48-bit time over two registers, in per-instance units
//	bit_mux  bit bus selector with an input delay
//	pos_mux  position bus selector
//	bit_out  one bit of the bit bus
//	pos_out  one value of the position bus
//	table    list of 32-bit words
//
// # Lifecycle
//
// The registry is built single-threaded with CreateBlock, CreateField,
// ParseRegister and ParseAttribute. Open validates the result, writes
// initial values to hardware and fixes the topology. Configuration errors
// are recorded as they happen and make Open fail.
//
// # Change sets
//
// Every value, attribute and metadata key carries a stamp from the
// registry clock. A client owns a changeindex.Context and asks
// GenerateChangeSets for everything stamped since its previous request in
// the categories it names. CheckChangeSet answers the same question
// without producing output.
package model
