// Package types implements the value codecs a field may select.
//
// A Type converts between the 32-bit register value stored by a field's
// class and the string presented to clients, and contributes its own
// attributes (a bounded integer's MAX, an enumeration's LABELS, a
// position's SCALE and OFFSET, ...).
//
// # Available Types
//
//	uint [max]   unsigned integer, optionally bounded
//	bit          0 or 1
//	action       write-only trigger taking an empty value
//	lut          32-bit lookup table written as 0x-prefixed hex
//	enum count   labels added with "index label" lines
//	position     signed value with per-instance scale, offset and units
//	time         clock ticks presented in per-instance units
//	bit_mux      bit bus selector
//	pos_mux      position bus selector
//
// The set is closed: New is the only constructor.
package types
