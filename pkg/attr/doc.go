// Package attr implements field attributes: named per-instance properties
// with pluggable behaviour and independent change tracking.
//
// # Methods
//
// Behaviour is supplied by a Methods table. Format returns a single value;
// GetMany returns multiple rows; Put accepts a written value; Enumeration
// lists the values Put accepts. Every hook is optional but an attribute
// with neither Format nor GetMany cannot be read.
//
// # Change Tracking
//
// Each instance carries the stamp of its last change. Put stamps with a
// fresh clock value. Attributes whose value can change without a Put are
// marked Polled: their formatted value is cached and compared on every
// read, and a difference is stamped as one past the report index of the
// poll that found it. The poll that discovers a change therefore reports it
// exactly once, even though the global clock may already be further ahead.
//
// All mutable state is guarded by one mutex per attribute. Hooks are never
// called with that mutex held.
package attr
