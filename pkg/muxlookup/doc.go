// Package muxlookup maps bus slots to the names of the outputs that drive
// them, and back.
//
// A Table has a fixed number of slots. Each slot is claimed by at most one
// name and each name claims at most one slot. Tables also carry a few fixed
// constants (such as ZERO and ONE on the bit bus) whose values lie beyond
// the last slot; these can be selected by name but never inserted.
//
// Tables are populated incrementally while the registry is configured and
// never shrink.
package muxlookup
