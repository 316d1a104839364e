// Package changeindex provides the logical clock and change categories used
// to answer "what changed since I last looked".
//
// # Stamps
//
// Every mutable entity in the registry records the clock value at which it
// last changed. The clock starts at 1 and every entity starts with stamp 1,
// so a client whose report index is 0 sees everything on its first poll.
//
// # Contexts
//
// Each connection owns a Context holding one report stamp per Category.
// Refreshing a context returns the previous stamps (the report indexes to
// compare against) and stores freshly advanced clock values in their place.
package changeindex
