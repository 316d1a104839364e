// Package persistence keeps the configuration of a registry across
// restarts.
//
// A Saver polls the registry with its own change-set context and, when
// any CONFIG, ATTR, TABLE or METADATA entity changed, captures a complete
// snapshot by walking every entity from a fresh context. The snapshot is a
// list of "NAME=value" lines plus the base64 rows of each table, written
// as JSON by a Store. Restore replays a snapshot through the same
// operations a client would use.
package persistence
