// Package log provides structured event logging for the registry.
//
// This package defines the Logger interface and the Event types that record
// what happened to the registry: values and attributes written by clients,
// change reports handed out to connections, configuration errors found
// while the registry was being built, and lifecycle transitions. It is
// separate from operational logging (slog); events form a complete
// machine-readable trace that can be replayed or audited later.
//
// # Basic Usage
//
//	// Development: events on the console via slog
//	cfg.EventLogger = log.NewSlogAdapter(slog.Default())
//
//	// Production: binary event file
//	cfg.EventLogger, _ = log.NewFileLogger("/var/log/panda/registry.rlog")
//
//	// Both
//	cfg.EventLogger = log.NewMultiLogger(console, file)
//
// # File Format
//
// Event files are a sequence of CBOR-encoded events with integer keys and
// the .rlog extension. The panda-registry "log" subcommands read them.
package log
