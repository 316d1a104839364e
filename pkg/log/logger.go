package log

// Logger receives registry events. Pass NoopLogger to disable event logging.
type Logger interface {
	// Log records an event. Implementations must be thread-safe and must
	// not call back into the registry.
	Log(event Event)
}

// NoopLogger discards all events. The zero value is ready to use.
type NoopLogger struct{}

// Log discards the event.
func (NoopLogger) Log(Event) {}

// Compile-time interface satisfaction check.
var _ Logger = NoopLogger{}
