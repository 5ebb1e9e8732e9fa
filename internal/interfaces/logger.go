package interfaces

// Logger is the small structured-logging interface every gateway
// component takes (resolver, ladder strategies, relay, server). It is
// deliberately framework-agnostic so implementations can be swapped
// without touching call sites.
type Logger interface {
	// Debug logs a debug-level message.
	Debug(msg string, fields ...Field)

	// Info logs an informational message.
	Info(msg string, fields ...Field)

	// Warn logs a warning.
	Warn(msg string, fields ...Field)

	// Error logs an error.
	Error(msg string, fields ...Field)

	// With returns a child logger with persistent fields; components use
	// it to tag their output (component=ladder, strategy=proxy, ...).
	With(fields ...Field) Logger
}

// Field is a key/value pair attached to a log entry.
type Field struct {
	Key   string
	Value interface{}
}
