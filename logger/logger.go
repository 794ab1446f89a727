// Package logger provides the structured, leveled logging interface used
// across lockdir, together with a standard-library-backed implementation and
// a no-op implementation suitable as a library default.
package logger

// Logger defines the structured logging interface used throughout lockdir.
type Logger interface {
	// Debugw logs a debug-level message with optional structured context.
	Debugw(msg string, keysAndValues ...any)

	// Infow logs an info-level message with optional structured context.
	Infow(msg string, keysAndValues ...any)

	// Warnw logs a warning-level message with optional structured context.
	Warnw(msg string, keysAndValues ...any)

	// Errorw logs an error-level message with optional structured context.
	Errorw(msg string, keysAndValues ...any)

	// Fatalw logs a fatal-level message with optional structured context
	// and then terminates the application.
	Fatalw(msg string, keysAndValues ...any)

	// Context enrichment methods return a new logger instance with additional persistent context.

	// With adds arbitrary key-value pairs to the logger's context.
	With(keysAndValues ...any) Logger

	// WithPath adds a lock path to the logger's context, used to
	// distinguish log output of concurrently held locks.
	WithPath(path string) Logger

	// WithComponent adds a component label (e.g., "acquire", "renewer")
	// to categorize log output.
	WithComponent(name string) Logger
}
