package types

// Logger defines methods for structured logging.
//
// Compatible with zap.SugaredLogger and other structured loggers that take
// alternating key-value pairs. The scanner logs probe failures and budget
// events through this interface; the tracker logs CAS outcomes at debug
// level only, since rejections are expected under at-least-once delivery.
type Logger interface {
	// Debug logs a message at DebugLevel with alternating key-value pairs.
	// High-frequency events (per-probe, per-CAS) log at this level.
	Debug(msg string, keysAndValues ...any)

	// Info logs a message at InfoLevel with alternating key-value pairs.
	// Scan start/finish summaries log at this level.
	Info(msg string, keysAndValues ...any)

	// Warn logs a message at WarnLevel with alternating key-value pairs.
	// Recoverable conditions (probe retries, history write failures) log here.
	Warn(msg string, keysAndValues ...any)

	// Error logs a message at ErrorLevel with alternating key-value pairs.
	// Reserved for abandoned scans and store failures.
	Error(msg string, keysAndValues ...any)

	// Fatal logs a message at FatalLevel and calls os.Exit(1), even if
	// logging at FatalLevel is disabled. No component in this library calls
	// it; it exists so injected production loggers satisfy one interface.
	Fatal(msg string, keysAndValues ...any)
}
