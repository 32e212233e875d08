package fieldstore

import "time"

// Access operations reported to an AccessLogger.
const (
	OpRead     = "read"
	OpWrite    = "write"
	OpRecord   = "record"
	OpBatch    = "batch"
	OpActivity = "activity"
)

// AccessEvent describes one field access for logging.
type AccessEvent struct {
	Op       string
	Location string
	Key      string
	Field    string
	Duration time.Duration
	// Skipped is set when the access was ignored because the entity had no
	// location or identity.
	Skipped bool
	Err     error
}

// AccessLogger records access events.
type AccessLogger interface {
	LogAccess(AccessEvent)
}

// AccessLoggerFunc adapts a function to AccessLogger.
type AccessLoggerFunc func(AccessEvent)

// LogAccess implements AccessLogger.
func (f AccessLoggerFunc) LogAccess(event AccessEvent) {
	if f != nil {
		f(event)
	}
}

type noopAccessLogger struct{}

func (noopAccessLogger) LogAccess(AccessEvent) {}

// WithAccessLogger attaches an access logger to the Accessor.
func WithAccessLogger(logger AccessLogger) Option {
	return func(cfg *accessorConfig) {
		if logger == nil {
			cfg.logger = noopAccessLogger{}
			return
		}
		cfg.logger = logger
	}
}
