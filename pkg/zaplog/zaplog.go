// Package zaplog adapts go.uber.org/zap to fieldstore.AccessLogger.
package zaplog

import (
	fieldstore "github.com/goliatone/go-fieldstore"
	"go.uber.org/zap"
)

// Logger writes access events to a zap logger. Successful and skipped
// accesses are logged at debug level, failures at error level.
type Logger struct {
	log *zap.Logger
}

// New wraps log. A nil logger discards every event.
func New(log *zap.Logger) *Logger {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger{log: log.Named("fieldstore")}
}

// LogAccess implements fieldstore.AccessLogger.
func (l *Logger) LogAccess(event fieldstore.AccessEvent) {
	fields := []zap.Field{
		zap.String("op", event.Op),
		zap.String("location", event.Location),
		zap.Duration("duration", event.Duration),
	}
	if event.Key != "" {
		fields = append(fields, zap.String("key", event.Key))
	}
	if event.Field != "" {
		fields = append(fields, zap.String("field", event.Field))
	}
	if event.Skipped {
		fields = append(fields, zap.Bool("skipped", true))
	}

	if event.Err != nil {
		l.log.Error("field access failed", append(fields, zap.Error(event.Err))...)
		return
	}
	l.log.Debug("field access", fields...)
}
