// Package zaplog reports cache flushes through a zap logger.
package zaplog

import (
	"go.uber.org/zap"

	"github.com/sboagy/tablestate"
)

// Logger implements tablestate.FlushLogger.
//
// Confirmed writes log at Info, rejected writes (non-2xx) at Warn and
// transport errors at Error. Activity hook failures are logged at Warn.
type Logger struct {
	logger *zap.Logger
}

var _ tablestate.FlushLogger = (*Logger)(nil)

// New wraps logger. A nil logger discards everything.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger.Named("tablestate")}
}

// LogFlush implements tablestate.FlushLogger.
func (l *Logger) LogFlush(event tablestate.FlushLogEvent) {
	if event.Key == (tablestate.Key{}) {
		if event.HookErr != nil {
			l.logger.Warn("activity hook failed", zap.Error(event.HookErr))
		}
		return
	}

	fields := []zap.Field{
		zap.String("key", event.Key.Identifier()),
		zap.Int("status", event.Status),
		zap.Strings("fields", event.Fields),
		zap.Duration("duration", event.Duration),
	}
	switch {
	case event.Err != nil:
		l.logger.Error("table state flush failed", append(fields, zap.Error(event.Err))...)
	case event.Succeeded():
		l.logger.Info("table state flushed", fields...)
	default:
		l.logger.Warn("table state flush rejected", fields...)
	}
	if event.HookErr != nil {
		l.logger.Warn("activity hook failed",
			zap.String("key", event.Key.Identifier()),
			zap.Error(event.HookErr),
		)
	}
}
