package tablestate

import "time"

// FlushLogEvent describes one gateway write attempt.
type FlushLogEvent struct {
	Key      Key
	Status   int
	Fields   []string
	Duration time.Duration
	Err      error
	// HookErr carries a failure from activity hooks notified after the write.
	HookErr error
}

// Succeeded reports whether the write was confirmed.
func (e FlushLogEvent) Succeeded() bool {
	return e.Err == nil && IsSuccess(e.Status)
}

// FlushLogger records flush attempts.
type FlushLogger interface {
	LogFlush(FlushLogEvent)
}

// FlushLoggerFunc adapts a function to FlushLogger.
type FlushLoggerFunc func(FlushLogEvent)

// LogFlush implements FlushLogger.
func (f FlushLoggerFunc) LogFlush(event FlushLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopFlushLogger struct{}

func (noopFlushLogger) LogFlush(FlushLogEvent) {}

// WithFlushLogger attaches a flush logger to the cache.
func WithFlushLogger(logger FlushLogger) Option {
	return func(cfg *cacheConfig) {
		if logger == nil {
			cfg.logger = noopFlushLogger{}
			return
		}
		cfg.logger = logger
	}
}

func (c *Cache) flushLogger() FlushLogger {
	if c.cfg.logger != nil {
		return c.cfg.logger
	}
	return noopFlushLogger{}
}
