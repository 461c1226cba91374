package tablestate

import (
	"context"
	"strings"

	"github.com/sboagy/tablestate/pkg/activity"
)

// WithActivityHooks attaches hooks notified after every flush and on Clear.
// Nil hooks are dropped. Hook failures never change cache state; they are
// reported through the flush logger.
func WithActivityHooks(hooks activity.Hooks) Option {
	normalized := activity.CloneHooks(hooks)
	return func(cfg *cacheConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on emitted events.
func WithActivityChannel(channel string) Option {
	return func(cfg *cacheConfig) {
		cfg.activityChannel = strings.TrimSpace(channel)
	}
}

// WithActor records who drives this cache (typically the signed-in session)
// on emitted events.
func WithActor(actorID string) Option {
	return func(cfg *cacheConfig) {
		cfg.actorID = strings.TrimSpace(actorID)
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (c *Cache) ActivityHooks() activity.Hooks {
	if c == nil {
		return nil
	}
	return activity.CloneHooks(c.cfg.activityHooks)
}

func (c *Cache) emitFlush(ctx context.Context, key Key, status int, fields []string, err error, ok bool) error {
	if !c.emitter.Enabled() {
		return nil
	}
	input := activity.FlushEventInput{
		ActorID:    c.cfg.actorID,
		UserID:     key.UserID,
		Purpose:    string(key.Purpose),
		ResourceID: key.ResourceID,
		ObjectID:   key.Identifier(),
		Status:     status,
		Fields:     fields,
		Err:        err,
	}
	if ok {
		return c.emitter.Emit(ctx, activity.BuildFlushedEvent(input))
	}
	return c.emitter.Emit(ctx, activity.BuildFlushFailedEvent(input))
}
