package activity

import (
	"context"
	"strings"
	"time"
)

// DefaultChannel is applied to events emitted without one.
const DefaultChannel = "tablestate"

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithChannel sets the channel stamped on events that carry none. Blank
// values keep DefaultChannel.
func WithChannel(channel string) EmitterOption {
	return func(e *Emitter) {
		if channel = strings.TrimSpace(channel); channel != "" {
			e.channel = channel
		}
	}
}

// WithClock sets the time source for events emitted without OccurredAt.
func WithClock(now func() time.Time) EmitterOption {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}

// Emitter stamps defaults onto events and forwards them to its hooks. The
// zero value and a nil *Emitter are disabled.
type Emitter struct {
	hooks   Hooks
	channel string
	now     func() time.Time
}

// NewEmitter builds an emitter over the non-nil entries of hooks.
func NewEmitter(hooks Hooks, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		hooks:   CloneHooks(hooks),
		channel: DefaultChannel,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Enabled reports whether Emit would reach any hook.
func (e *Emitter) Enabled() bool {
	return e != nil && len(e.hooks) > 0
}

// Emit forwards event to every hook.
func (e *Emitter) Emit(ctx context.Context, event Event) error {
	if !e.Enabled() {
		return nil
	}
	if strings.TrimSpace(event.Channel) == "" {
		event.Channel = e.channel
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = e.now()
	}
	return e.hooks.Notify(ctx, event)
}

// CloneHooks copies hooks dropping nil entries. It returns nil when nothing
// is left.
func CloneHooks(hooks Hooks) Hooks {
	var out Hooks
	for _, hook := range hooks {
		if hook != nil {
			out = append(out, hook)
		}
	}
	return out
}
