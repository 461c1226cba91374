package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event describes something that happened to a cached table state.
// IDs are strings so call sites are not coupled to a numeric or UUID scheme.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	ObjectType string
	ObjectID   string
	Channel    string
	Metadata   map[string]any
	OccurredAt time.Time
}

// Complete reports whether the event names a verb and an object.
func (e Event) Complete() bool {
	return e.Verb != "" && e.ObjectType != "" && e.ObjectID != ""
}

// ActivityHook receives normalized activity events.
type ActivityHook interface {
	Notify(ctx context.Context, event Event) error
}

// HookFunc allows plain functions to satisfy ActivityHook.
type HookFunc func(ctx context.Context, event Event) error

// Notify dispatches to the underlying function.
func (fn HookFunc) Notify(ctx context.Context, event Event) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, event)
}

// HookError attributes a failure to the hook at Index.
type HookError struct {
	Index int
	Verb  string
	Err   error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("activity: hook %d on %s: %v", e.Index, e.Verb, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// Hooks fans out events to zero or more hooks.
type Hooks []ActivityHook

// Enabled reports whether there are any hooks to notify.
func (h Hooks) Enabled() bool {
	return len(h) > 0
}

// Notify hands the normalized event to every hook, even after one fails.
// Failures come back joined, each as a *HookError. Incomplete events are
// dropped without error.
func (h Hooks) Notify(ctx context.Context, event Event) error {
	if len(h) == 0 {
		return nil
	}
	normalized := NormalizeEvent(event)
	if !normalized.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var errs []error
	for i, hook := range h {
		if hook == nil {
			continue
		}
		if err := hook.Notify(ctx, normalized); err != nil {
			errs = append(errs, &HookError{Index: i, Verb: normalized.Verb, Err: err})
		}
	}
	return errors.Join(errs...)
}

// NormalizeEvent returns a trimmed copy of event with its own metadata map.
// A zero OccurredAt becomes the current time.
func NormalizeEvent(event Event) Event {
	out := Event{
		Verb:       strings.TrimSpace(event.Verb),
		ActorID:    strings.TrimSpace(event.ActorID),
		UserID:     strings.TrimSpace(event.UserID),
		ObjectType: strings.TrimSpace(event.ObjectType),
		ObjectID:   strings.TrimSpace(event.ObjectID),
		Channel:    strings.TrimSpace(event.Channel),
		Metadata:   cloneMap(event.Metadata),
		OccurredAt: event.OccurredAt,
	}
	if out.OccurredAt.IsZero() {
		out.OccurredAt = time.Now()
	}
	return out
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
