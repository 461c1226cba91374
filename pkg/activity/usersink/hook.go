// Package usersink forwards table state activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
	"github.com/sboagy/tablestate/pkg/activity"
)

// UserResolver maps the numeric user ids used by table state keys onto the
// UUIDs go-users expects.
type UserResolver func(ctx context.Context, userID string) (uuid.UUID, error)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink types.ActivitySink
	// ResolveUser is optional. Without it user ids that are not UUIDs are
	// recorded as uuid.Nil and kept verbatim under Data["user_id"].
	ResolveUser UserResolver
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if !normalized.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	userID, err := h.resolveUser(ctx, normalized.UserID)
	if err != nil {
		return fmt.Errorf("usersink: resolve user %q: %w", normalized.UserID, err)
	}

	record := types.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID),
		UserID:     userID,
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       cloneMap(normalized.Metadata),
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	if normalized.UserID != "" && userID == uuid.Nil {
		if record.Data == nil {
			record.Data = map[string]any{}
		}
		record.Data["user_id"] = normalized.UserID
	}

	return h.Sink.Log(ctx, record)
}

func (h Hook) resolveUser(ctx context.Context, userID string) (uuid.UUID, error) {
	if userID == "" {
		return uuid.Nil, nil
	}
	if h.ResolveUser != nil {
		return h.ResolveUser(ctx, userID)
	}
	return parseUUID(userID), nil
}

func parseUUID(input string) uuid.UUID {
	value := strings.TrimSpace(input)
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return id
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
