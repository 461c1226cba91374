package activity

import (
	"strconv"
	"strings"
	"time"
)

const (
	VerbFlushed     = "tablestate.flushed"
	VerbFlushFailed = "tablestate.flush_failed"
	VerbCleared     = "tablestate.cleared"

	ObjectTypeTableState = "table_state"
	ObjectTypeCache      = "table_state_cache"
)

// FlushEventInput describes one gateway write for activity consumers.
type FlushEventInput struct {
	ActorID    string
	UserID     int64
	Purpose    string
	ResourceID int64
	ObjectID   string
	Status     int
	Fields     []string
	Err        error
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildFlushedEvent constructs the event emitted after a confirmed write.
func BuildFlushedEvent(input FlushEventInput) Event {
	return buildFlushEvent(VerbFlushed, input)
}

// BuildFlushFailedEvent constructs the event emitted after a rejected or
// failed write.
func BuildFlushFailedEvent(input FlushEventInput) Event {
	return buildFlushEvent(VerbFlushFailed, input)
}

// BuildClearedEvent constructs the event emitted when the cache drops all
// entries.
func BuildClearedEvent(actorID string, entries, dirty int) Event {
	return Event{
		Verb:       VerbCleared,
		ActorID:    strings.TrimSpace(actorID),
		ObjectType: ObjectTypeCache,
		ObjectID:   ObjectTypeCache,
		Metadata: map[string]any{
			"entries":       entries,
			"dirty_entries": dirty,
		},
	}
}

func buildFlushEvent(verb string, input FlushEventInput) Event {
	metadata := cloneMap(input.Metadata)
	metadata = ensureMetadata(metadata)
	metadata["status"] = input.Status
	if input.Purpose != "" {
		metadata["purpose"] = input.Purpose
	}
	if input.ResourceID > 0 {
		metadata["resource_id"] = input.ResourceID
	}
	if len(input.Fields) > 0 {
		metadata["fields"] = append([]string{}, input.Fields...)
	}
	if input.Err != nil {
		metadata["error"] = input.Err.Error()
	}

	userID := ""
	if input.UserID > 0 {
		userID = strconv.FormatInt(input.UserID, 10)
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = ObjectTypeTableState
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     userID,
		ObjectType: ObjectTypeTableState,
		ObjectID:   objectID,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
