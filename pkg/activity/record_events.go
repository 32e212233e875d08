package activity

import (
	"strings"
	"time"
)

const (
	VerbRecordCreated      = "record.created"
	VerbRecordFieldUpdated = "record.field.updated"

	// ObjectTypeRecord is the object type of every record event.
	ObjectTypeRecord = "record"
)

// FieldChange describes one persisted field write.
type FieldChange struct {
	Actor      Actor
	Channel    string
	Location   string
	RecordKey  string
	Field      string
	OldValue   any
	NewValue   any
	Created    bool
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildFieldChangeEvent maps a field write onto an activity event. The
// first write of a record is reported as record.created.
func BuildFieldChangeEvent(change FieldChange) Event {
	verb := VerbRecordFieldUpdated
	if change.Created {
		verb = VerbRecordCreated
	}

	metadata := cloneMetadata(change.Metadata)
	if metadata == nil {
		metadata = map[string]any{}
	}
	if change.Location != "" {
		metadata["location"] = change.Location
	}
	if change.Field != "" {
		metadata["field"] = change.Field
	}
	if change.OldValue != nil {
		metadata["old_value"] = change.OldValue
	}
	metadata["new_value"] = change.NewValue

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(change.Actor.ActorID),
		UserID:     strings.TrimSpace(change.Actor.UserID),
		TenantID:   strings.TrimSpace(change.Actor.TenantID),
		ObjectType: ObjectTypeRecord,
		ObjectID:   strings.TrimSpace(change.RecordKey),
		Channel:    strings.TrimSpace(change.Channel),
		Metadata:   metadata,
		OccurredAt: change.OccurredAt,
	}
}
