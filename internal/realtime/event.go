package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// EntityType identifies which kind of record a ChangeEvent carries.
type EntityType string

const (
	EntityWorkspace EntityType = "workspace"
	EntityBoard     EntityType = "board"
	EntityColumn    EntityType = "column"
	EntityCard      EntityType = "card"
	EntityLabel     EntityType = "label"
	EntitySubtask   EntityType = "subtask"
	EntityMember    EntityType = "member"
)

// Operation is the mutation kind recorded by a ChangeEvent.
type Operation string

const (
	OpInsert Operation = "insert"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Record is a JSON-shaped snapshot of one entity row. Keeping it generic
// lets the distribution and reconciliation layers treat all entity types
// uniformly; typed accessors below pull out the fields the engine needs.
type Record map[string]any

// ToRecord converts a domain struct into a Record via its JSON encoding.
func ToRecord(v any) (Record, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("realtime.ToRecord: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("realtime.ToRecord: %w", err)
	}

	return rec, nil
}

func (r Record) uuidField(key string) (uuid.UUID, bool) {
	s, ok := r[key].(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

func (r Record) ID() (uuid.UUID, bool)          { return r.uuidField("id") }
func (r Record) ColumnID() (uuid.UUID, bool)    { return r.uuidField("column_id") }
func (r Record) BoardID() (uuid.UUID, bool)     { return r.uuidField("board_id") }
func (r Record) CardID() (uuid.UUID, bool)      { return r.uuidField("card_id") }
func (r Record) WorkspaceID() (uuid.UUID, bool) { return r.uuidField("workspace_id") }

// Key returns the identity the client keys local state by. Members have no
// row id of their own, so workspace+user forms the key.
func (r Record) Key() (string, bool) {
	if id, ok := r.ID(); ok {
		return id.String(), true
	}
	wid, ok1 := r.WorkspaceID()
	uid, ok2 := r.uuidField("user_id")
	if ok1 && ok2 {
		return wid.String() + "/" + uid.String(), true
	}
	return "", false
}

// UpdatedAt parses the record's updated_at field, the logical timestamp used
// for conflict resolution.
func (r Record) UpdatedAt() (time.Time, bool) {
	s, ok := r["updated_at"].(string)
	if !ok {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ChangeEvent is the normalized unit of propagation: one per successful
// mutation, immutable once built, never persisted. Redelivery after a
// disconnect is a full-state refetch, not event replay.
type ChangeEvent struct {
	Entity      EntityType `json:"entity"`
	Op          Operation  `json:"op"`
	New         Record     `json:"new,omitempty"`
	Old         Record     `json:"old,omitempty"`
	BoardID     *uuid.UUID `json:"board_id,omitempty"`
	WorkspaceID *uuid.UUID `json:"workspace_id,omitempty"`
	OccurredAt  time.Time  `json:"occurred_at"`
}

// Current returns the record that best describes the entity's present state:
// the new record when available, the old one for deletes.
func (e *ChangeEvent) Current() Record {
	if e.New != nil {
		return e.New
	}
	return e.Old
}

// Envelope is the wire frame shared by the WebSocket path and the Redis
// cross-node channel. Origin lets a hub skip events it published itself.
type Envelope struct {
	Origin uuid.UUID    `json:"origin"`
	Scope  string       `json:"scope"`
	Event  *ChangeEvent `json:"event"`
}

// WorkspaceScope returns the scope id (and Redis channel name) for
// workspace-wide delivery.
func WorkspaceScope(workspaceID uuid.UUID) string {
	return "workspace:" + workspaceID.String()
}

// BoardScope returns the narrower board-level scope id.
func BoardScope(boardID uuid.UUID) string {
	return "board:" + boardID.String()
}

// ParseScope splits a scope id into its kind ("workspace" or "board") and id.
func ParseScope(scope string) (kind string, id uuid.UUID, err error) {
	kind, rest, ok := strings.Cut(scope, ":")
	if !ok || (kind != "workspace" && kind != "board") {
		return "", uuid.Nil, fmt.Errorf("realtime.ParseScope: malformed scope %q", scope)
	}
	id, err = uuid.Parse(rest)
	if err != nil {
		return "", uuid.Nil, fmt.Errorf("realtime.ParseScope: %w", err)
	}
	return kind, id, nil
}
