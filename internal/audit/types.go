package audit

import (
	"encoding/json"
	"time"
)

// Action describes what was done to an entity.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionRestored Action = "restored"
)

// Entry is a single audit trail record: one administrative mutation of
// one entity, with the entity state before and after it.
type Entry struct {
	ID         int64           `json:"id"`
	OccurredAt time.Time       `json:"occurred_at"`
	ActorID    *string         `json:"actor_id"`
	Entity     string          `json:"entity"`
	EntityID   string          `json:"entity_id"`
	Action     Action          `json:"action"`
	Before     json.RawMessage `json:"before"`
	After      json.RawMessage `json:"after"`
	IPAddress  *string         `json:"ip_address"`
	UserAgent  *string         `json:"user_agent"`
}
