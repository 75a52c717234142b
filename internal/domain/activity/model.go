package activity

import "time"

// EntityType names the kind of entity an entry refers to.
type EntityType string

const (
	EntityTask      EntityType = "task"
	EntityTimeEntry EntityType = "time_entry"
	EntityClient    EntityType = "client"
	EntityProject   EntityType = "project"
)

// Action is the kind of change recorded
type Action string

const (
	ActionCreated           Action = "created"
	ActionUpdated           Action = "updated"
	ActionStatusChanged     Action = "status_changed"
	ActionUnblocked         Action = "unblocked"
	ActionReblocked         Action = "reblocked"
	ActionDependencyAdded   Action = "dependency_added"
	ActionDependencyRemoved Action = "dependency_removed"
	ActionDeleted           Action = "deleted"
	ActionTimerStarted      Action = "timer_started"
	ActionTimerStopped      Action = "timer_stopped"
)

// Entry is one row of the append-only audit log
type Entry struct {
	ID         int64      `json:"id"`
	EntityType EntityType `json:"entity_type"`
	EntityID   string     `json:"entity_id"`
	UserID     *string    `json:"user_id,omitempty"`
	Action     Action     `json:"action"`
	Field      *string    `json:"field,omitempty"`
	OldValue   *string    `json:"old_value,omitempty"`
	NewValue   *string    `json:"new_value,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Change builds an entry recording a single field change by userID.
func Change(entity EntityType, id, userID string, action Action, field, oldValue, newValue string) *Entry {
	e := &Entry{EntityType: entity, EntityID: id, Action: action}
	if userID != "" {
		e.UserID = &userID
	}
	if field != "" {
		e.Field = &field
		e.OldValue = &oldValue
		e.NewValue = &newValue
	}
	return e
}
