package models

import (
	"time"

	"github.com/google/uuid"
)

// ActionType classifies an entry in the activity log
type ActionType string

const (
	ActionCreate           ActionType = "CREATE"
	ActionUpdate           ActionType = "UPDATE"
	ActionDelete           ActionType = "DELETE"
	ActionMove             ActionType = "MOVE"
	ActionSmartAssign      ActionType = "SMART_ASSIGN"
	ActionConflictResolved ActionType = "CONFLICT_RESOLVED"
)

// EntityType identifies what kind of entity an action touched
type EntityType string

const (
	EntityTask EntityType = "TASK"
	EntityUser EntityType = "USER"
)

// Action is one append-only activity log entry for an accepted mutation.
type Action struct {
	ID         uuid.UUID              `json:"id"`
	UserID     uuid.UUID              `json:"userId"`
	Action     ActionType             `json:"action"`
	EntityType EntityType             `json:"entityType"`
	EntityID   uuid.UUID              `json:"entityId"`
	Details    map[string]interface{} `json:"details,omitempty"`
	CreatedAt  time.Time              `json:"createdAt"`
}
