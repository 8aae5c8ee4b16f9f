package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents a board column. Statuses form a flat set: any
// status may be set from any other, there is no transition graph.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "Todo"
	TaskStatusInProgress TaskStatus = "InProgress"
	TaskStatusDone       TaskStatus = "Done"
)

// TaskStatuses lists all valid statuses in board column order.
var TaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}

// Valid reports whether the status is one of the known board columns.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// Active reports whether a task in this status counts toward a user's
// load for smart assignment.
func (s TaskStatus) Active() bool {
	return s == TaskStatusTodo || s == TaskStatusInProgress
}

// TaskPriority represents the urgency of a task
type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "Low"
	TaskPriorityMedium   TaskPriority = "Medium"
	TaskPriorityHigh     TaskPriority = "High"
	TaskPriorityCritical TaskPriority = "Critical"
)

// Valid reports whether the priority is one of the known levels.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh, TaskPriorityCritical:
		return true
	}
	return false
}

// Limits on user-supplied task fields.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

// Task is the unit of work on the shared board.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	AssignedTo  *uuid.UUID   `json:"assignedTo,omitempty"`
	DueDate     *time.Time   `json:"dueDate,omitempty"`
	Tags        []string     `json:"tags,omitempty"`

	CreatedBy uuid.UUID `json:"createdBy"`

	// Optimistic concurrency token. Starts at 1, incremented exactly
	// once per accepted mutation.
	Version int `json:"version"`

	LastModifiedBy uuid.UUID `json:"lastModifiedBy"`
	LastModifiedAt time.Time `json:"lastModifiedAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the task. Mutation functions operate on
// clones so a failed mutation never leaks partial changes.
func (t *Task) Clone() *Task {
	c := *t
	if t.AssignedTo != nil {
		id := *t.AssignedTo
		c.AssignedTo = &id
	}
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.Tags != nil {
		c.Tags = make([]string, len(t.Tags))
		copy(c.Tags, t.Tags)
	}
	return &c
}

// Active reports whether the task counts toward its assignee's load.
func (t *Task) Active() bool {
	return t.Status.Active()
}

// Validate checks all field invariants. Title uniqueness is enforced at
// the repository, not here.
func (t *Task) Validate() error {
	if t.Title == "" {
		return &ValidationError{Field: "title", Message: "title is required"}
	}
	if len(t.Title) > MaxTitleLength {
		return &ValidationError{Field: "title", Message: "title must be at most 100 characters"}
	}
	if TaskStatus(t.Title).Valid() {
		return &ValidationError{Field: "title", Message: "title cannot match a column name"}
	}
	if len(t.Description) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Message: "description must be at most 500 characters"}
	}
	if !t.Status.Valid() {
		return &ValidationError{Field: "status", Message: "invalid status"}
	}
	if !t.Priority.Valid() {
		return &ValidationError{Field: "priority", Message: "invalid priority"}
	}
	return nil
}
