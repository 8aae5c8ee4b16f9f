package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskFields is a partial task: the field set a client submitted with a
// mutation, or the per-field winners chosen during conflict resolution.
// A nil pointer (or nil Tags slice) means the field was not submitted.
//
// AssignedTo uses uuid.Nil to mean "clear the assignment"; this keeps
// presence and null distinguishable on the wire.
type TaskFields struct {
	Title       *string       `json:"title,omitempty"`
	Description *string       `json:"description,omitempty"`
	Status      *TaskStatus   `json:"status,omitempty"`
	Priority    *TaskPriority `json:"priority,omitempty"`
	AssignedTo  *uuid.UUID    `json:"assignedTo,omitempty"`
	DueDate     *time.Time    `json:"dueDate,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
}

// Apply copies every present field onto the task. Absent fields keep
// the task's current value. This is the merge policy: the caller has
// already decided, per field, which side wins.
func (f *TaskFields) Apply(t *Task) {
	if f.Title != nil {
		t.Title = *f.Title
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Status != nil {
		t.Status = *f.Status
	}
	if f.Priority != nil {
		t.Priority = *f.Priority
	}
	if f.AssignedTo != nil {
		if *f.AssignedTo == uuid.Nil {
			t.AssignedTo = nil
		} else {
			id := *f.AssignedTo
			t.AssignedTo = &id
		}
	}
	if f.DueDate != nil {
		d := *f.DueDate
		t.DueDate = &d
	}
	if f.Tags != nil {
		t.Tags = make([]string, len(f.Tags))
		copy(t.Tags, f.Tags)
	}
}

// Overwrite replaces the task's mutable fields wholesale. Present
// fields are copied; absent optional fields (description, assignee,
// due date, tags) are cleared. Absent required fields (title, status,
// priority) keep the stored value so the result stays a valid task.
func (f *TaskFields) Overwrite(t *Task) {
	f.Apply(t)
	if f.Description == nil {
		t.Description = ""
	}
	if f.AssignedTo == nil {
		t.AssignedTo = nil
	}
	if f.DueDate == nil {
		t.DueDate = nil
	}
	if f.Tags == nil {
		t.Tags = nil
	}
}

// IsEmpty reports whether no field was submitted at all.
func (f *TaskFields) IsEmpty() bool {
	return f.Title == nil && f.Description == nil && f.Status == nil &&
		f.Priority == nil && f.AssignedTo == nil && f.DueDate == nil && f.Tags == nil
}

// ConflictRecord captures a detected version mismatch. It is ephemeral:
// never persisted, consumed exactly once by a resolution decision or
// discarded when the client abandons it.
type ConflictRecord struct {
	TaskID        uuid.UUID  `json:"taskId"`
	ServerVersion *Task      `json:"serverVersion"`
	ClientVersion TaskFields `json:"clientVersion"`
	DetectedAt    time.Time  `json:"detectedAt"`
}
