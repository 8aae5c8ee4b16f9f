// Package events defines the transient wire messages fanned out to
// connected board clients, and the publisher interface the mutation
// path hands accepted changes to.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/S-Corkum/taskboard/internal/models"
)

// Type defines the type of broadcast event
type Type string

// Event types
const (
	EventTaskCreated      Type = "task.created"
	EventTaskUpdated      Type = "task.updated"
	EventTaskDeleted      Type = "task.deleted"
	EventTaskMoved        Type = "task.moved"
	EventConflictDetected Type = "conflict.detected"
)

// Event is a room-broadcast message. Events are best-effort and never
// persisted; a client that misses one reconciles with a full re-fetch.
type Event struct {
	Type      Type        `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// TaskDeletedPayload carries the id of a removed task
type TaskDeletedPayload struct {
	TaskID uuid.UUID `json:"taskId"`
}

// TaskMovedPayload carries a status change with both endpoints
type TaskMovedPayload struct {
	TaskID    uuid.UUID         `json:"taskId"`
	Task      *models.Task      `json:"task"`
	OldStatus models.TaskStatus `json:"oldStatus"`
	NewStatus models.TaskStatus `json:"newStatus"`
}

// NewTaskCreated builds a task.created event
func NewTaskCreated(task *models.Task) Event {
	return Event{Type: EventTaskCreated, Payload: task, Timestamp: time.Now().UTC()}
}

// NewTaskUpdated builds a task.updated event
func NewTaskUpdated(task *models.Task) Event {
	return Event{Type: EventTaskUpdated, Payload: task, Timestamp: time.Now().UTC()}
}

// NewTaskDeleted builds a task.deleted event
func NewTaskDeleted(taskID uuid.UUID) Event {
	return Event{Type: EventTaskDeleted, Payload: TaskDeletedPayload{TaskID: taskID}, Timestamp: time.Now().UTC()}
}

// NewTaskMoved builds a task.moved event
func NewTaskMoved(task *models.Task, oldStatus, newStatus models.TaskStatus) Event {
	return Event{
		Type: EventTaskMoved,
		Payload: TaskMovedPayload{
			TaskID:    task.ID,
			Task:      task,
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewConflictDetected builds a conflict.detected event
func NewConflictDetected(record *models.ConflictRecord) Event {
	return Event{Type: EventConflictDetected, Payload: record, Timestamp: time.Now().UTC()}
}

// Publisher delivers events to every client in the board room except
// the excluded connection. Delivery is fire-and-forget: implementations
// must never block the caller and never return delivery failures.
type Publisher interface {
	Publish(event Event, excludeConnID string)
}

// NoopPublisher discards all events. Used in tests.
type NoopPublisher struct{}

func (NoopPublisher) Publish(event Event, excludeConnID string) {}

type originKey struct{}

// WithOrigin tags a request context with the websocket connection id of
// the client that initiated it. The originating connection is excluded
// from receiving its own mutation events.
func WithOrigin(ctx context.Context, connID string) context.Context {
	if connID == "" {
		return ctx
	}
	return context.WithValue(ctx, originKey{}, connID)
}

// OriginFromContext returns the originating connection id, if any.
func OriginFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(originKey{}).(string); ok {
		return v
	}
	return ""
}
