package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/S-Corkum/taskboard/internal/events"
	"github.com/S-Corkum/taskboard/internal/models"
	"github.com/S-Corkum/taskboard/internal/repository"
)

// CreateTaskInput carries the fields for a new task. Absent status and
// priority fall back to Todo/Medium.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
	Tags        []string
}

// UpdateTaskInput is a partial update with the client's version token.
// A nil Version skips conflict detection (the caller accepts whatever
// is stored).
type UpdateTaskInput struct {
	Fields  models.TaskFields
	Version *int
}

// MoveTaskInput moves a task to another column, optionally reassigning
type MoveTaskInput struct {
	Status     models.TaskStatus
	AssignedTo *uuid.UUID
}

// BoardStats are the aggregate counts for the board
type BoardStats struct {
	Total      int `json:"total"`
	Todo       int `json:"todo"`
	InProgress int `json:"inProgress"`
	Done       int `json:"done"`
	Unassigned int `json:"unassigned"`
}

// TaskService is the board-facing surface of the synchronization core.
// Every accepted mutation is versioned through the guard, then recorded
// and broadcast; conflicts come back as *ConflictError.
type TaskService interface {
	Create(ctx context.Context, actor uuid.UUID, in CreateTaskInput) (*models.Task, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	List(ctx context.Context) ([]*models.Task, error)
	ListByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error)
	Update(ctx context.Context, actor uuid.UUID, id uuid.UUID, in UpdateTaskInput) (*models.Task, error)
	Delete(ctx context.Context, actor uuid.UUID, id uuid.UUID) error
	Move(ctx context.Context, actor uuid.UUID, id uuid.UUID, in MoveTaskInput) (*models.Task, error)
	SmartAssign(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*models.Task, *models.User, error)
	ResolveConflict(ctx context.Context, actor uuid.UUID, id uuid.UUID, strategy ResolutionStrategy, chosen models.TaskFields) (*models.Task, error)
	Stats(ctx context.Context) (*BoardStats, error)
}

type taskService struct {
	BaseService

	tasks     repository.TaskRepository
	users     repository.UserRepository
	guard     *VersionGuard
	strategy  AssignmentStrategy
	publisher events.Publisher
	recorder  ActivityRecorder
	conflicts *conflictRegistry
}

// NewTaskService wires the synchronization core together
func NewTaskService(
	config ServiceConfig,
	tasks repository.TaskRepository,
	users repository.UserRepository,
	publisher events.Publisher,
	recorder ActivityRecorder,
) TaskService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if recorder == nil {
		recorder = NoopRecorder{}
	}
	return &taskService{
		BaseService: NewBaseService(config),
		tasks:       tasks,
		users:       users,
		guard:       NewVersionGuard(tasks),
		strategy:    LeastLoadedStrategy{},
		publisher:   publisher,
		recorder:    recorder,
		conflicts:   newConflictRegistry(),
	}
}

// publish fans an event out to the board room, excluding the
// originating connection when the request carried one.
func (s *taskService) publish(ctx context.Context, event events.Event) {
	s.publisher.Publish(event, events.OriginFromContext(ctx))
}

// Create validates and persists a new task at version 1
func (s *taskService) Create(ctx context.Context, actor uuid.UUID, in CreateTaskInput) (*models.Task, error) {
	now := time.Now().UTC()

	task := &models.Task{
		ID:             uuid.New(),
		Title:          in.Title,
		Description:    in.Description,
		Status:         models.TaskStatusTodo,
		Priority:       models.TaskPriorityMedium,
		AssignedTo:     in.AssignedTo,
		DueDate:        in.DueDate,
		Tags:           in.Tags,
		CreatedBy:      actor,
		Version:        1,
		LastModifiedBy: actor,
		LastModifiedAt: now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.Status != nil {
		task.Status = *in.Status
	}
	if in.Priority != nil {
		task.Priority = *in.Priority
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateTitle
		}
		return nil, err
	}

	s.recorder.Record(actor, models.ActionCreate, models.EntityTask, task.ID, map[string]interface{}{
		"taskTitle": task.Title,
		"status":    task.Status,
	})
	s.publish(ctx, events.NewTaskCreated(task))

	return task, nil
}

// Get loads a single task
func (s *taskService) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	return s.tasks.Get(ctx, id)
}

// List returns all tasks
func (s *taskService) List(ctx context.Context) ([]*models.Task, error) {
	return s.tasks.List(ctx)
}

// ListByStatus returns the tasks in one column
func (s *taskService) ListByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error) {
	return s.tasks.ListByStatus(ctx, status)
}

// Update applies a version-guarded field update. A version mismatch
// registers and broadcasts a conflict record and returns the
// ConflictError untouched; the stored task is not modified.
func (s *taskService) Update(ctx context.Context, actor uuid.UUID, id uuid.UUID, in UpdateTaskInput) (*models.Task, error) {
	if in.Fields.IsEmpty() {
		return nil, &models.ValidationError{Field: "fields", Message: "at least one field must be submitted"}
	}

	task, err := s.guard.CheckAndApply(ctx, id, in.Version, actor, func(t *models.Task) error {
		in.Fields.Apply(t)
		return t.Validate()
	})
	if err != nil {
		if conflict, ok := AsConflict(err); ok {
			conflict.ClientVersion = in.Fields
			record := conflict.Record()
			s.conflicts.put(record)
			s.publish(ctx, events.NewConflictDetected(record))
		}
		return nil, err
	}

	// The accepted update supersedes any conflict still pending on
	// this task.
	s.conflicts.discard(id)

	s.recorder.Record(actor, models.ActionUpdate, models.EntityTask, task.ID, map[string]interface{}{
		"taskTitle": task.Title,
		"status":    task.Status,
	})
	s.publish(ctx, events.NewTaskUpdated(task))

	return task, nil
}

// Delete removes a task. Deleting an unknown id is ErrNotFound and
// causes no broadcast.
func (s *taskService) Delete(ctx context.Context, actor uuid.UUID, id uuid.UUID) error {
	task, err := s.tasks.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.tasks.Delete(ctx, id); err != nil {
		return err
	}

	s.conflicts.discard(id)

	s.recorder.Record(actor, models.ActionDelete, models.EntityTask, id, map[string]interface{}{
		"taskTitle": task.Title,
	})
	s.publish(ctx, events.NewTaskDeleted(id))

	return nil
}

// Move sets a task's status (any column to any column; the status set
// is flat) and optionally its assignee. Moves carry no client version
// and never conflict.
func (s *taskService) Move(ctx context.Context, actor uuid.UUID, id uuid.UUID, in MoveTaskInput) (*models.Task, error) {
	var oldStatus models.TaskStatus

	task, err := s.guard.CheckAndApply(ctx, id, nil, actor, func(t *models.Task) error {
		oldStatus = t.Status
		t.Status = in.Status
		if in.AssignedTo != nil {
			if *in.AssignedTo == uuid.Nil {
				t.AssignedTo = nil
			} else {
				assignee := *in.AssignedTo
				t.AssignedTo = &assignee
			}
		}
		return t.Validate()
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(actor, models.ActionMove, models.EntityTask, task.ID, map[string]interface{}{
		"taskTitle": task.Title,
		"oldStatus": oldStatus,
		"newStatus": task.Status,
	})
	s.publish(ctx, events.NewTaskMoved(task, oldStatus, task.Status))

	return task, nil
}

// SmartAssign gives the task to the least loaded user. The load count
// is computed fresh from the current task population, before the
// assignment itself lands.
func (s *taskService) SmartAssign(ctx context.Context, actor uuid.UUID, id uuid.UUID) (*models.Task, *models.User, error) {
	// Resolve the task first so an unknown id fails with NotFound
	// rather than NoUsersAvailable on an empty board.
	if _, err := s.tasks.Get(ctx, id); err != nil {
		return nil, nil, err
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	assignee, err := s.strategy.Select(users, tasks)
	if err != nil {
		return nil, nil, err
	}

	task, err := s.guard.CheckAndApply(ctx, id, nil, actor, func(t *models.Task) error {
		assigneeID := assignee.ID
		t.AssignedTo = &assigneeID
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.recorder.Record(actor, models.ActionSmartAssign, models.EntityTask, task.ID, map[string]interface{}{
		"taskTitle":          task.Title,
		"assignedTo":         assignee.ID,
		"assignedToUsername": assignee.Username,
		"strategy":           s.strategy.Name(),
	})
	s.publish(ctx, events.NewTaskUpdated(task))

	return task, assignee, nil
}

// ResolveConflict applies a user-chosen resolution to a conflicted
// task. The pending conflict record, if still held, is consumed here
// regardless of outcome. The new version is always one past the version
// stored at resolution time, never derived from the client's stale one.
func (s *taskService) ResolveConflict(ctx context.Context, actor uuid.UUID, id uuid.UUID, strategy ResolutionStrategy, chosen models.TaskFields) (*models.Task, error) {
	if !strategy.Valid() {
		return nil, &models.ValidationError{Field: "resolution", Message: "resolution must be merge or overwrite"}
	}

	s.conflicts.take(id)

	task, err := s.guard.CheckAndApply(ctx, id, nil, actor, func(t *models.Task) error {
		switch strategy {
		case ResolutionOverwrite:
			chosen.Overwrite(t)
		default:
			chosen.Apply(t)
		}
		return t.Validate()
	})
	if err != nil {
		return nil, err
	}

	s.recorder.Record(actor, models.ActionConflictResolved, models.EntityTask, task.ID, map[string]interface{}{
		"taskTitle":  task.Title,
		"resolution": strategy,
		"version":    task.Version,
	})
	s.publish(ctx, events.NewTaskUpdated(task))

	return task, nil
}

// Stats returns the aggregate board counts
func (s *taskService) Stats(ctx context.Context) (*BoardStats, error) {
	byStatus, err := s.tasks.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	unassigned, err := s.tasks.CountUnassigned(ctx)
	if err != nil {
		return nil, err
	}

	stats := &BoardStats{
		Todo:       byStatus[models.TaskStatusTodo],
		InProgress: byStatus[models.TaskStatusInProgress],
		Done:       byStatus[models.TaskStatusDone],
		Unassigned: unassigned,
	}
	stats.Total = stats.Todo + stats.InProgress + stats.Done
	return stats, nil
}
