// Package repository defines the persistence interfaces for board
// entities. Implementations back them with a queryable document store;
// the store is the only shared mutable resource in the system.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/S-Corkum/taskboard/internal/models"
)

// TaskRepository persists tasks with optimistic locking.
//
// UpdateWithVersion is the atomic boundary for concurrency control: it
// commits the task only if the stored version still equals
// expectedVersion, so two mutations on one task id can never interleave
// their read-modify-write. Mutations on different ids are independent.
type TaskRepository interface {
	// Create persists a new task. Returns ErrDuplicate when the title
	// is already used by another task.
	Create(ctx context.Context, task *models.Task) error

	Get(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByTitle(ctx context.Context, title string) (*models.Task, error)
	List(ctx context.Context) ([]*models.Task, error)
	ListByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error)

	// UpdateWithVersion replaces the stored task if and only if its
	// current version equals expectedVersion. Returns ErrOptimisticLock
	// when another writer committed in between, ErrDuplicate when a
	// title change collides, ErrNotFound when the task is gone.
	UpdateWithVersion(ctx context.Context, task *models.Task, expectedVersion int) error

	Delete(ctx context.Context, id uuid.UUID) error

	// CountByStatus returns the number of tasks per status.
	CountByStatus(ctx context.Context) (map[models.TaskStatus]int, error)
	// CountUnassigned returns the number of tasks with no assignee.
	CountUnassigned(ctx context.Context) (int, error)
}

// UserRepository persists the assignment population. List returns users
// in creation order; smart assignment relies on that ordering being
// stable for deterministic tie-breaking.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

// ActionRepository is the append-only activity log. Writes are invoked
// from the fire-and-forget recording path and must tolerate loss.
type ActionRepository interface {
	Create(ctx context.Context, action *models.Action) error
	ListRecent(ctx context.Context, limit int) ([]*models.Action, error)
	ListByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]*models.Action, error)
}
