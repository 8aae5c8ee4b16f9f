package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/S-Corkum/taskboard/internal/models"
	"github.com/S-Corkum/taskboard/internal/repository"
)

// forcedRetries bounds how often a forced mutation retries after losing
// a compare-and-set race to a concurrent writer.
const forcedRetries = 5

// VersionGuard is the atomic boundary for optimistic concurrency
// control. Every mutation passes through CheckAndApply; the guard never
// broadcasts or records activity, callers do that after a successful
// result.
type VersionGuard struct {
	tasks repository.TaskRepository
}

// NewVersionGuard creates a guard over the given task store
func NewVersionGuard(tasks repository.TaskRepository) *VersionGuard {
	return &VersionGuard{tasks: tasks}
}

// CheckAndApply loads the task, verifies the submitted version, applies
// the mutation to a clone, increments the version by exactly one,
// stamps the audit metadata and persists with compare-and-set.
//
// A nil submittedVersion means "force": the mutation does not carry a
// client-known version (moves, smart assignment) and retries on CAS
// races instead of conflicting. With a version present, any mismatch
// with the stored version, including one committed between the load and
// the persist, surfaces as a ConflictError with ClientVersion left for
// the caller to fill in.
//
// Errors: repository.ErrNotFound when the id does not resolve,
// ErrDuplicateTitle when a title change collides, a ConflictError on
// version mismatch, and validation errors returned by mutate.
func (g *VersionGuard) CheckAndApply(
	ctx context.Context,
	taskID uuid.UUID,
	submittedVersion *int,
	actor uuid.UUID,
	mutate func(*models.Task) error,
) (*models.Task, error) {
	for attempt := 0; ; attempt++ {
		current, err := g.tasks.Get(ctx, taskID)
		if err != nil {
			return nil, err
		}

		if submittedVersion != nil && *submittedVersion != current.Version {
			return nil, &ConflictError{TaskID: taskID, ServerVersion: current}
		}

		next := current.Clone()
		if err := mutate(next); err != nil {
			return nil, err
		}

		now := time.Now().UTC()
		next.Version = current.Version + 1
		next.LastModifiedBy = actor
		next.LastModifiedAt = now
		next.UpdatedAt = now

		err = g.tasks.UpdateWithVersion(ctx, next, current.Version)
		switch {
		case err == nil:
			return next, nil

		case errors.Is(err, repository.ErrDuplicate):
			return nil, ErrDuplicateTitle

		case errors.Is(err, repository.ErrOptimisticLock):
			if submittedVersion != nil {
				// Another actor committed inside the client's edit
				// window; reload so the conflict carries the version
				// that actually won.
				server, gerr := g.tasks.Get(ctx, taskID)
				if gerr != nil {
					return nil, gerr
				}
				return nil, &ConflictError{TaskID: taskID, ServerVersion: server}
			}
			if attempt >= forcedRetries {
				return nil, errors.Wrap(err, "forced mutation kept losing update races")
			}
			// Forced mutation: re-read and reapply on the new state.
			continue

		default:
			return nil, err
		}
	}
}
