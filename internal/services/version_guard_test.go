package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S-Corkum/taskboard/internal/models"
	"github.com/S-Corkum/taskboard/internal/repository"
)

func seedTask(repo *memoryTaskRepo, title string, version int) *models.Task {
	task := &models.Task{
		ID:        uuid.New(),
		Title:     title,
		Status:    models.TaskStatusTodo,
		Priority:  models.TaskPriorityMedium,
		Version:   version,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	repo.add(task)
	return task
}

func intPtr(v int) *int { return &v }

func TestVersionGuardCheckAndApply(t *testing.T) {
	ctx := context.Background()
	actor := uuid.New()

	t.Run("matching version commits exactly one increment", func(t *testing.T) {
		repo := newMemoryTaskRepo()
		task := seedTask(repo, "Write the runbook", 3)

		guard := NewVersionGuard(repo)
		got, err := guard.CheckAndApply(ctx, task.ID, intPtr(3), actor, func(t *models.Task) error {
			t.Description = "updated"
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, 4, got.Version)
		assert.Equal(t, "updated", got.Description)
		assert.Equal(t, actor, got.LastModifiedBy)
		assert.False(t, got.LastModifiedAt.IsZero())

		stored := repo.stored(task.ID)
		assert.Equal(t, 4, stored.Version)
		assert.Equal(t, "updated", stored.Description)
	})

	t.Run("stale version conflicts and leaves the store untouched", func(t *testing.T) {
		repo := newMemoryTaskRepo()
		task := seedTask(repo, "Write the runbook", 5)

		guard := NewVersionGuard(repo)
		_, err := guard.CheckAndApply(ctx, task.ID, intPtr(3), actor, func(t *models.Task) error {
			t.Description = "should never land"
			return nil
		})
		require.Error(t, err)

		conflict, ok := AsConflict(err)
		require.True(t, ok)
		assert.Equal(t, task.ID, conflict.TaskID)
		assert.Equal(t, 5, conflict.ServerVersion.Version)

		stored := repo.stored(task.ID)
		assert.Equal(t, 5, stored.Version)
		assert.Empty(t, stored.Description)
	})

	t.Run("race inside the edit window conflicts with the winning version", func(t *testing.T) {
		repo := newMemoryTaskRepo()
		task := seedTask(repo, "Write the runbook", 2)
		repo.loseRaces = 1

		guard := NewVersionGuard(repo)
		_, err := guard.CheckAndApply(ctx, task.ID, intPtr(2), actor, func(t *models.Task) error {
			return nil
		})

		conflict, ok := AsConflict(err)
		require.True(t, ok)
		assert.Equal(t, 2, conflict.ServerVersion.Version)
		assert.Equal(t, 1, repo.updateCalls, "a versioned mutation must not retry")
	})

	t.Run("forced mutation retries through lost races", func(t *testing.T) {
		repo := newMemoryTaskRepo()
		task := seedTask(repo, "Write the runbook", 1)
		repo.loseRaces = 2

		guard := NewVersionGuard(repo)
		got, err := guard.CheckAndApply(ctx, task.ID, nil, actor, func(t *models.Task) error {
			t.Status = models.TaskStatusInProgress
			return nil
		})
		require.NoError(t, err)

		assert.Equal(t, 2, got.Version)
		assert.Equal(t, models.TaskStatusInProgress, got.Status)
		assert.Equal(t, 3, repo.updateCalls)
	})

	t.Run("forced mutation gives up after bounded retries", func(t *testing.T) {
		repo := newMemoryTaskRepo()
		task := seedTask(repo, "Write the runbook", 1)
		repo.loseRaces = forcedRetries + 10

		guard := NewVersionGuard(repo)
		_, err := guard.CheckAndApply(ctx, task.ID, nil, actor, func(t *models.Task) error {
			return nil
		})
		require.Error(t, err)

		_, ok := AsConflict(err)
		assert.False(t, ok, "exhausted retries are an internal error, not a conflict")
		assert.ErrorIs(t, err, repository.ErrOptimisticLock)
	})

	t.Run("unknown task id", func(t *testing.T) {
		guard := NewVersionGuard(newMemoryTaskRepo())
		_, err := guard.CheckAndApply(ctx, uuid.New(), intPtr(1), actor, func(t *models.Task) error {
			return nil
		})
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("title collision surfaces as duplicate title", func(t *testing.T) {
		repo := newMemoryTaskRepo()
		seedTask(repo, "Taken title", 1)
		task := seedTask(repo, "Write the runbook", 1)

		guard := NewVersionGuard(repo)
		_, err := guard.CheckAndApply(ctx, task.ID, intPtr(1), actor, func(t *models.Task) error {
			t.Title = "Taken title"
			return nil
		})
		assert.ErrorIs(t, err, ErrDuplicateTitle)
	})

	t.Run("mutate error aborts before persisting", func(t *testing.T) {
		repo := newMemoryTaskRepo()
		task := seedTask(repo, "Write the runbook", 1)

		guard := NewVersionGuard(repo)
		_, err := guard.CheckAndApply(ctx, task.ID, intPtr(1), actor, func(t *models.Task) error {
			t.Title = string(models.TaskStatusDone)
			return t.Validate()
		})
		require.Error(t, err)

		var verr *models.ValidationError
		assert.ErrorAs(t, err, &verr)
		assert.Equal(t, 1, repo.stored(task.ID).Version)
		assert.Zero(t, repo.updateCalls)
	})
}
