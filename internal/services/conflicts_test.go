package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S-Corkum/taskboard/internal/models"
)

func TestResolutionStrategyValid(t *testing.T) {
	assert.True(t, ResolutionMerge.Valid())
	assert.True(t, ResolutionOverwrite.Valid())
	assert.False(t, ResolutionStrategy("").Valid())
	assert.False(t, ResolutionStrategy("discard").Valid())
}

func TestConflictRegistry(t *testing.T) {
	t.Run("take consumes exactly once", func(t *testing.T) {
		reg := newConflictRegistry()
		record := &models.ConflictRecord{TaskID: uuid.New()}
		reg.put(record)

		got, ok := reg.take(record.TaskID)
		require.True(t, ok)
		assert.Equal(t, record, got)

		_, ok = reg.take(record.TaskID)
		assert.False(t, ok)
	})

	t.Run("discard drops a pending record", func(t *testing.T) {
		reg := newConflictRegistry()
		record := &models.ConflictRecord{TaskID: uuid.New()}
		reg.put(record)
		reg.discard(record.TaskID)

		_, ok := reg.take(record.TaskID)
		assert.False(t, ok)
	})

	t.Run("newer record replaces older for the same task", func(t *testing.T) {
		reg := newConflictRegistry()
		taskID := uuid.New()
		reg.put(&models.ConflictRecord{TaskID: taskID, ServerVersion: &models.Task{Version: 2}})
		reg.put(&models.ConflictRecord{TaskID: taskID, ServerVersion: &models.Task{Version: 3}})

		got, ok := reg.take(taskID)
		require.True(t, ok)
		assert.Equal(t, 3, got.ServerVersion.Version)
	})

	t.Run("pending conflicts are capped", func(t *testing.T) {
		reg := newConflictRegistry()
		first := uuid.New()
		reg.put(&models.ConflictRecord{TaskID: first})
		for i := 0; i < pendingConflicts; i++ {
			reg.put(&models.ConflictRecord{TaskID: uuid.New()})
		}

		_, ok := reg.take(first)
		assert.False(t, ok, "oldest record should have been evicted")
	})
}
