package redis

import (
	"context"
	"encoding/json"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/S-Corkum/taskboard/internal/models"
	"github.com/S-Corkum/taskboard/internal/repository"
)

const (
	taskKeyPrefix = "task:"
	taskIDsKey    = "tasks:ids"
	taskTitlesKey = "tasks:titles"

	// Bounded retries for WATCH transactions aborted by concurrent
	// writers on the same keys. The version re-check inside the
	// transaction decides whether the abort was a real optimistic-lock
	// failure or just key contention.
	casAttempts = 5
)

// TaskRepository is the Redis-backed task store
type TaskRepository struct {
	client *goredis.Client
}

// NewTaskRepository creates a task repository on the given client
func NewTaskRepository(client *goredis.Client) *TaskRepository {
	return &TaskRepository{client: client}
}

func taskKey(id uuid.UUID) string {
	return taskKeyPrefix + id.String()
}

// Create persists a new task. The title index claim is the atomic
// uniqueness check: HSETNX fails when another task owns the title.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return errors.Wrap(err, "marshal task")
	}

	claimed, err := r.client.HSetNX(ctx, taskTitlesKey, task.Title, task.ID.String()).Result()
	if err != nil {
		return errors.Wrap(err, "claim title")
	}
	if !claimed {
		return repository.ErrDuplicate
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, taskKey(task.ID), data, 0)
		pipe.SAdd(ctx, taskIDsKey, task.ID.String())
		return nil
	})
	if err != nil {
		// Release the claimed title so the create can be retried.
		r.client.HDel(ctx, taskTitlesKey, task.Title)
		return errors.Wrap(err, "persist task")
	}
	return nil
}

// Get loads a task by id
func (r *TaskRepository) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	data, err := r.client.Get(ctx, taskKey(id)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, repository.ErrNotFound
		}
		return nil, errors.Wrap(err, "get task")
	}

	var task models.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, errors.Wrap(err, "unmarshal task")
	}
	return &task, nil
}

// GetByTitle resolves a task through the title index
func (r *TaskRepository) GetByTitle(ctx context.Context, title string) (*models.Task, error) {
	idStr, err := r.client.HGet(ctx, taskTitlesKey, title).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, repository.ErrNotFound
		}
		return nil, errors.Wrap(err, "resolve title")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, errors.Wrap(err, "parse task id from title index")
	}
	return r.Get(ctx, id)
}

// List returns all tasks on the board
func (r *TaskRepository) List(ctx context.Context) ([]*models.Task, error) {
	ids, err := r.client.SMembers(ctx, taskIDsKey).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list task ids")
	}
	if len(ids) == 0 {
		return []*models.Task{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = taskKeyPrefix + id
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "load tasks")
	}

	tasks := make([]*models.Task, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Deleted between SMEMBERS and MGET.
			continue
		}
		var task models.Task
		if err := json.Unmarshal([]byte(s), &task); err != nil {
			return nil, errors.Wrap(err, "unmarshal task")
		}
		tasks = append(tasks, &task)
	}
	return tasks, nil
}

// ListByStatus returns all tasks in one board column
func (r *TaskRepository) ListByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	tasks := make([]*models.Task, 0, len(all))
	for _, t := range all {
		if t.Status == status {
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// UpdateWithVersion commits the task only if the stored version still
// equals expectedVersion. The WATCH on the task key makes the
// load-compare-persist sequence atomic per task id.
func (r *TaskRepository) UpdateWithVersion(ctx context.Context, task *models.Task, expectedVersion int) error {
	data, err := json.Marshal(task)
	if err != nil {
		return errors.Wrap(err, "marshal task")
	}

	key := taskKey(task.ID)

	for attempt := 0; attempt < casAttempts; attempt++ {
		var titleChangedFrom string

		txErr := r.client.Watch(ctx, func(tx *goredis.Tx) error {
			curData, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if err == goredis.Nil {
					return repository.ErrNotFound
				}
				return errors.Wrap(err, "load current task")
			}

			var cur models.Task
			if err := json.Unmarshal(curData, &cur); err != nil {
				return errors.Wrap(err, "unmarshal current task")
			}

			if cur.Version != expectedVersion {
				return repository.ErrOptimisticLock
			}

			if task.Title != cur.Title {
				// A rename makes the title index part of the watched
				// state; otherwise two renames of different tasks to
				// one new title would each pass the HGET check and
				// both commit.
				if err := tx.Watch(ctx, taskTitlesKey).Err(); err != nil {
					return errors.Wrap(err, "watch title index")
				}
				owner, err := tx.HGet(ctx, taskTitlesKey, task.Title).Result()
				if err != nil && err != goredis.Nil {
					return errors.Wrap(err, "check title index")
				}
				if err == nil && owner != task.ID.String() {
					return repository.ErrDuplicate
				}
				titleChangedFrom = cur.Title
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Set(ctx, key, data, 0)
				if titleChangedFrom != "" {
					pipe.HDel(ctx, taskTitlesKey, titleChangedFrom)
					pipe.HSet(ctx, taskTitlesKey, task.Title, task.ID.String())
				}
				return nil
			})
			return err
		}, key)

		if txErr == goredis.TxFailedErr {
			// A concurrent writer touched the key. Re-check whether the
			// expected version still holds; if not, this is a genuine
			// optimistic-lock failure the caller must see.
			cur, err := r.Get(ctx, task.ID)
			if err != nil {
				return err
			}
			if cur.Version != expectedVersion {
				return repository.ErrOptimisticLock
			}
			continue
		}
		return txErr
	}

	return repository.ErrOptimisticLock
}

// Delete removes a task and its index entries
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	key := taskKey(id)

	for attempt := 0; attempt < casAttempts; attempt++ {
		txErr := r.client.Watch(ctx, func(tx *goredis.Tx) error {
			curData, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				if err == goredis.Nil {
					return repository.ErrNotFound
				}
				return errors.Wrap(err, "load current task")
			}

			var cur models.Task
			if err := json.Unmarshal(curData, &cur); err != nil {
				return errors.Wrap(err, "unmarshal current task")
			}

			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.SRem(ctx, taskIDsKey, id.String())
				pipe.HDel(ctx, taskTitlesKey, cur.Title)
				return nil
			})
			return err
		}, key)

		if txErr == goredis.TxFailedErr {
			continue
		}
		return txErr
	}

	return repository.ErrOptimisticLock
}

// CountByStatus returns the number of tasks per board column
func (r *TaskRepository) CountByStatus(ctx context.Context) (map[models.TaskStatus]int, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[models.TaskStatus]int, len(models.TaskStatuses))
	for _, s := range models.TaskStatuses {
		counts[s] = 0
	}
	for _, t := range all {
		counts[t.Status]++
	}
	return counts, nil
}

// CountUnassigned returns the number of tasks without an assignee
func (r *TaskRepository) CountUnassigned(ctx context.Context) (int, error) {
	all, err := r.List(ctx)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, t := range all {
		if t.AssignedTo == nil {
			n++
		}
	}
	return n, nil
}
