package redis

import (
	"context"
	"encoding/json"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/S-Corkum/taskboard/internal/models"
)

const (
	actionsRecentKey      = "actions:recent"
	actionsEntityPrefix   = "actions:entity:"
	actionsRetentionLimit = 1000
)

// ActionRepository is the Redis-backed activity log: capped lists with
// the newest entry first.
type ActionRepository struct {
	client *goredis.Client
}

// NewActionRepository creates an action repository on the given client
func NewActionRepository(client *goredis.Client) *ActionRepository {
	return &ActionRepository{client: client}
}

// Create appends an action to the recent feed and its entity's history
func (r *ActionRepository) Create(ctx context.Context, action *models.Action) error {
	data, err := json.Marshal(action)
	if err != nil {
		return errors.Wrap(err, "marshal action")
	}

	entityKey := actionsEntityPrefix + action.EntityID.String()

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.LPush(ctx, actionsRecentKey, data)
		pipe.LTrim(ctx, actionsRecentKey, 0, actionsRetentionLimit-1)
		pipe.LPush(ctx, entityKey, data)
		pipe.LTrim(ctx, entityKey, 0, actionsRetentionLimit-1)
		return nil
	})
	return errors.Wrap(err, "persist action")
}

// ListRecent returns the newest actions, most recent first
func (r *ActionRepository) ListRecent(ctx context.Context, limit int) ([]*models.Action, error) {
	return r.list(ctx, actionsRecentKey, limit)
}

// ListByEntity returns the newest actions for one entity
func (r *ActionRepository) ListByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]*models.Action, error) {
	return r.list(ctx, actionsEntityPrefix+entityID.String(), limit)
}

func (r *ActionRepository) list(ctx context.Context, key string, limit int) ([]*models.Action, error) {
	if limit <= 0 || limit > actionsRetentionLimit {
		limit = actionsRetentionLimit
	}

	values, err := r.client.LRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list actions")
	}

	actions := make([]*models.Action, 0, len(values))
	for _, v := range values {
		var action models.Action
		if err := json.Unmarshal([]byte(v), &action); err != nil {
			return nil, errors.Wrap(err, "unmarshal action")
		}
		actions = append(actions, &action)
	}
	return actions, nil
}
