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
	userKeyPrefix    = "user:"
	userIDsKey       = "users:ids"
	userUsernamesKey = "users:names"
)

// UserRepository is the Redis-backed user store. Users are kept in a
// list so List returns them in creation order; smart assignment
// tie-breaking depends on that order being stable.
type UserRepository struct {
	client *goredis.Client
}

// NewUserRepository creates a user repository on the given client
func NewUserRepository(client *goredis.Client) *UserRepository {
	return &UserRepository{client: client}
}

func userKey(id uuid.UUID) string {
	return userKeyPrefix + id.String()
}

// Create persists a new user. Usernames are unique.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "marshal user")
	}

	claimed, err := r.client.HSetNX(ctx, userUsernamesKey, user.Username, user.ID.String()).Result()
	if err != nil {
		return errors.Wrap(err, "claim username")
	}
	if !claimed {
		return repository.ErrDuplicate
	}

	_, err = r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, userKey(user.ID), data, 0)
		pipe.RPush(ctx, userIDsKey, user.ID.String())
		return nil
	})
	if err != nil {
		r.client.HDel(ctx, userUsernamesKey, user.Username)
		return errors.Wrap(err, "persist user")
	}
	return nil
}

// Get loads a user by id
func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	data, err := r.client.Get(ctx, userKey(id)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, repository.ErrNotFound
		}
		return nil, errors.Wrap(err, "get user")
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, errors.Wrap(err, "unmarshal user")
	}
	return &user, nil
}

// GetByUsername resolves a user through the username index
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	idStr, err := r.client.HGet(ctx, userUsernamesKey, username).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, repository.ErrNotFound
		}
		return nil, errors.Wrap(err, "resolve username")
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, errors.Wrap(err, "parse user id from username index")
	}
	return r.Get(ctx, id)
}

// List returns all users in creation order
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	ids, err := r.client.LRange(ctx, userIDsKey, 0, -1).Result()
	if err != nil {
		return nil, errors.Wrap(err, "list user ids")
	}
	if len(ids) == 0 {
		return []*models.User{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = userKeyPrefix + id
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "load users")
	}

	users := make([]*models.User, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var user models.User
		if err := json.Unmarshal([]byte(s), &user); err != nil {
			return nil, errors.Wrap(err, "unmarshal user")
		}
		users = append(users, &user)
	}
	return users, nil
}
