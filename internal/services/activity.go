package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/S-Corkum/taskboard/internal/models"
	"github.com/S-Corkum/taskboard/internal/observability"
	"github.com/S-Corkum/taskboard/internal/repository"
)

// ActivityRecorder is the fire-and-forget side-effect log of accepted
// actions. Recording failures are logged and swallowed; they must never
// block or fail the mutation path.
type ActivityRecorder interface {
	Record(userID uuid.UUID, action models.ActionType, entityType models.EntityType, entityID uuid.UUID, details map[string]interface{})
}

// NoopRecorder discards all activity. Used in tests.
type NoopRecorder struct{}

func (NoopRecorder) Record(userID uuid.UUID, action models.ActionType, entityType models.EntityType, entityID uuid.UUID, details map[string]interface{}) {
}

// asyncRecorder buffers actions in a channel and persists them from a
// worker goroutine. Store writes go through a circuit breaker so a
// struggling store degrades recording instead of piling up timeouts.
type asyncRecorder struct {
	actions chan *models.Action
	repo    repository.ActionRepository
	breaker *gobreaker.CircuitBreaker
	logger  observability.Logger
	done    chan struct{}
}

// NewActivityRecorder creates the asynchronous recorder and starts its
// worker. Call Close to drain and stop it.
func NewActivityRecorder(repo repository.ActionRepository, logger observability.Logger) *asyncRecorder {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	r := &asyncRecorder{
		actions: make(chan *models.Action, 1000),
		repo:    repo,
		logger:  logger,
		done:    make(chan struct{}),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "activity-store",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}

	go r.process()

	return r
}

// Record queues an action. When the buffer is full the entry is dropped
// and logged; the activity log tolerates loss.
func (r *asyncRecorder) Record(userID uuid.UUID, action models.ActionType, entityType models.EntityType, entityID uuid.UUID, details map[string]interface{}) {
	entry := &models.Action{
		ID:         uuid.New(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}

	select {
	case r.actions <- entry:
	default:
		r.logger.Warn("activity buffer full, dropping entry", map[string]interface{}{
			"action":    action,
			"entity_id": entityID,
		})
	}
}

func (r *asyncRecorder) process() {
	defer close(r.done)

	for entry := range r.actions {
		entry := entry
		_, err := r.breaker.Execute(func() (interface{}, error) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return nil, r.repo.Create(ctx, entry)
		})
		if err != nil {
			r.logger.Error("failed to record activity", map[string]interface{}{
				"action":    entry.Action,
				"entity_id": entry.EntityID,
				"error":     err.Error(),
			})
		}
	}
}

// Close stops accepting entries and waits for the worker to drain
func (r *asyncRecorder) Close() {
	close(r.actions)
	<-r.done
}
