package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/S-Corkum/taskboard/internal/events"
	"github.com/S-Corkum/taskboard/internal/models"
	"github.com/S-Corkum/taskboard/internal/repository"
)

// memoryTaskRepo is an in-memory TaskRepository with the same locking
// semantics as the Redis implementation: UpdateWithVersion commits only
// when the stored version matches.
type memoryTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*models.Task
	order []uuid.UUID

	// loseRaces makes the next n UpdateWithVersion calls fail with
	// ErrOptimisticLock, simulating a concurrent writer winning the
	// compare-and-set.
	loseRaces int
	// updateCalls counts UpdateWithVersion invocations.
	updateCalls int
}

func newMemoryTaskRepo() *memoryTaskRepo {
	return &memoryTaskRepo{tasks: make(map[uuid.UUID]*models.Task)}
}

func (r *memoryTaskRepo) add(task *models.Task) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task.Clone()
	r.order = append(r.order, task.ID)
}

func (r *memoryTaskRepo) stored(id uuid.UUID) *models.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.tasks[id]; ok {
		return t.Clone()
	}
	return nil
}

func (r *memoryTaskRepo) titleTaken(title string, except uuid.UUID) bool {
	for id, t := range r.tasks {
		if id != except && t.Title == title {
			return true
		}
	}
	return false
}

func (r *memoryTaskRepo) Create(ctx context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; ok {
		return repository.ErrDuplicate
	}
	if r.titleTaken(task.Title, task.ID) {
		return repository.ErrDuplicate
	}
	r.tasks[task.ID] = task.Clone()
	r.order = append(r.order, task.ID)
	return nil
}

func (r *memoryTaskRepo) Get(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return t.Clone(), nil
}

func (r *memoryTaskRepo) GetByTitle(ctx context.Context, title string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.Title == title {
			return t.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryTaskRepo) List(ctx context.Context) ([]*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Task, 0, len(r.order))
	for _, id := range r.order {
		if t, ok := r.tasks[id]; ok {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (r *memoryTaskRepo) ListByStatus(ctx context.Context, status models.TaskStatus) ([]*models.Task, error) {
	all, _ := r.List(ctx)
	out := make([]*models.Task, 0, len(all))
	for _, t := range all {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *memoryTaskRepo) UpdateWithVersion(ctx context.Context, task *models.Task, expectedVersion int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateCalls++
	if r.loseRaces > 0 {
		r.loseRaces--
		return repository.ErrOptimisticLock
	}
	current, ok := r.tasks[task.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if current.Version != expectedVersion {
		return repository.ErrOptimisticLock
	}
	if r.titleTaken(task.Title, task.ID) {
		return repository.ErrDuplicate
	}
	r.tasks[task.ID] = task.Clone()
	return nil
}

func (r *memoryTaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *memoryTaskRepo) CountByStatus(ctx context.Context) (map[models.TaskStatus]int, error) {
	all, _ := r.List(ctx)
	counts := make(map[models.TaskStatus]int)
	for _, t := range all {
		counts[t.Status]++
	}
	return counts, nil
}

func (r *memoryTaskRepo) CountUnassigned(ctx context.Context) (int, error) {
	all, _ := r.List(ctx)
	n := 0
	for _, t := range all {
		if t.AssignedTo == nil {
			n++
		}
	}
	return n, nil
}

// memoryUserRepo keeps users in creation order, matching the ordering
// contract the assignment strategy relies on.
type memoryUserRepo struct {
	mu    sync.Mutex
	users []*models.User
}

func (r *memoryUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	r.users = append(r.users, user)
	return nil
}

func (r *memoryUserRepo) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memoryUserRepo) List(ctx context.Context) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.User, len(r.users))
	copy(out, r.users)
	return out, nil
}

// memoryActionRepo appends actions in arrival order.
type memoryActionRepo struct {
	mu      sync.Mutex
	actions []*models.Action
}

func (r *memoryActionRepo) Create(ctx context.Context, action *models.Action) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, action)
	return nil
}

func (r *memoryActionRepo) ListRecent(ctx context.Context, limit int) ([]*models.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Action, 0, limit)
	for i := len(r.actions) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, r.actions[i])
	}
	return out, nil
}

func (r *memoryActionRepo) ListByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]*models.Action, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Action, 0, limit)
	for i := len(r.actions) - 1; i >= 0 && len(out) < limit; i-- {
		if r.actions[i].EntityID == entityID {
			out = append(out, r.actions[i])
		}
	}
	return out, nil
}

func (r *memoryActionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.actions)
}

// capturePublisher records published events for assertion.
type capturePublisher struct {
	mu       sync.Mutex
	events   []events.Event
	excludes []string
}

func (p *capturePublisher) Publish(event events.Event, excludeConnID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	p.excludes = append(p.excludes, excludeConnID)
}

func (p *capturePublisher) published() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *capturePublisher) ofType(t events.Type) []events.Event {
	out := []events.Event{}
	for _, e := range p.published() {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (p *capturePublisher) lastExclude() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.excludes) == 0 {
		return ""
	}
	return p.excludes[len(p.excludes)-1]
}

// captureRecorder records activity entries synchronously.
type recordedAction struct {
	UserID  uuid.UUID
	Action  models.ActionType
	Details map[string]interface{}
}

type captureRecorder struct {
	mu      sync.Mutex
	actions []recordedAction
}

func (r *captureRecorder) Record(userID uuid.UUID, action models.ActionType, entityType models.EntityType, entityID uuid.UUID, details map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actions = append(r.actions, recordedAction{UserID: userID, Action: action, Details: details})
}

func (r *captureRecorder) recorded() []recordedAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedAction, len(r.actions))
	copy(out, r.actions)
	return out
}
