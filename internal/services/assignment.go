package services

import (
	"github.com/S-Corkum/taskboard/internal/models"
)

// AssignmentStrategy selects an assignee for a task from the current
// user and task population.
type AssignmentStrategy interface {
	Select(users []*models.User, tasks []*models.Task) (*models.User, error)
	Name() string
}

// LeastLoadedStrategy picks the user with the fewest active tasks
// (status Todo or InProgress). Ties break toward the user appearing
// first in the supplied ordering, so callers must enumerate users in a
// consistent order for reproducible results. The strategy holds no
// state and is re-evaluated fresh on every call.
type LeastLoadedStrategy struct{}

// Select returns the least loaded user, or ErrNoUsersAvailable when
// the population is empty.
func (LeastLoadedStrategy) Select(users []*models.User, tasks []*models.Task) (*models.User, error) {
	if len(users) == 0 {
		return nil, ErrNoUsersAvailable
	}

	active := make(map[string]int, len(users))
	for _, t := range tasks {
		if t.AssignedTo != nil && t.Active() {
			active[t.AssignedTo.String()]++
		}
	}

	var best *models.User
	bestCount := 0
	for _, u := range users {
		count := active[u.ID.String()]
		if best == nil || count < bestCount {
			best = u
			bestCount = count
		}
	}
	return best, nil
}

func (LeastLoadedStrategy) Name() string { return "least_loaded" }
