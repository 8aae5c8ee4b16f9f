package services

import (
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/S-Corkum/taskboard/internal/models"
)

// pendingConflicts bounds how many unresolved conflict records are held
// at once; abandoned records fall off the cold end.
const pendingConflicts = 256

// ResolutionStrategy names a user-chosen way out of a conflict
type ResolutionStrategy string

const (
	ResolutionMerge     ResolutionStrategy = "merge"
	ResolutionOverwrite ResolutionStrategy = "overwrite"
)

// Valid reports whether the strategy is one of merge or overwrite.
func (s ResolutionStrategy) Valid() bool {
	return s == ResolutionMerge || s == ResolutionOverwrite
}

// conflictRegistry keeps ephemeral conflict records between detection
// and resolution. Records are consumed exactly once; a record for a
// task replaces any earlier record for the same task, since only the
// latest server version is resolvable.
type conflictRegistry struct {
	mu      sync.Mutex
	records *lru.Cache[uuid.UUID, *models.ConflictRecord]
}

func newConflictRegistry() *conflictRegistry {
	cache, err := lru.New[uuid.UUID, *models.ConflictRecord](pendingConflicts)
	if err != nil {
		// Only fails for a non-positive size.
		panic(err)
	}
	return &conflictRegistry{records: cache}
}

// put registers a detected conflict for later resolution
func (r *conflictRegistry) put(record *models.ConflictRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records.Add(record.TaskID, record)
}

// take consumes the pending record for a task, if any
func (r *conflictRegistry) take(taskID uuid.UUID) (*models.ConflictRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records.Get(taskID)
	if ok {
		r.records.Remove(taskID)
	}
	return record, ok
}

// discard drops the pending record for a task, if any
func (r *conflictRegistry) discard(taskID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records.Remove(taskID)
}
