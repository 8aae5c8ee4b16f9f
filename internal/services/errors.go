package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/S-Corkum/taskboard/internal/models"
)

// Service errors
var (
	ErrNoUsersAvailable = errors.New("no users available for assignment")
	ErrDuplicateTitle   = errors.New("task title must be unique")
)

// ConflictError reports a version mismatch detected by the version
// guard. It is an expected, recoverable outcome of concurrent editing,
// not an internal failure: it carries both versions so the caller can
// choose a resolution.
type ConflictError struct {
	TaskID        uuid.UUID
	ServerVersion *models.Task
	ClientVersion models.TaskFields
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict detected on task %s: server version is %d",
		e.TaskID, e.ServerVersion.Version)
}

// Record converts the error into the ephemeral conflict record handed
// to clients and the broadcast fanout.
func (e *ConflictError) Record() *models.ConflictRecord {
	return &models.ConflictRecord{
		TaskID:        e.TaskID,
		ServerVersion: e.ServerVersion,
		ClientVersion: e.ClientVersion,
		DetectedAt:    time.Now().UTC(),
	}
}

// AsConflict unwraps err to a ConflictError if there is one in the chain
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
