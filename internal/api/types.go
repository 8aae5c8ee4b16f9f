package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/S-Corkum/taskboard/internal/models"
	"github.com/S-Corkum/taskboard/internal/services"
)

type createTaskRequest struct {
	Title       string               `json:"title" binding:"required,max=100"`
	Description string               `json:"description" binding:"omitempty,max=500"`
	Status      *models.TaskStatus   `json:"status" binding:"omitempty,oneof=Todo InProgress Done"`
	Priority    *models.TaskPriority `json:"priority" binding:"omitempty,oneof=Low Medium High Critical"`
	AssignedTo  *uuid.UUID           `json:"assignedTo"`
	DueDate     *time.Time           `json:"dueDate"`
	Tags        []string             `json:"tags"`
}

func (r *createTaskRequest) input() services.CreateTaskInput {
	return services.CreateTaskInput{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		AssignedTo:  r.AssignedTo,
		DueDate:     r.DueDate,
		Tags:        r.Tags,
	}
}

// taskFieldsRequest is the partial-update payload. Omitted fields are
// left untouched; assignedTo set to the nil UUID clears the assignment.
type taskFieldsRequest struct {
	Title       *string              `json:"title" binding:"omitempty,min=1,max=100"`
	Description *string              `json:"description" binding:"omitempty,max=500"`
	Status      *models.TaskStatus   `json:"status" binding:"omitempty,oneof=Todo InProgress Done"`
	Priority    *models.TaskPriority `json:"priority" binding:"omitempty,oneof=Low Medium High Critical"`
	AssignedTo  *uuid.UUID           `json:"assignedTo"`
	DueDate     *time.Time           `json:"dueDate"`
	Tags        []string             `json:"tags"`
}

func (r *taskFieldsRequest) fields() models.TaskFields {
	return models.TaskFields{
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
		Priority:    r.Priority,
		AssignedTo:  r.AssignedTo,
		DueDate:     r.DueDate,
		Tags:        r.Tags,
	}
}

type updateTaskRequest struct {
	taskFieldsRequest
	// Version is the optimistic-concurrency token the client read.
	Version *int `json:"version" binding:"omitempty,gte=1"`
}

type moveTaskRequest struct {
	Status     models.TaskStatus `json:"status" binding:"required,oneof=Todo InProgress Done"`
	AssignedTo *uuid.UUID        `json:"assignedTo"`
}

type resolveConflictRequest struct {
	Resolution    string            `json:"resolution" binding:"required,oneof=merge overwrite"`
	ChosenVersion taskFieldsRequest `json:"chosenVersion"`
}

type createUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Email    string `json:"email" binding:"omitempty,email"`
	Avatar   string `json:"avatar" binding:"omitempty,url"`
}
