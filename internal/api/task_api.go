package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/S-Corkum/taskboard/internal/models"
	"github.com/S-Corkum/taskboard/internal/repository"
	"github.com/S-Corkum/taskboard/internal/services"
)

// respondError maps the service error taxonomy onto HTTP statuses.
// Conflicts are not failures: the 409 body carries both versions so the
// client can offer a resolution choice.
func (s *Server) respondError(c *gin.Context, err error) {
	var validationErr *models.ValidationError

	switch {
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})

	case errors.Is(err, services.ErrDuplicateTitle):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Task title must be unique"})

	case errors.Is(err, services.ErrNoUsersAvailable):
		c.JSON(http.StatusNotFound, gin.H{"error": "No users available for assignment"})

	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})

	default:
		if conflict, ok := services.AsConflict(err); ok {
			c.JSON(http.StatusConflict, gin.H{
				"error":         "Conflict detected",
				"conflict":      true,
				"serverVersion": conflict.ServerVersion,
				"clientVersion": conflict.ClientVersion,
			})
			return
		}
		s.logger.Error("request failed", map[string]interface{}{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
	}
}

func taskID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task id"})
		return uuid.Nil, false
	}
	return id, true
}

// handleListTasks returns every task on the board
func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.tasks.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// handleListTasksByStatus returns the tasks in one column
func (s *Server) handleListTasksByStatus(c *gin.Context) {
	status := models.TaskStatus(c.Param("status"))
	if !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	tasks, err := s.tasks.ListByStatus(c.Request.Context(), status)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// handleGetTask returns one task by id
func (s *Server) handleGetTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, err := s.tasks.Get(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// handleCreateTask creates a new task at version 1
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.tasks.Create(c.Request.Context(), currentUser(c), req.input())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// handleUpdateTask applies a version-guarded update
func (s *Server) handleUpdateTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.tasks.Update(c.Request.Context(), currentUser(c), id, services.UpdateTaskInput{
		Fields:  req.fields(),
		Version: req.Version,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// handleDeleteTask removes a task
func (s *Server) handleDeleteTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	if err := s.tasks.Delete(c.Request.Context(), currentUser(c), id); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// handleMoveTask moves a task between columns (drag and drop)
func (s *Server) handleMoveTask(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var req moveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.tasks.Move(c.Request.Context(), currentUser(c), id, services.MoveTaskInput{
		Status:     req.Status,
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// handleSmartAssign assigns the task to the least loaded user
func (s *Server) handleSmartAssign(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, assignee, err := s.tasks.SmartAssign(c.Request.Context(), currentUser(c), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task":    task,
		"message": "Task smart assigned to " + assignee.Username,
	})
}

// handleResolveConflict applies a merge or overwrite resolution
func (s *Server) handleResolveConflict(c *gin.Context) {
	id, ok := taskID(c)
	if !ok {
		return
	}

	var req resolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := s.tasks.ResolveConflict(
		c.Request.Context(),
		currentUser(c),
		id,
		services.ResolutionStrategy(req.Resolution),
		req.ChosenVersion.fields(),
	)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// handleStats returns the aggregate board counts
func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.tasks.Stats(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
