package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/S-Corkum/taskboard/internal/models"
	"github.com/S-Corkum/taskboard/internal/repository"
)

// handleListUsers returns the assignment population in creation order
func (s *Server) handleListUsers(c *gin.Context) {
	users, err := s.users.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

// handleCreateUser registers a board member. This is membership, not
// authentication; credentials and sessions live in the auth service.
func (s *Server) handleCreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user := &models.User{
		ID:        uuid.New(),
		Username:  req.Username,
		Email:     req.Email,
		Avatar:    req.Avatar,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Username already taken"})
			return
		}
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": user})
}
