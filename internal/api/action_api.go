package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const defaultActionLimit = 20

func actionLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultActionLimit)))
	if err != nil || limit <= 0 {
		return defaultActionLimit
	}
	return limit
}

// handleRecentActions returns the newest activity log entries
func (s *Server) handleRecentActions(c *gin.Context) {
	actions, err := s.actions.ListRecent(c.Request.Context(), actionLimit(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}

// handleEntityActions returns the activity history of one entity
func (s *Server) handleEntityActions(c *gin.Context) {
	entityID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid entity id"})
		return
	}

	actions, err := s.actions.ListByEntity(c.Request.Context(), entityID, actionLimit(c))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions})
}
