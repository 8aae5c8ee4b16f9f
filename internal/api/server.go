// Package api exposes the synchronous request surface of the board and
// hosts the websocket endpoint clients join for broadcast events.
package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	ws "github.com/S-Corkum/taskboard/internal/api/websocket"
	"github.com/S-Corkum/taskboard/internal/observability"
	"github.com/S-Corkum/taskboard/internal/repository"
	"github.com/S-Corkum/taskboard/internal/services"
)

// Server represents the API server
type Server struct {
	router *gin.Engine
	server *http.Server

	tasks   services.TaskService
	users   repository.UserRepository
	actions repository.ActionRepository
	hub     *ws.Hub

	logger observability.Logger
	config Config
}

// NewServer creates a new API server
func NewServer(
	cfg Config,
	tasks services.TaskService,
	users repository.UserRepository,
	actions repository.ActionRepository,
	hub *ws.Hub,
	logger observability.Logger,
) *Server {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(logger))

	if cfg.RateLimit.Enabled {
		router.Use(RateLimiter(cfg.RateLimit))
	}
	if cfg.EnableCORS {
		router.Use(CORSMiddleware(cfg.AllowedOrigins))
	}

	s := &Server{
		router:  router,
		tasks:   tasks,
		users:   users,
		actions: actions,
		hub:     hub,
		logger:  logger,
		config:  cfg,
		server: &http.Server{
			Addr:         cfg.ListenAddress,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
	}

	s.setupRoutes()

	return s
}

// setupRoutes initializes all API routes
func (s *Server) setupRoutes() {
	s.router.GET("/api/health", s.healthHandler)

	// Clients join the board room here; mutations travel over REST.
	s.router.GET("/ws", ws.Handler(s.hub))

	api := s.router.Group("/api")
	api.Use(OriginConnection())
	if s.config.Auth.Enabled {
		validator := NewJWTValidator([]byte(s.config.Auth.JWTSecret), s.config.Auth.Issuer)
		api.Use(AuthMiddleware(validator))
	}

	tasks := api.Group("/tasks")
	{
		tasks.GET("", s.handleListTasks)
		tasks.GET("/stats", s.handleStats)
		tasks.GET("/status/:status", s.handleListTasksByStatus)
		tasks.GET("/:id", s.handleGetTask)
		tasks.POST("", s.handleCreateTask)
		tasks.PUT("/:id", s.handleUpdateTask)
		tasks.DELETE("/:id", s.handleDeleteTask)
		tasks.PATCH("/:id/move", s.handleMoveTask)
		tasks.POST("/:id/smart-assign", s.handleSmartAssign)
		tasks.POST("/:id/resolve-conflict", s.handleResolveConflict)
	}

	users := api.Group("/users")
	{
		users.GET("", s.handleListUsers)
		users.POST("", s.handleCreateUser)
	}

	actions := api.Group("/actions")
	{
		actions.GET("", s.handleRecentActions)
		actions.GET("/entity/:id", s.handleEntityActions)
	}
}

// healthHandler returns service liveness
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"connections": s.hub.Count(),
	})
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start begins listening for requests
func (s *Server) Start() error {
	s.logger.Info("api server listening", map[string]interface{}{
		"address": s.config.ListenAddress,
	})
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.server.Shutdown(ctx)
}
