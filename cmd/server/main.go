package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	goredis "github.com/go-redis/redis/v8"

	"github.com/S-Corkum/taskboard/internal/api"
	ws "github.com/S-Corkum/taskboard/internal/api/websocket"
	"github.com/S-Corkum/taskboard/internal/config"
	"github.com/S-Corkum/taskboard/internal/observability"
	redisrepo "github.com/S-Corkum/taskboard/internal/repository/redis"
	"github.com/S-Corkum/taskboard/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := observability.NewLogger("server")
	if sl, ok := logger.(*observability.StandardLogger); ok {
		logger = sl.WithLevel(observability.ParseLevel(cfg.Logging.Level))
	}

	client, err := connectStore(cfg.Redis, logger)
	if err != nil {
		logger.Fatal("failed to connect to store", map[string]interface{}{
			"address": cfg.Redis.Address,
			"error":   err.Error(),
		})
	}
	defer func() { _ = client.Close() }()

	taskRepo := redisrepo.NewTaskRepository(client)
	userRepo := redisrepo.NewUserRepository(client)
	actionRepo := redisrepo.NewActionRepository(client)

	hub := ws.NewHub(cfg.WebSocket, logger.WithPrefix("hub"))

	recorder := services.NewActivityRecorder(actionRepo, logger.WithPrefix("activity"))
	defer recorder.Close()

	taskService := services.NewTaskService(
		services.ServiceConfig{Logger: logger.WithPrefix("tasks")},
		taskRepo,
		userRepo,
		hub,
		recorder,
	)

	server := api.NewServer(cfg.API, taskService, userRepo, actionRepo, hub, logger.WithPrefix("api"))

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", map[string]interface{}{"signal": sig.String()})
	case err := <-errCh:
		logger.Error("server error", map[string]interface{}{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", map[string]interface{}{"error": err.Error()})
	}
}

// connectStore dials Redis with exponential backoff so the service
// survives the store coming up after it in orchestrated environments.
func connectStore(cfg redisrepo.Config, logger observability.Logger) (*goredis.Client, error) {
	var client *goredis.Client

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 30 * time.Second

	err := backoff.RetryNotify(
		func() error {
			var err error
			client, err = redisrepo.NewClient(cfg)
			return err
		},
		policy,
		func(err error, next time.Duration) {
			logger.Warn("store not reachable, retrying", map[string]interface{}{
				"error":    err.Error(),
				"retry_in": next.String(),
			})
		},
	)
	return client, err
}
