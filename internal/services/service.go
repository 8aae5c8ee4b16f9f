// Package services contains the task synchronization core: the version
// guard for optimistic concurrency, conflict resolution, smart
// assignment and the board-facing task service. Side effects
// (broadcast, activity recording) happen after a mutation commits and
// never feed failures back into the mutation path.
package services

import (
	"github.com/S-Corkum/taskboard/internal/observability"
)

// ServiceConfig provides common configuration for all services
type ServiceConfig struct {
	Logger observability.Logger
}

// BaseService provides common functionality for all services
type BaseService struct {
	config ServiceConfig
}

// NewBaseService creates a new base service
func NewBaseService(config ServiceConfig) BaseService {
	if config.Logger == nil {
		config.Logger = observability.NewNoopLogger()
	}
	return BaseService{config: config}
}
