package repository

import "errors"

// Common repository errors
var (
	ErrNotFound       = errors.New("entity not found")
	ErrDuplicate      = errors.New("entity already exists")
	ErrOptimisticLock = errors.New("optimistic lock failed")
)
