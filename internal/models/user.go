package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a board member eligible for task assignment. Authentication
// and session issuance live outside this service; users here are the
// assignment population only.
type User struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
