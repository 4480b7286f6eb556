package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a task requester. Profiles are maintained elsewhere; the
// matching code only reads them.
type Customer struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
