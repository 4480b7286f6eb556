package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskNotification is an in-app message shown to the customer when a worker
// accepts, completes, or rejects one of their tasks.
type TaskNotification struct {
	ID         uuid.UUID `json:"id"`
	TaskID     uuid.UUID `json:"task_id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
