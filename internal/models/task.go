package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Task status enum. A task row is one worker's copy of a customer request;
// all copies share a request_id and at most one of them is ever accepted.
const (
	TaskStatusRequested  = "requested"
	TaskStatusInProgress = "in-progress"
	TaskStatusCompleted  = "completed"
	TaskStatusRejected   = "rejected"
	TaskStatusVanished   = "vanished"
)

type Task struct {
	ID          uuid.UUID        `json:"id"`
	RequestID   *uuid.UUID       `json:"request_id,omitempty"`
	CustomerID  uuid.UUID        `json:"customer_id"`
	WorkerID    *uuid.UUID       `json:"worker_id,omitempty"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	StartTime   time.Time        `json:"start_time"`
	EndTime     time.Time        `json:"end_time"`
	Location    string           `json:"location"`
	Status      string           `json:"status"`
	Rating      *int             `json:"rating,omitempty"` // 0–5, set once completed
	Review      string           `json:"review,omitempty"`
	HourlyRate  *decimal.Decimal `json:"hourly_rate,omitempty"`
	TotalCost   *decimal.Decimal `json:"total_cost,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TaskDraft carries the validated fields of a task-creation request before
// any worker has been selected. The dispatcher copies it into one Task row
// per candidate worker.
type TaskDraft struct {
	CustomerID  uuid.UUID `json:"customer_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Location    string    `json:"location"`
}
