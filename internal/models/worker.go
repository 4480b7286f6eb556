package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Worker is a service provider profile. Skills is a free-text keyword list
// maintained through the profile workflow; matching treats it as a plain
// substring target. The core reads workers, it never mutates them.
type Worker struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Location        string          `json:"location"`
	Skills          string          `json:"skills"`
	HourlyRate      decimal.Decimal `json:"hourly_rate"`
	IsAvailable     bool            `json:"is_available"`
	ApprovedByAdmin bool            `json:"approved_by_admin"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
