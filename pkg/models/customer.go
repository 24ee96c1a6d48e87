package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a buying entity reconciled across imports.
// NormalizedName is the deduplication key and must be unique
// among active customers.
type Customer struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	NormalizedName string    `json:"normalized_name"`
	Region         string    `json:"region,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
