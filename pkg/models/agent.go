package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Agent is a sales representative. CommissionRate is a percentage
// in [0, 100]; monetary fields are non-negative.
type Agent struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	NormalizedName string          `json:"normalized_name"`
	BaseSalary     decimal.Decimal `json:"base_salary"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	BonusThreshold decimal.Decimal `json:"bonus_threshold"`
	BonusAmount    decimal.Decimal `json:"bonus_amount"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
