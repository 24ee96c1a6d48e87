package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalaryCalculation is a derived monthly figure for one agent:
// total_salary = base_salary + commission + bonus - penalty.
type SalaryCalculation struct {
	ID          uuid.UUID       `json:"id"`
	AgentID     uuid.UUID       `json:"agent_id"`
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	SalesAmount decimal.Decimal `json:"sales_amount"`
	Commission  decimal.Decimal `json:"commission"`
	Bonus       decimal.Decimal `json:"bonus"`
	Penalty     decimal.Decimal `json:"penalty"`
	TotalSalary decimal.Decimal `json:"total_salary"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// SalaryOverrides carries manual adjustments supplied by the caller.
// A non-nil Bonus replaces the threshold-computed bonus; Penalty
// defaults to zero when nil.
type SalaryOverrides struct {
	Bonus   *decimal.Decimal `json:"bonus,omitempty"`
	Penalty *decimal.Decimal `json:"penalty,omitempty"`
}
