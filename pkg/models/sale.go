package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sale statuses.
const (
	SaleStatusCompleted = "completed"
	SaleStatusPending   = "pending"
	SaleStatusCancelled = "cancelled"
)

// Sale is one transaction. Customer and agent are optional; a sale
// with neither still participates in revenue metrics. TotalAmount is
// the sum of item amounts minus the sale-level discount, floored at
// zero. Items belong to the sale and have no identity outside it.
type Sale struct {
	ID          uuid.UUID       `json:"id"`
	CustomerID  *uuid.UUID      `json:"customer_id,omitempty"`
	AgentID     *uuid.UUID      `json:"agent_id,omitempty"`
	SaleDate    time.Time       `json:"sale_date"`
	Discount    decimal.Decimal `json:"discount"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	Items       []SaleItem      `json:"items"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SaleItem is one line of a sale. Amount is quantity*unit_price minus
// the line discount, floored at zero.
type SaleItem struct {
	ProductID *uuid.UUID      `json:"product_id,omitempty"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	Amount    decimal.Decimal `json:"amount"`
}
