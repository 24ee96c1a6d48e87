package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Trend granularities.
const (
	GranularityDay   = "day"
	GranularityWeek  = "week"
	GranularityMonth = "month"
)

// DashboardMetrics summarizes sales over a period. AverageCheck is
// zero when the period has no sales.
type DashboardMetrics struct {
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalSales   int             `json:"total_sales"`
	AverageCheck decimal.Decimal `json:"average_check"`
}

// TrendBucket is one period bucket of the sales trend. Buckets with
// zero sales are omitted from trend output.
type TrendBucket struct {
	Period time.Time       `json:"period"`
	Amount decimal.Decimal `json:"amount"`
	Count  int             `json:"count"`
}

// CustomerRank is one entry of the top-customers ranking.
type CustomerRank struct {
	CustomerID uuid.UUID       `json:"customer_id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	SaleCount  int             `json:"sale_count"`
}

// ProductRank is one entry of the top-products ranking.
type ProductRank struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
	Amount    decimal.Decimal `json:"amount"`
}
