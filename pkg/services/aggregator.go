package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salesworks/sales-engine/pkg/models"
)

// ResolvedRow is one source row after normalization and entity
// resolution. CustomerKey and ProductKey carry the normalized names
// used for the duplicate-detection key.
type ResolvedRow struct {
	Index       int
	CustomerID  *uuid.UUID
	ProductID   *uuid.UUID
	AgentID     *uuid.UUID
	CustomerKey string
	ProductKey  string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Discount    decimal.Decimal
	Date        time.Time
}

// ItemRow pairs a resolved row with its computed sale item and the
// dedupe key identifying an already-persisted copy of the same row.
type ItemRow struct {
	Row       ResolvedRow
	Item      models.SaleItem
	DedupeKey string
}

// SaleDraft is an aggregated sale ready for persistence, with the
// dedupe keys and source row indexes of its items.
type SaleDraft struct {
	Sale       models.Sale
	DedupeKeys []string
	RowIndexes []int
}

// Aggregator groups resolved rows into sales and computes monetary
// totals. It is stateless; validation failures come back as row-level
// errors and floored amounts as warnings, never as Go errors.
type Aggregator struct{}

// NewAggregator creates a new Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// BuildItems validates each row and computes its sale item. Rows with
// non-positive quantity or negative unit price are rejected with a
// row-level error. A line amount that would go negative is floored at
// zero and reported as a computation anomaly.
func (a *Aggregator) BuildItems(rows []ResolvedRow) ([]ItemRow, []models.RowError, []models.Warning) {
	var items []ItemRow
	var rowErrors []models.RowError
	var warnings []models.Warning

	for _, row := range rows {
		if !row.Quantity.IsPositive() {
			rowErrors = append(rowErrors, models.RowError{
				RowIndex: row.Index,
				Message:  fmt.Sprintf("quantity must be positive, got %s", row.Quantity),
			})
			continue
		}
		if row.UnitPrice.IsNegative() {
			rowErrors = append(rowErrors, models.RowError{
				RowIndex: row.Index,
				Message:  fmt.Sprintf("unit price must not be negative, got %s", row.UnitPrice),
			})
			continue
		}

		amount := row.Quantity.Mul(row.UnitPrice).Sub(row.Discount)
		if amount.IsNegative() {
			warnings = append(warnings, models.Warning{
				Kind:     models.WarningComputationAnomaly,
				RowIndex: row.Index,
				Message:  fmt.Sprintf("line amount %s floored to 0", amount),
			})
			amount = decimal.Zero
		}

		items = append(items, ItemRow{
			Row: row,
			Item: models.SaleItem{
				ProductID: row.ProductID,
				Quantity:  row.Quantity,
				UnitPrice: row.UnitPrice,
				Discount:  row.Discount,
				Amount:    amount,
			},
			DedupeKey: dedupeKey(row.CustomerKey, row.ProductKey, row.Date, amount),
		})
	}

	return items, rowErrors, warnings
}

// Group collects item rows sharing the same (customer, agent, date)
// into one sale; rows without a grouping key become singleton sales.
// Items keep their source row order within a sale. Sale output order
// carries no meaning.
func (a *Aggregator) Group(items []ItemRow) ([]*SaleDraft, []models.Warning) {
	var drafts []*SaleDraft
	var warnings []models.Warning
	byKey := make(map[string]*SaleDraft)

	for _, ir := range items {
		key := groupKey(ir.Row)
		draft, ok := byKey[key]
		if !ok {
			draft = &SaleDraft{
				Sale: models.Sale{
					CustomerID: ir.Row.CustomerID,
					AgentID:    ir.Row.AgentID,
					SaleDate:   ir.Row.Date,
					Discount:   decimal.Zero,
					Status:     models.SaleStatusCompleted,
				},
			}
			drafts = append(drafts, draft)
			if key != "" {
				byKey[key] = draft
			}
		}
		draft.Sale.Items = append(draft.Sale.Items, ir.Item)
		draft.DedupeKeys = append(draft.DedupeKeys, ir.DedupeKey)
		draft.RowIndexes = append(draft.RowIndexes, ir.Row.Index)
	}

	for _, draft := range drafts {
		total := decimal.Zero
		for _, item := range draft.Sale.Items {
			total = total.Add(item.Amount)
		}
		total = total.Sub(draft.Sale.Discount)
		if total.IsNegative() {
			warnings = append(warnings, models.Warning{
				Kind:    models.WarningComputationAnomaly,
				Message: fmt.Sprintf("sale total %s floored to 0", total),
			})
			total = decimal.Zero
		}
		draft.Sale.TotalAmount = total
	}

	return drafts, warnings
}

// Aggregate is the one-shot form of BuildItems followed by Group.
func (a *Aggregator) Aggregate(rows []ResolvedRow) ([]*SaleDraft, []models.RowError, []models.Warning) {
	items, rowErrors, warnings := a.BuildItems(rows)
	drafts, groupWarnings := a.Group(items)
	return drafts, rowErrors, append(warnings, groupWarnings...)
}

// groupKey identifies rows belonging to one sale. Rows with neither
// customer nor agent have no identifiable grouping key and stay
// singletons.
func groupKey(row ResolvedRow) string {
	if row.CustomerID == nil && row.AgentID == nil {
		return ""
	}
	var b strings.Builder
	if row.CustomerID != nil {
		b.WriteString(row.CustomerID.String())
	}
	b.WriteByte('|')
	if row.AgentID != nil {
		b.WriteString(row.AgentID.String())
	}
	b.WriteByte('|')
	b.WriteString(row.Date.Format("2006-01-02"))
	return b.String()
}

// dedupeKey identifies an incoming row as a copy of an already
// persisted sale line: (normalized customer, normalized product or
// none, date, amount).
func dedupeKey(customerKey, productKey string, date time.Time, amount decimal.Decimal) string {
	return strings.Join([]string{
		customerKey,
		productKey,
		date.Format("2006-01-02"),
		amount.String(),
	}, "|")
}
