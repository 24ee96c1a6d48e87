package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/salesworks/sales-engine/pkg/database"
	"github.com/salesworks/sales-engine/pkg/models"
)

// SaleRepository persists sales and their items. Each sale is created
// in its own transaction (one row-group, one unit of work); there is no
// whole-run transaction by design.
type SaleRepository interface {
	// Create persists the sale and its items. dedupeKeys aligns with
	// sale.Items by position.
	Create(ctx context.Context, sale *models.Sale, sourceID string, dedupeKeys []string) error
	DedupeKeyExists(ctx context.Context, sourceID, dedupeKey string) (bool, error)
	ListByPeriod(ctx context.Context, from, to time.Time) ([]*models.Sale, error)
	ListByAgentMonth(ctx context.Context, agentID uuid.UUID, year, month int) ([]*models.Sale, error)
}

type saleRepository struct {
	db *database.DB
}

// NewSaleRepository creates a new SaleRepository.
func NewSaleRepository(db *database.DB) SaleRepository {
	return &saleRepository{db: db}
}

var _ SaleRepository = (*saleRepository)(nil)

func (r *saleRepository) Create(ctx context.Context, sale *models.Sale, sourceID string, dedupeKeys []string) error {
	if len(dedupeKeys) != len(sale.Items) {
		return fmt.Errorf("dedupe keys (%d) do not match items (%d)", len(dedupeKeys), len(sale.Items))
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin sale transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()

	query := `
		INSERT INTO sales (customer_id, agent_id, sale_date, discount,
		                   total_amount, status, source_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	err = tx.QueryRow(ctx, query,
		sale.CustomerID,
		sale.AgentID,
		sale.SaleDate,
		sale.Discount,
		sale.TotalAmount,
		sale.Status,
		sourceID,
		now,
	).Scan(&sale.ID)
	if err != nil {
		return fmt.Errorf("failed to create sale: %w", err)
	}
	sale.CreatedAt = now

	itemQuery := `
		INSERT INTO sale_items (sale_id, product_id, position, quantity,
		                        unit_price, discount, amount, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	for i, item := range sale.Items {
		_, err = tx.Exec(ctx, itemQuery,
			sale.ID, item.ProductID, i, item.Quantity,
			item.UnitPrice, item.Discount, item.Amount, dedupeKeys[i])
		if err != nil {
			return fmt.Errorf("failed to create sale item %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit sale: %w", err)
	}
	return nil
}

func (r *saleRepository) DedupeKeyExists(ctx context.Context, sourceID, dedupeKey string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM sale_items si
			JOIN sales s ON s.id = si.sale_id
			WHERE s.source_id = $1 AND si.dedupe_key = $2
		)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, sourceID, dedupeKey).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check dedupe key: %w", err)
	}
	return exists, nil
}

func (r *saleRepository) ListByPeriod(ctx context.Context, from, to time.Time) ([]*models.Sale, error) {
	query := `
		SELECT id, customer_id, agent_id, sale_date, discount,
		       total_amount, status, created_at
		FROM sales
		WHERE sale_date >= $1 AND sale_date <= $2
		ORDER BY sale_date, id`

	rows, err := r.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []*models.Sale
	byID := make(map[uuid.UUID]*models.Sale)
	for rows.Next() {
		var s models.Sale
		if err := rows.Scan(&s.ID, &s.CustomerID, &s.AgentID, &s.SaleDate,
			&s.Discount, &s.TotalAmount, &s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, &s)
		byID[s.ID] = &s
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sales: %w", err)
	}

	if len(sales) == 0 {
		return sales, nil
	}
	if err := r.attachItems(ctx, byID); err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *saleRepository) ListByAgentMonth(ctx context.Context, agentID uuid.UUID, year, month int) ([]*models.Sale, error) {
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, -1)

	query := `
		SELECT id, customer_id, agent_id, sale_date, discount,
		       total_amount, status, created_at
		FROM sales
		WHERE agent_id = $1 AND sale_date >= $2 AND sale_date <= $3
		ORDER BY sale_date, id`

	rows, err := r.db.Query(ctx, query, agentID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query agent sales: %w", err)
	}
	defer rows.Close()

	var sales []*models.Sale
	for rows.Next() {
		var s models.Sale
		if err := rows.Scan(&s.ID, &s.CustomerID, &s.AgentID, &s.SaleDate,
			&s.Discount, &s.TotalAmount, &s.Status, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating agent sales: %w", err)
	}
	return sales, nil
}

// attachItems loads items for the given sales in one query, preserving
// source row order via the position column.
func (r *saleRepository) attachItems(ctx context.Context, byID map[uuid.UUID]*models.Sale) error {
	ids := make([]uuid.UUID, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}

	query := `
		SELECT sale_id, product_id, quantity, unit_price, discount, amount
		FROM sale_items
		WHERE sale_id = ANY($1)
		ORDER BY sale_id, position`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return fmt.Errorf("failed to query sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var saleID uuid.UUID
		var item models.SaleItem
		if err := rows.Scan(&saleID, &item.ProductID, &item.Quantity,
			&item.UnitPrice, &item.Discount, &item.Amount); err != nil {
			return fmt.Errorf("failed to scan sale item: %w", err)
		}
		if sale, ok := byID[saleID]; ok {
			sale.Items = append(sale.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating sale items: %w", err)
	}
	return nil
}
