package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/salesworks/sales-engine/pkg/database"
	"github.com/salesworks/sales-engine/pkg/models"
)

// CustomerRepository provides read access to reconciled customers.
type CustomerRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Customer, error)
}

type customerRepository struct {
	db *database.DB
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(db *database.DB) CustomerRepository {
	return &customerRepository{db: db}
}

var _ CustomerRepository = (*customerRepository)(nil)

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	query := `
		SELECT id, name, normalized_name, region, created_at, updated_at
		FROM customers
		WHERE id = $1`

	var c models.Customer
	err := r.db.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.NormalizedName, &c.Region, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return &c, nil
}

func (r *customerRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Customer, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*models.Customer{}, nil
	}

	query := `
		SELECT id, name, normalized_name, region, created_at, updated_at
		FROM customers
		WHERE id = ANY($1)`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query customers: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID]*models.Customer, len(ids))
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.NormalizedName, &c.Region, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan customer: %w", err)
		}
		result[c.ID] = &c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating customers: %w", err)
	}
	return result, nil
}
