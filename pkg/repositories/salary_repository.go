package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/salesworks/sales-engine/pkg/apperrors"
	"github.com/salesworks/sales-engine/pkg/database"
	"github.com/salesworks/sales-engine/pkg/models"
)

// SalaryRepository persists derived monthly salary figures. Upsert is
// keyed by (agent, year, month) so recomputation overwrites the prior
// figure instead of duplicating it. GetByAgentPeriod returns
// apperrors.ErrNotFound for periods never calculated.
type SalaryRepository interface {
	Upsert(ctx context.Context, calc *models.SalaryCalculation) error
	GetByAgentPeriod(ctx context.Context, agentID uuid.UUID, year, month int) (*models.SalaryCalculation, error)
}

type salaryRepository struct {
	db *database.DB
}

// NewSalaryRepository creates a new SalaryRepository.
func NewSalaryRepository(db *database.DB) SalaryRepository {
	return &salaryRepository{db: db}
}

var _ SalaryRepository = (*salaryRepository)(nil)

func (r *salaryRepository) Upsert(ctx context.Context, calc *models.SalaryCalculation) error {
	now := time.Now().UTC()

	query := `
		INSERT INTO salary_calculations (
			id, agent_id, year, month, sales_amount, commission,
			bonus, penalty, total_salary, created_at, updated_at
		) VALUES (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		ON CONFLICT (agent_id, year, month) DO UPDATE SET
			sales_amount = EXCLUDED.sales_amount,
			commission = EXCLUDED.commission,
			bonus = EXCLUDED.bonus,
			penalty = EXCLUDED.penalty,
			total_salary = EXCLUDED.total_salary,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		calc.AgentID, calc.Year, calc.Month, calc.SalesAmount,
		calc.Commission, calc.Bonus, calc.Penalty, calc.TotalSalary, now,
	).Scan(&calc.ID, &calc.CreatedAt, &calc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert salary calculation: %w", err)
	}
	return nil
}

func (r *salaryRepository) GetByAgentPeriod(ctx context.Context, agentID uuid.UUID, year, month int) (*models.SalaryCalculation, error) {
	query := `
		SELECT id, agent_id, year, month, sales_amount, commission,
		       bonus, penalty, total_salary, created_at, updated_at
		FROM salary_calculations
		WHERE agent_id = $1 AND year = $2 AND month = $3`

	var c models.SalaryCalculation
	err := r.db.QueryRow(ctx, query, agentID, year, month).Scan(
		&c.ID, &c.AgentID, &c.Year, &c.Month, &c.SalesAmount,
		&c.Commission, &c.Bonus, &c.Penalty, &c.TotalSalary,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get salary calculation: %w", err)
	}
	return &c, nil
}
