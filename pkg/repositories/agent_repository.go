package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/salesworks/sales-engine/pkg/apperrors"
	"github.com/salesworks/sales-engine/pkg/database"
	"github.com/salesworks/sales-engine/pkg/models"
)

// AgentRepository provides access to sales agents and their pay terms.
type AgentRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	UpdatePayTerms(ctx context.Context, agent *models.Agent) error
}

type agentRepository struct {
	db *database.DB
}

// NewAgentRepository creates a new AgentRepository.
func NewAgentRepository(db *database.DB) AgentRepository {
	return &agentRepository{db: db}
}

var _ AgentRepository = (*agentRepository)(nil)

func (r *agentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Agent, error) {
	query := `
		SELECT id, name, normalized_name, base_salary, commission_rate,
		       bonus_threshold, bonus_amount, created_at, updated_at
		FROM agents
		WHERE id = $1`

	var a models.Agent
	err := r.db.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Name, &a.NormalizedName, &a.BaseSalary, &a.CommissionRate,
		&a.BonusThreshold, &a.BonusAmount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}
	return &a, nil
}

func (r *agentRepository) UpdatePayTerms(ctx context.Context, agent *models.Agent) error {
	query := `
		UPDATE agents
		SET base_salary = $2, commission_rate = $3, bonus_threshold = $4,
		    bonus_amount = $5, updated_at = now()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.QueryRow(ctx, query,
		agent.ID, agent.BaseSalary, agent.CommissionRate,
		agent.BonusThreshold, agent.BonusAmount,
	).Scan(&agent.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to update agent pay terms: %w", err)
	}
	return nil
}
