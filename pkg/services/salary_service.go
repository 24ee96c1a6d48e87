package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/salesworks/sales-engine/pkg/models"
	"github.com/salesworks/sales-engine/pkg/repositories"
)

var oneHundred = decimal.NewFromInt(100)

// SalaryService computes and persists monthly agent salary figures:
// total = base + commission + bonus - penalty. Recomputation upserts,
// so repeating a month is safe.
type SalaryService interface {
	Calculate(ctx context.Context, agentID uuid.UUID, year, month int, overrides models.SalaryOverrides) (*models.SalaryCalculation, error)
	Get(ctx context.Context, agentID uuid.UUID, year, month int) (*models.SalaryCalculation, error)
}

type salaryService struct {
	agents   repositories.AgentRepository
	sales    repositories.SaleRepository
	salaries repositories.SalaryRepository
	logger   *zap.Logger
}

// NewSalaryService creates a new SalaryService.
func NewSalaryService(
	agents repositories.AgentRepository,
	sales repositories.SaleRepository,
	salaries repositories.SalaryRepository,
	logger *zap.Logger,
) SalaryService {
	return &salaryService{
		agents:   agents,
		sales:    sales,
		salaries: salaries,
		logger:   logger.Named("salary"),
	}
}

var _ SalaryService = (*salaryService)(nil)

func (s *salaryService) Calculate(ctx context.Context, agentID uuid.UUID, year, month int, overrides models.SalaryOverrides) (*models.SalaryCalculation, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}
	if year < 2000 || year > time.Now().Year()+1 {
		return nil, fmt.Errorf("invalid year %d", year)
	}
	if overrides.Bonus != nil && overrides.Bonus.IsNegative() {
		return nil, fmt.Errorf("bonus override must not be negative")
	}
	if overrides.Penalty != nil && overrides.Penalty.IsNegative() {
		return nil, fmt.Errorf("penalty must not be negative")
	}

	agent, err := s.agents.GetByID(ctx, agentID)
	if err != nil {
		return nil, err
	}

	sales, err := s.sales.ListByAgentMonth(ctx, agentID, year, month)
	if err != nil {
		return nil, err
	}

	salesAmount := decimal.Zero
	for _, sale := range sales {
		salesAmount = salesAmount.Add(sale.TotalAmount)
	}

	commission := salesAmount.Mul(agent.CommissionRate).Div(oneHundred)

	bonus := decimal.Zero
	if salesAmount.GreaterThanOrEqual(agent.BonusThreshold) {
		bonus = agent.BonusAmount
	}
	if overrides.Bonus != nil {
		// Manual override takes precedence over the threshold rule.
		bonus = *overrides.Bonus
	}

	penalty := decimal.Zero
	if overrides.Penalty != nil {
		penalty = *overrides.Penalty
	}

	calc := &models.SalaryCalculation{
		AgentID:     agentID,
		Year:        year,
		Month:       month,
		SalesAmount: salesAmount,
		Commission:  commission,
		Bonus:       bonus,
		Penalty:     penalty,
		TotalSalary: agent.BaseSalary.Add(commission).Add(bonus).Sub(penalty),
	}

	if err := s.salaries.Upsert(ctx, calc); err != nil {
		return nil, err
	}

	s.logger.Info("salary calculated",
		zap.String("agent_id", agentID.String()),
		zap.Int("year", year),
		zap.Int("month", month),
		zap.String("sales_amount", salesAmount.String()),
		zap.String("total_salary", calc.TotalSalary.String()))

	return calc, nil
}

func (s *salaryService) Get(ctx context.Context, agentID uuid.UUID, year, month int) (*models.SalaryCalculation, error) {
	return s.salaries.GetByAgentPeriod(ctx, agentID, year, month)
}
