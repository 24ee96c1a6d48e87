package repositories

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/salesworks/sales-engine/pkg/apperrors"
	"github.com/salesworks/sales-engine/pkg/database"
	"github.com/salesworks/sales-engine/pkg/models"
)

// ImportRunRepository persists import runs as audit records. A run is
// written once, after it is finalized.
type ImportRunRepository interface {
	Save(ctx context.Context, run *models.ImportRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ImportRun, error)
}

type importRunRepository struct {
	db *database.DB
}

// NewImportRunRepository creates a new ImportRunRepository.
func NewImportRunRepository(db *database.DB) ImportRunRepository {
	return &importRunRepository{db: db}
}

var _ ImportRunRepository = (*importRunRepository)(nil)

func (r *importRunRepository) Save(ctx context.Context, run *models.ImportRun) error {
	rowErrors, err := json.Marshal(run.RowErrors)
	if err != nil {
		return fmt.Errorf("failed to marshal row errors: %w", err)
	}
	warnings, err := json.Marshal(run.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	query := `
		INSERT INTO import_runs (
			id, source_id, state,
			entities_created, entities_updated, entities_skipped,
			sales_created, sales_updated, sales_skipped,
			row_errors, warnings, started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.Exec(ctx, query,
		run.ID, run.SourceID, run.State,
		run.Entities.Created, run.Entities.Updated, run.Entities.Skipped,
		run.Sales.Created, run.Sales.Updated, run.Sales.Skipped,
		rowErrors, warnings, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("failed to save import run: %w", err)
	}
	return nil
}

func (r *importRunRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ImportRun, error) {
	query := `
		SELECT id, source_id, state,
		       entities_created, entities_updated, entities_skipped,
		       sales_created, sales_updated, sales_skipped,
		       row_errors, warnings, started_at, finished_at
		FROM import_runs
		WHERE id = $1`

	var run models.ImportRun
	var rowErrors, warnings []byte
	err := r.db.QueryRow(ctx, query, id).Scan(
		&run.ID, &run.SourceID, &run.State,
		&run.Entities.Created, &run.Entities.Updated, &run.Entities.Skipped,
		&run.Sales.Created, &run.Sales.Updated, &run.Sales.Skipped,
		&rowErrors, &warnings, &run.StartedAt, &run.FinishedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get import run: %w", err)
	}

	if err := json.Unmarshal(rowErrors, &run.RowErrors); err != nil {
		return nil, fmt.Errorf("failed to unmarshal row errors: %w", err)
	}
	if err := json.Unmarshal(warnings, &run.Warnings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal warnings: %w", err)
	}
	return &run, nil
}
