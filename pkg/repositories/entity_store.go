package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/salesworks/sales-engine/pkg/database"
	"github.com/salesworks/sales-engine/pkg/models"
)

// EntityStore provides the name-keyed lookup and creation used by the
// entity resolver. Matches are returned ordered by id ascending so the
// resolver's first-match policy is deterministic.
type EntityStore interface {
	FindByNormalizedName(ctx context.Context, kind models.EntityKind, normalizedName string) ([]models.EntityRef, error)
	CreateFromImport(ctx context.Context, kind models.EntityKind, name, normalizedName string) (uuid.UUID, error)
}

type entityStore struct {
	db *database.DB
}

// NewEntityStore creates a new EntityStore backed by PostgreSQL.
func NewEntityStore(db *database.DB) EntityStore {
	return &entityStore{db: db}
}

var _ EntityStore = (*entityStore)(nil)

func tableFor(kind models.EntityKind) (string, error) {
	switch kind {
	case models.KindCustomer:
		return "customers", nil
	case models.KindProduct:
		return "products", nil
	case models.KindAgent:
		return "agents", nil
	default:
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}
}

func (s *entityStore) FindByNormalizedName(ctx context.Context, kind models.EntityKind, normalizedName string) ([]models.EntityRef, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT id, name
		FROM %s
		WHERE normalized_name = $1
		ORDER BY id`, table)

	rows, err := s.db.Query(ctx, query, normalizedName)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s by normalized name: %w", table, err)
	}
	defer rows.Close()

	var refs []models.EntityRef
	for rows.Next() {
		var ref models.EntityRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s rows: %w", table, err)
	}

	return refs, nil
}

// CreateFromImport inserts a new entity with the normalized name as its
// dedupe key. A concurrent insert of the same key loses the unique
// constraint race and falls back to fetching the winner, so callers
// always get exactly one id per key.
func (s *entityStore) CreateFromImport(ctx context.Context, kind models.EntityKind, name, normalizedName string) (uuid.UUID, error) {
	table, err := tableFor(kind)
	if err != nil {
		return uuid.Nil, err
	}

	now := time.Now().UTC()

	query := fmt.Sprintf(`
		INSERT INTO %s (name, normalized_name, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (normalized_name) DO NOTHING
		RETURNING id`, table)

	var id uuid.UUID
	err = s.db.QueryRow(ctx, query, name, normalizedName, now).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != pgx.ErrNoRows {
		return uuid.Nil, fmt.Errorf("failed to create %s: %w", table, err)
	}

	// Conflict: another resolver created the entity first.
	refs, err := s.FindByNormalizedName(ctx, kind, normalizedName)
	if err != nil {
		return uuid.Nil, err
	}
	if len(refs) == 0 {
		return uuid.Nil, fmt.Errorf("entity %q vanished after insert conflict", normalizedName)
	}
	return refs[0].ID, nil
}
