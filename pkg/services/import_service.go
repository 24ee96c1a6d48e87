package services

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/salesworks/sales-engine/pkg/models"
	"github.com/salesworks/sales-engine/pkg/normalize"
	"github.com/salesworks/sales-engine/pkg/repositories"
	"github.com/salesworks/sales-engine/pkg/spreadsheet"
)

// dateLayouts accepted for the sale date column, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02-01-2006",
	"2006/01/02",
	"02/01/2006",
	"2 Jan 2006",
	time.RFC3339,
}

// ImportService coordinates one import run end to end: read, resolve,
// aggregate, persist, audit. Row-level failures accumulate on the run;
// only format-level failures abort it.
type ImportService interface {
	Import(ctx context.Context, payload io.Reader, filename, sourceID string) (*models.Result, error)
	GetRun(ctx context.Context, id uuid.UUID) (*models.ImportRun, error)
}

type importService struct {
	entities   repositories.EntityStore
	sales      repositories.SaleRepository
	runs       repositories.ImportRunRepository
	aggregator *Aggregator
	workers    int
	logger     *zap.Logger
}

// NewImportService creates a new ImportService. workers bounds the
// pool used for per-row normalization and resolution.
func NewImportService(
	entities repositories.EntityStore,
	sales repositories.SaleRepository,
	runs repositories.ImportRunRepository,
	workers int,
	logger *zap.Logger,
) ImportService {
	if workers < 1 {
		workers = 1
	}
	return &importService{
		entities:   entities,
		sales:      sales,
		runs:       runs,
		aggregator: NewAggregator(),
		workers:    workers,
		logger:     logger.Named("import"),
	}
}

var _ ImportService = (*importService)(nil)

// rowOutcome is what one worker produces for one source row.
type rowOutcome struct {
	resolved        *ResolvedRow
	rowErr          *models.RowError
	warnings        []models.Warning
	entitiesCreated int
}

func (s *importService) Import(ctx context.Context, payload io.Reader, filename, sourceID string) (*models.Result, error) {
	run := &models.ImportRun{
		ID:        uuid.New(),
		SourceID:  sourceID,
		State:     models.ImportStateStarted,
		StartedAt: time.Now().UTC(),
	}
	s.logger.Info("import run started",
		zap.String("run_id", run.ID.String()),
		zap.String("source_id", sourceID),
		zap.String("filename", filename))

	run.State = models.ImportStateReading
	rows, err := spreadsheet.Parse(payload, filename)
	if err != nil {
		return nil, s.fail(ctx, run, fmt.Errorf("failed to read source: %w", err))
	}

	run.State = models.ImportStateNormalizing
	resolver := NewResolver(s.entities, s.logger)

	run.State = models.ImportStateResolving
	outcomes := s.resolveRows(ctx, resolver, rows)
	if err := ctx.Err(); err != nil {
		return nil, s.fail(ctx, run, err)
	}

	var resolved []ResolvedRow
	for _, out := range outcomes {
		run.Entities.Created += out.entitiesCreated
		run.Warnings = append(run.Warnings, out.warnings...)
		if out.rowErr != nil {
			run.RowErrors = append(run.RowErrors, *out.rowErr)
			continue
		}
		resolved = append(resolved, *out.resolved)
	}

	run.State = models.ImportStateAggregating
	items, rowErrors, warnings := s.aggregator.BuildItems(resolved)
	run.RowErrors = append(run.RowErrors, rowErrors...)
	run.Warnings = append(run.Warnings, warnings...)

	fresh, skipped, err := s.dropDuplicates(ctx, sourceID, items)
	if err != nil {
		return nil, s.fail(ctx, run, err)
	}
	run.Sales.Skipped = skipped

	drafts, groupWarnings := s.aggregator.Group(fresh)
	run.Warnings = append(run.Warnings, groupWarnings...)

	run.State = models.ImportStatePersisting
	for _, draft := range drafts {
		// Abort is allowed only between sales, never mid-sale.
		if err := ctx.Err(); err != nil {
			return nil, s.fail(ctx, run, err)
		}
		if err := s.persistDraft(ctx, sourceID, draft, run); err != nil {
			return nil, s.fail(ctx, run, err)
		}
	}

	run.State = models.ImportStateCompleted
	s.finalize(ctx, run)

	s.logger.Info("import run completed",
		zap.String("run_id", run.ID.String()),
		zap.Int("sales_created", run.Sales.Created),
		zap.Int("sales_skipped", run.Sales.Skipped),
		zap.Int("entities_created", run.Entities.Created),
		zap.Int("row_errors", len(run.RowErrors)))

	return resultOf(run), nil
}

func (s *importService) GetRun(ctx context.Context, id uuid.UUID) (*models.ImportRun, error) {
	return s.runs.GetByID(ctx, id)
}

// resolveRows fans the source rows out over the worker pool. Outcomes
// are written by row position, so the caller sees source order
// regardless of scheduling.
func (s *importService) resolveRows(ctx context.Context, resolver *Resolver, rows []spreadsheet.Row) []rowOutcome {
	outcomes := make([]rowOutcome, len(rows))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				// Keep draining after cancellation so the producer
				// never blocks on the channel; the caller aborts once
				// the pool has wound down.
				if ctx.Err() != nil {
					continue
				}
				outcomes[i] = s.processRow(ctx, resolver, rows[i])
			}
		}()
	}
	for i := range rows {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return outcomes
}

// processRow validates one raw row and resolves its entities.
func (s *importService) processRow(ctx context.Context, resolver *Resolver, row spreadsheet.Row) rowOutcome {
	rowErr := func(format string, args ...any) rowOutcome {
		return rowOutcome{rowErr: &models.RowError{
			RowIndex: row.Index,
			Message:  fmt.Sprintf(format, args...),
		}}
	}

	customerName := row.Get(spreadsheet.ColCustomer)
	if normalize.Name(customerName) == "" {
		return rowErr("missing customer name")
	}

	quantity, err := parseDecimal(row.Get(spreadsheet.ColQuantity))
	if err != nil {
		return rowErr("invalid quantity %q", row.Get(spreadsheet.ColQuantity))
	}
	unitPrice, err := parseDecimal(row.Get(spreadsheet.ColUnitPrice))
	if err != nil {
		return rowErr("invalid unit price %q", row.Get(spreadsheet.ColUnitPrice))
	}

	discount := decimal.Zero
	if raw := row.Get(spreadsheet.ColDiscount); raw != "" {
		discount, err = parseDecimal(raw)
		if err != nil {
			return rowErr("invalid discount %q", raw)
		}
	}

	date, err := parseDate(row.Get(spreadsheet.ColDate))
	if err != nil {
		return rowErr("invalid date %q", row.Get(spreadsheet.ColDate))
	}

	out := rowOutcome{}
	resolved := ResolvedRow{
		Index:     row.Index,
		Quantity:  quantity,
		UnitPrice: unitPrice,
		Discount:  discount,
		Date:      date,
	}

	customer, err := resolver.Resolve(ctx, models.KindCustomer, customerName)
	if err != nil {
		return rowErr("failed to resolve customer: %v", err)
	}
	s.recordResolution(&out, customer, row.Index)
	resolved.CustomerID = &customer.ID
	resolved.CustomerKey = customer.Key

	if name := row.Get(spreadsheet.ColProduct); normalize.Name(name) != "" {
		product, err := resolver.Resolve(ctx, models.KindProduct, name)
		if err != nil {
			return rowErr("failed to resolve product: %v", err)
		}
		s.recordResolution(&out, product, row.Index)
		resolved.ProductID = &product.ID
		resolved.ProductKey = product.Key
	}

	if name := row.Get(spreadsheet.ColAgent); normalize.Name(name) != "" {
		agent, err := resolver.Resolve(ctx, models.KindAgent, name)
		if err != nil {
			return rowErr("failed to resolve agent: %v", err)
		}
		s.recordResolution(&out, agent, row.Index)
		resolved.AgentID = &agent.ID
	}

	out.resolved = &resolved
	return out
}

func (s *importService) recordResolution(out *rowOutcome, res Resolution, rowIndex int) {
	if res.Created {
		out.entitiesCreated++
	}
	if res.Warning != nil {
		w := *res.Warning
		w.RowIndex = rowIndex
		out.warnings = append(out.warnings, w)
	}
}

// dropDuplicates filters out item rows whose dedupe key already exists
// for this source, either persisted by a prior run or earlier in this
// one. Duplicates are counted, not errors.
func (s *importService) dropDuplicates(ctx context.Context, sourceID string, items []ItemRow) ([]ItemRow, int, error) {
	var fresh []ItemRow
	skipped := 0
	seen := make(map[string]bool)

	for _, ir := range items {
		if seen[ir.DedupeKey] {
			skipped++
			continue
		}
		exists, err := s.sales.DedupeKeyExists(ctx, sourceID, ir.DedupeKey)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to check duplicate for row %d: %w", ir.Row.Index, err)
		}
		if exists {
			skipped++
			continue
		}
		seen[ir.DedupeKey] = true
		fresh = append(fresh, ir)
	}

	return fresh, skipped, nil
}

// persistDraft writes one sale as its own unit of work.
func (s *importService) persistDraft(ctx context.Context, sourceID string, draft *SaleDraft, run *models.ImportRun) error {
	if err := s.sales.Create(ctx, &draft.Sale, sourceID, draft.DedupeKeys); err != nil {
		return fmt.Errorf("failed to persist sale for rows %v: %w", draft.RowIndexes, err)
	}
	run.Sales.Created++
	return nil
}

// fail finalizes the run in the Failed state. The audit record is
// written best-effort; the original error always wins.
func (s *importService) fail(ctx context.Context, run *models.ImportRun, err error) error {
	run.State = models.ImportStateFailed
	s.finalize(ctx, run)
	s.logger.Error("import run failed",
		zap.String("run_id", run.ID.String()),
		zap.String("source_id", run.SourceID),
		zap.Error(err))
	return err
}

// finalize stamps the finish time, orders the error list by row and
// saves the audit record.
func (s *importService) finalize(ctx context.Context, run *models.ImportRun) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	sort.SliceStable(run.RowErrors, func(i, j int) bool {
		return run.RowErrors[i].RowIndex < run.RowErrors[j].RowIndex
	})
	// The save must outlive request cancellation, or cancelled runs
	// would never leave an audit record.
	if err := s.runs.Save(context.WithoutCancel(ctx), run); err != nil {
		s.logger.Error("failed to save import run audit record",
			zap.String("run_id", run.ID.String()),
			zap.Error(err))
	}
}

func resultOf(run *models.ImportRun) *models.Result {
	return &models.Result{
		RunID:    run.ID,
		SourceID: run.SourceID,
		State:    run.State,
		Entities: run.Entities,
		Sales:    run.Sales,
		Errors:   run.RowErrors,
		Warnings: run.Warnings,
	}
}

// parseDecimal accepts both dot and comma decimal separators plus
// thousands separators, as seen in exported accounting files.
func parseDecimal(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty value")
	}
	s = strings.ReplaceAll(s, " ", "")
	if strings.Contains(s, ",") {
		if strings.Contains(s, ".") || strings.Count(s, ",") > 1 {
			// Comma is a thousands separator here.
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s, ",", ".")
		}
	}
	return decimal.NewFromString(s)
}

// parseDate tries the known layouts in order. The time component, if
// any, is dropped: sales are keyed by calendar date.
func parseDate(raw string) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
