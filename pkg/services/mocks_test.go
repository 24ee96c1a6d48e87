package services

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/salesworks/sales-engine/pkg/apperrors"
	"github.com/salesworks/sales-engine/pkg/models"
)

// mockEntityStore implements repositories.EntityStore in memory. It
// mimics the unique-constraint behavior of the real store: creating an
// existing key returns the winner instead of inserting a duplicate.
type mockEntityStore struct {
	mu       sync.Mutex
	entities map[models.EntityKind]map[string][]models.EntityRef
	creates  int
	findErr  error
}

func newMockEntityStore() *mockEntityStore {
	return &mockEntityStore{
		entities: make(map[models.EntityKind]map[string][]models.EntityRef),
	}
}

// seed registers a pre-existing entity, allowing duplicate normalized
// keys to model defective stores.
func (m *mockEntityStore) seed(kind models.EntityKind, key string, ref models.EntityRef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entities[kind] == nil {
		m.entities[kind] = make(map[string][]models.EntityRef)
	}
	m.entities[kind][key] = append(m.entities[kind][key], ref)
}

func (m *mockEntityStore) FindByNormalizedName(_ context.Context, kind models.EntityKind, key string) ([]models.EntityRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	refs := append([]models.EntityRef(nil), m.entities[kind][key]...)
	sort.Slice(refs, func(i, j int) bool {
		return bytes.Compare(refs[i].ID[:], refs[j].ID[:]) < 0
	})
	return refs, nil
}

func (m *mockEntityStore) CreateFromImport(_ context.Context, kind models.EntityKind, name, key string) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing := m.entities[kind][key]; len(existing) > 0 {
		return existing[0].ID, nil
	}
	if m.entities[kind] == nil {
		m.entities[kind] = make(map[string][]models.EntityRef)
	}
	ref := models.EntityRef{ID: uuid.New(), Name: name}
	m.entities[kind][key] = []models.EntityRef{ref}
	m.creates++
	return ref.ID, nil
}

// persistedSale pairs a stored sale with its source and dedupe keys.
type persistedSale struct {
	sale       models.Sale
	sourceID   string
	dedupeKeys []string
}

// mockSaleRepository implements repositories.SaleRepository in memory.
type mockSaleRepository struct {
	mu        sync.Mutex
	sales     []persistedSale
	createErr error
}

func (m *mockSaleRepository) Create(_ context.Context, sale *models.Sale, sourceID string, dedupeKeys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	sale.ID = uuid.New()
	sale.CreatedAt = time.Now()
	m.sales = append(m.sales, persistedSale{sale: *sale, sourceID: sourceID, dedupeKeys: dedupeKeys})
	return nil
}

func (m *mockSaleRepository) DedupeKeyExists(_ context.Context, sourceID, dedupeKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ps := range m.sales {
		if ps.sourceID != sourceID {
			continue
		}
		for _, key := range ps.dedupeKeys {
			if key == dedupeKey {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *mockSaleRepository) ListByPeriod(_ context.Context, from, to time.Time) ([]*models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Sale
	for i := range m.sales {
		s := m.sales[i].sale
		if s.SaleDate.Before(from) || s.SaleDate.After(to) {
			continue
		}
		result = append(result, &s)
	}
	return result, nil
}

func (m *mockSaleRepository) ListByAgentMonth(_ context.Context, agentID uuid.UUID, year, month int) ([]*models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*models.Sale
	for i := range m.sales {
		s := m.sales[i].sale
		if s.AgentID == nil || *s.AgentID != agentID {
			continue
		}
		if s.SaleDate.Year() != year || int(s.SaleDate.Month()) != month {
			continue
		}
		result = append(result, &s)
	}
	return result, nil
}

// mockImportRunRepository implements repositories.ImportRunRepository.
type mockImportRunRepository struct {
	mu   sync.Mutex
	runs []*models.ImportRun
}

func (m *mockImportRunRepository) Save(_ context.Context, run *models.ImportRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *run
	m.runs = append(m.runs, &copied)
	return nil
}

func (m *mockImportRunRepository) GetByID(_ context.Context, id uuid.UUID) (*models.ImportRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, run := range m.runs {
		if run.ID == id {
			return run, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

// mockAgentRepository implements repositories.AgentRepository.
type mockAgentRepository struct {
	agents map[uuid.UUID]*models.Agent
	getErr error
}

func (m *mockAgentRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Agent, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if a, ok := m.agents[id]; ok {
		return a, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockAgentRepository) UpdatePayTerms(_ context.Context, agent *models.Agent) error {
	m.agents[agent.ID] = agent
	return nil
}

// mockSalaryRepository implements repositories.SalaryRepository.
type mockSalaryRepository struct {
	calcs map[string]*models.SalaryCalculation
}

func salaryKey(agentID uuid.UUID, year, month int) string {
	return agentID.String() + "/" + time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

func (m *mockSalaryRepository) Upsert(_ context.Context, calc *models.SalaryCalculation) error {
	if m.calcs == nil {
		m.calcs = make(map[string]*models.SalaryCalculation)
	}
	if calc.ID == uuid.Nil {
		calc.ID = uuid.New()
	}
	copied := *calc
	m.calcs[salaryKey(calc.AgentID, calc.Year, calc.Month)] = &copied
	return nil
}

func (m *mockSalaryRepository) GetByAgentPeriod(_ context.Context, agentID uuid.UUID, year, month int) (*models.SalaryCalculation, error) {
	if c, ok := m.calcs[salaryKey(agentID, year, month)]; ok {
		return c, nil
	}
	return nil, apperrors.ErrNotFound
}

// mockCustomerRepository implements repositories.CustomerRepository.
type mockCustomerRepository struct {
	customers map[uuid.UUID]*models.Customer
}

func (m *mockCustomerRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	if c, ok := m.customers[id]; ok {
		return c, nil
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockCustomerRepository) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Customer, error) {
	result := make(map[uuid.UUID]*models.Customer)
	for _, id := range ids {
		if c, ok := m.customers[id]; ok {
			result[id] = c
		}
	}
	return result, nil
}

// mockProductRepository implements repositories.ProductRepository.
type mockProductRepository struct {
	products map[uuid.UUID]*models.Product
}

func (m *mockProductRepository) GetByIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	result := make(map[uuid.UUID]*models.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			result[id] = p
		}
	}
	return result, nil
}
