package services

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/salesworks/sales-engine/pkg/models"
	"github.com/salesworks/sales-engine/pkg/repositories"
)

// AnalyticsService computes dashboard metrics, trends and rankings.
// It is read-only over persisted sales and never mutates them.
type AnalyticsService interface {
	Dashboard(ctx context.Context, from, to time.Time) (*models.DashboardMetrics, error)
	Trend(ctx context.Context, from, to time.Time, granularity string) ([]models.TrendBucket, error)
	TopCustomers(ctx context.Context, from, to time.Time, limit int) ([]models.CustomerRank, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]models.ProductRank, error)
}

type analyticsService struct {
	sales     repositories.SaleRepository
	customers repositories.CustomerRepository
	products  repositories.ProductRepository
	logger    *zap.Logger
}

// NewAnalyticsService creates a new AnalyticsService.
func NewAnalyticsService(
	sales repositories.SaleRepository,
	customers repositories.CustomerRepository,
	products repositories.ProductRepository,
	logger *zap.Logger,
) AnalyticsService {
	return &analyticsService{
		sales:     sales,
		customers: customers,
		products:  products,
		logger:    logger.Named("analytics"),
	}
}

var _ AnalyticsService = (*analyticsService)(nil)

func (s *analyticsService) Dashboard(ctx context.Context, from, to time.Time) (*models.DashboardMetrics, error) {
	sales, err := s.sales.ListByPeriod(ctx, from, to)
	if err != nil {
		return nil, err
	}

	metrics := &models.DashboardMetrics{
		TotalRevenue: decimal.Zero,
		AverageCheck: decimal.Zero,
	}
	for _, sale := range sales {
		metrics.TotalRevenue = metrics.TotalRevenue.Add(sale.TotalAmount)
		metrics.TotalSales++
	}
	if metrics.TotalSales > 0 {
		metrics.AverageCheck = metrics.TotalRevenue.
			Div(decimal.NewFromInt(int64(metrics.TotalSales))).
			Round(2)
	}
	return metrics, nil
}

func (s *analyticsService) Trend(ctx context.Context, from, to time.Time, granularity string) ([]models.TrendBucket, error) {
	switch granularity {
	case models.GranularityDay, models.GranularityWeek, models.GranularityMonth:
	default:
		return nil, fmt.Errorf("invalid granularity %q", granularity)
	}

	sales, err := s.sales.ListByPeriod(ctx, from, to)
	if err != nil {
		return nil, err
	}

	byPeriod := make(map[time.Time]*models.TrendBucket)
	for _, sale := range sales {
		period := bucketStart(sale.SaleDate, granularity)
		bucket, ok := byPeriod[period]
		if !ok {
			bucket = &models.TrendBucket{Period: period, Amount: decimal.Zero}
			byPeriod[period] = bucket
		}
		bucket.Amount = bucket.Amount.Add(sale.TotalAmount)
		bucket.Count++
	}

	// Periods without sales are omitted, not synthesized.
	buckets := make([]models.TrendBucket, 0, len(byPeriod))
	for _, bucket := range byPeriod {
		buckets = append(buckets, *bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Period.Before(buckets[j].Period)
	})
	return buckets, nil
}

func (s *analyticsService) TopCustomers(ctx context.Context, from, to time.Time, limit int) ([]models.CustomerRank, error) {
	sales, err := s.sales.ListByPeriod(ctx, from, to)
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]*models.CustomerRank)
	for _, sale := range sales {
		if sale.CustomerID == nil {
			continue
		}
		rank, ok := totals[*sale.CustomerID]
		if !ok {
			rank = &models.CustomerRank{CustomerID: *sale.CustomerID, Amount: decimal.Zero}
			totals[*sale.CustomerID] = rank
		}
		rank.Amount = rank.Amount.Add(sale.TotalAmount)
		rank.SaleCount++
	}

	ranks := make([]models.CustomerRank, 0, len(totals))
	for _, rank := range totals {
		ranks = append(ranks, *rank)
	}
	sort.Slice(ranks, func(i, j int) bool {
		if cmp := ranks[i].Amount.Cmp(ranks[j].Amount); cmp != 0 {
			return cmp > 0
		}
		// Equal totals break ties by id ascending for determinism.
		return lessUUID(ranks[i].CustomerID, ranks[j].CustomerID)
	})
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}

	ids := make([]uuid.UUID, len(ranks))
	for i, rank := range ranks {
		ids[i] = rank.CustomerID
	}
	named, err := s.customers.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range ranks {
		if c, ok := named[ranks[i].CustomerID]; ok {
			ranks[i].Name = c.Name
		}
	}
	return ranks, nil
}

func (s *analyticsService) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]models.ProductRank, error) {
	sales, err := s.sales.ListByPeriod(ctx, from, to)
	if err != nil {
		return nil, err
	}

	totals := make(map[uuid.UUID]*models.ProductRank)
	for _, sale := range sales {
		for _, item := range sale.Items {
			if item.ProductID == nil {
				continue
			}
			rank, ok := totals[*item.ProductID]
			if !ok {
				rank = &models.ProductRank{
					ProductID: *item.ProductID,
					Quantity:  decimal.Zero,
					Amount:    decimal.Zero,
				}
				totals[*item.ProductID] = rank
			}
			rank.Quantity = rank.Quantity.Add(item.Quantity)
			rank.Amount = rank.Amount.Add(item.Amount)
		}
	}

	ranks := make([]models.ProductRank, 0, len(totals))
	for _, rank := range totals {
		ranks = append(ranks, *rank)
	}
	sort.Slice(ranks, func(i, j int) bool {
		if cmp := ranks[i].Quantity.Cmp(ranks[j].Quantity); cmp != 0 {
			return cmp > 0
		}
		if cmp := ranks[i].Amount.Cmp(ranks[j].Amount); cmp != 0 {
			return cmp > 0
		}
		return lessUUID(ranks[i].ProductID, ranks[j].ProductID)
	})
	if len(ranks) > limit {
		ranks = ranks[:limit]
	}

	ids := make([]uuid.UUID, len(ranks))
	for i, rank := range ranks {
		ids[i] = rank.ProductID
	}
	named, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range ranks {
		if p, ok := named[ranks[i].ProductID]; ok {
			ranks[i].Name = p.Name
		}
	}
	return ranks, nil
}

// bucketStart truncates a date to the start of its trend bucket. Weeks
// start on Monday.
func bucketStart(date time.Time, granularity string) time.Time {
	switch granularity {
	case models.GranularityWeek:
		offset := (int(date.Weekday()) + 6) % 7
		date = date.AddDate(0, 0, -offset)
	case models.GranularityMonth:
		return time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
}

func lessUUID(a, b uuid.UUID) bool {
	return bytes.Compare(a[:], b[:]) < 0
}
