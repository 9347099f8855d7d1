package service

import (
	"context"
	"fmt"
	"time"

	"counto/internal/domain"
	"counto/internal/dto"
	"counto/internal/observability"
	"counto/internal/parse"
	"counto/internal/repository"
	"counto/pkg/config"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	PeriodMonth       = "month"
	PeriodLastMonth   = "last_month"
	PeriodLast3Months = "last_3_months"
	PeriodLast6Months = "last_6_months"
	PeriodYear        = "year"

	ckAnalytics   = "analytics:%s:%s"
	topPartyLimit = 5
)

var periods = []string{PeriodMonth, PeriodLastMonth, PeriodLast3Months, PeriodLast6Months, PeriodYear}

type AnalyticsService struct {
	store   repository.AnalyticsStore
	cache   *cache.Cache
	metrics *observability.Metrics
	now     func() time.Time
	logger  *zap.Logger
}

func NewAnalyticsService(store repository.AnalyticsStore, cfg config.AnalyticsConfig, metrics *observability.Metrics, logger *zap.Logger) *AnalyticsService {
	return &AnalyticsService{
		store:   store,
		cache:   cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		metrics: metrics,
		now:     time.Now,
		logger:  logger,
	}
}

func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	s.now = now
	return s
}

type periodRange struct {
	from, to time.Time
	bucket   repository.Bucket
}

// resolvePeriod maps a period name onto an inclusive date range.
func resolvePeriod(period string, today time.Time) (periodRange, error) {
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	switch period {
	case PeriodMonth:
		return periodRange{firstOfMonth, today, repository.BucketDay}, nil
	case PeriodLastMonth:
		start := firstOfMonth.AddDate(0, -1, 0)
		return periodRange{start, firstOfMonth.AddDate(0, 0, -1), repository.BucketDay}, nil
	case PeriodLast3Months:
		return periodRange{firstOfMonth.AddDate(0, -2, 0), today, repository.BucketMonth}, nil
	case PeriodLast6Months:
		return periodRange{firstOfMonth.AddDate(0, -5, 0), today, repository.BucketMonth}, nil
	case PeriodYear:
		return periodRange{time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC), today, repository.BucketMonth}, nil
	}
	return periodRange{}, &domain.ErrValidation{Field: "period", Message: fmt.Sprintf("unknown period %q", period)}
}

func (s *AnalyticsService) Get(ctx context.Context, userID uuid.UUID, period string) (*dto.AnalyticsResponse, error) {
	if period == "" {
		period = PeriodMonth
	}
	r, err := resolvePeriod(period, parse.Today(s.now()))
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf(ckAnalytics, userID, period)
	if cached, found := s.cache.Get(cacheKey); found {
		s.metrics.IncrCacheHit("analytics")
		return cached.(*dto.AnalyticsResponse), nil
	}
	s.metrics.IncrCacheMiss("analytics")

	series, err := s.store.Series(ctx, userID, r.from, r.to, r.bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to load series: %w", err)
	}
	categories, err := s.store.Categories(ctx, userID, r.from, r.to)
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	customers, err := s.store.TopCustomers(ctx, userID, topPartyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}
	vendors, err := s.store.TopVendors(ctx, userID, topPartyLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendors: %w", err)
	}

	resp := &dto.AnalyticsResponse{
		Period:       period,
		StartDate:    r.from.Format(dateLayout),
		EndDate:      r.to.Format(dateLayout),
		Categories:   make([]dto.CategoryTotal, 0, len(categories)),
		TopCustomers: partyBalances(customers),
		TopVendors:   partyBalances(vendors),
	}

	income, expense := decimal.Zero, decimal.Zero
	resp.Series = fillSeries(series, r)
	for _, p := range series {
		income = income.Add(p.Income)
		expense = expense.Add(p.Expense)
	}
	resp.Totals = dto.AnalyticsTotals{
		Income:  income.StringFixed(2),
		Expense: expense.StringFixed(2),
		Net:     income.Sub(expense).StringFixed(2),
	}

	for _, c := range categories {
		name := "Uncategorized"
		if c.Category != nil {
			name = *c.Category
		}
		resp.Categories = append(resp.Categories, dto.CategoryTotal{
			Category: name,
			Type:     c.Type,
			Total:    c.Total.StringFixed(2),
		})
	}

	s.cache.Set(cacheKey, resp, cache.DefaultExpiration)
	return resp, nil
}

// Invalidate drops every cached period for the user.
func (s *AnalyticsService) Invalidate(userID uuid.UUID) {
	for _, p := range periods {
		s.cache.Delete(fmt.Sprintf(ckAnalytics, userID, p))
	}
}

// fillSeries emits one point per bucket in the range, zero where the store
// returned nothing.
func fillSeries(points []repository.SeriesPoint, r periodRange) []dto.SeriesPoint {
	layout, step := "2006-01-02", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	start := r.from
	if r.bucket == repository.BucketMonth {
		layout, step = "2006-01", func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
		start = time.Date(r.from.Year(), r.from.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	byLabel := make(map[string]repository.SeriesPoint, len(points))
	for _, p := range points {
		byLabel[p.Bucket.Format(layout)] = p
	}

	var out []dto.SeriesPoint
	for t := start; !t.After(r.to); t = step(t) {
		label := t.Format(layout)
		p, ok := byLabel[label]
		if !ok {
			p = repository.SeriesPoint{Income: decimal.Zero, Expense: decimal.Zero}
		}
		out = append(out, dto.SeriesPoint{
			Label:   label,
			Income:  p.Income.StringFixed(2),
			Expense: p.Expense.StringFixed(2),
		})
	}
	return out
}

func partyBalances(in []repository.PartyBalance) []dto.PartyBalance {
	out := make([]dto.PartyBalance, 0, len(in))
	for _, p := range in {
		out = append(out, dto.PartyBalance{
			ID:                 p.ID.String(),
			Name:               p.Name,
			OutstandingBalance: p.OutstandingBalance.StringFixed(2),
		})
	}
	return out
}
