package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"counto/internal/domain"
	"counto/internal/observability"
	"counto/internal/repository"
	"counto/internal/service"
	"counto/pkg/config"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeAnalyticsStore struct {
	series     []repository.SeriesPoint
	categories []repository.CategoryTotal
	customers  []repository.PartyBalance
	vendors    []repository.PartyBalance

	calls    int
	lastFrom time.Time
	lastTo   time.Time
	bucket   repository.Bucket
	limit    uint64
}

func (f *fakeAnalyticsStore) Series(ctx context.Context, userID uuid.UUID, from, to time.Time, bucket repository.Bucket) ([]repository.SeriesPoint, error) {
	f.calls++
	f.lastFrom, f.lastTo, f.bucket = from, to, bucket
	return f.series, nil
}

func (f *fakeAnalyticsStore) Categories(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]repository.CategoryTotal, error) {
	return f.categories, nil
}

func (f *fakeAnalyticsStore) TopCustomers(ctx context.Context, userID uuid.UUID, limit uint64) ([]repository.PartyBalance, error) {
	f.limit = limit
	return f.customers, nil
}

func (f *fakeAnalyticsStore) TopVendors(ctx context.Context, userID uuid.UUID, limit uint64) ([]repository.PartyBalance, error) {
	return f.vendors, nil
}

func newAnalytics(store repository.AnalyticsStore) *service.AnalyticsService {
	return service.NewAnalyticsService(store, config.AnalyticsConfig{CacheTTL: time.Minute}, observability.NewMetrics(), zap.NewNop()).
		WithClock(func() time.Time { return fixedNow })
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAnalytics_Periods(t *testing.T) {
	tests := []struct {
		period   string
		from, to string
		bucket   repository.Bucket
		points   int
	}{
		{"month", "2024-03-01", "2024-03-15", repository.BucketDay, 15},
		{"last_month", "2024-02-01", "2024-02-29", repository.BucketDay, 29},
		{"last_3_months", "2024-01-01", "2024-03-15", repository.BucketMonth, 3},
		{"last_6_months", "2023-10-01", "2024-03-15", repository.BucketMonth, 6},
		{"year", "2024-01-01", "2024-03-15", repository.BucketMonth, 3},
	}
	for _, tt := range tests {
		t.Run(tt.period, func(t *testing.T) {
			store := &fakeAnalyticsStore{}
			resp, err := newAnalytics(store).Get(context.Background(), uuid.New(), tt.period)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if resp.StartDate != tt.from || resp.EndDate != tt.to {
				t.Errorf("range = %s..%s", resp.StartDate, resp.EndDate)
			}
			if store.bucket != tt.bucket {
				t.Errorf("bucket = %s", store.bucket)
			}
			if len(resp.Series) != tt.points {
				t.Errorf("series points = %d, want %d", len(resp.Series), tt.points)
			}
			for _, p := range resp.Series {
				if p.Income != "0.00" || p.Expense != "0.00" {
					t.Errorf("point %s not zero filled", p.Label)
				}
			}
		})
	}
}

func TestAnalytics_UnknownPeriod(t *testing.T) {
	_, err := newAnalytics(&fakeAnalyticsStore{}).Get(context.Background(), uuid.New(), "decade")
	var v *domain.ErrValidation
	if !errors.As(err, &v) || v.Field != "period" {
		t.Fatalf("err = %v", err)
	}
}

func TestAnalytics_Aggregates(t *testing.T) {
	food := "Food"
	store := &fakeAnalyticsStore{
		series: []repository.SeriesPoint{
			{Bucket: day(2024, 3, 5), Income: decimal.NewFromInt(1000), Expense: decimal.RequireFromString("120.5")},
			{Bucket: day(2024, 3, 10), Income: decimal.Zero, Expense: decimal.NewFromInt(80)},
		},
		categories: []repository.CategoryTotal{
			{Category: &food, Type: "EXPENSE", Total: decimal.NewFromInt(150)},
			{Category: nil, Type: "INCOME", Total: decimal.NewFromInt(1000)},
		},
		customers: []repository.PartyBalance{{ID: uuid.New(), Name: "Acme", OutstandingBalance: decimal.NewFromInt(700)}},
	}

	resp, err := newAnalytics(store).Get(context.Background(), uuid.New(), "")
	if err != nil {
		t.Fatal(err)
	}

	if resp.Period != "month" {
		t.Errorf("period = %s, want month default", resp.Period)
	}
	if resp.Totals.Income != "1000.00" || resp.Totals.Expense != "200.50" || resp.Totals.Net != "799.50" {
		t.Errorf("totals = %+v", resp.Totals)
	}
	if p := resp.Series[4]; p.Label != "2024-03-05" || p.Income != "1000.00" || p.Expense != "120.50" {
		t.Errorf("series[4] = %+v", p)
	}
	if resp.Categories[1].Category != "Uncategorized" || resp.Categories[0].Category != "Food" {
		t.Errorf("categories = %+v", resp.Categories)
	}
	if len(resp.TopCustomers) != 1 || resp.TopCustomers[0].OutstandingBalance != "700.00" {
		t.Errorf("top customers = %+v", resp.TopCustomers)
	}
	if resp.TopVendors == nil || len(resp.TopVendors) != 0 {
		t.Errorf("top vendors = %#v, want empty list", resp.TopVendors)
	}
	if store.limit != 5 {
		t.Errorf("top limit = %d", store.limit)
	}
}

func TestAnalytics_MonthlyLabels(t *testing.T) {
	store := &fakeAnalyticsStore{
		series: []repository.SeriesPoint{{Bucket: day(2024, 2, 1), Income: decimal.NewFromInt(5), Expense: decimal.Zero}},
	}
	resp, err := newAnalytics(store).Get(context.Background(), uuid.New(), "last_3_months")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"2024-01", "2024-02", "2024-03"}
	for i, p := range resp.Series {
		if p.Label != want[i] {
			t.Errorf("label[%d] = %s", i, p.Label)
		}
	}
	if resp.Series[1].Income != "5.00" {
		t.Errorf("february = %+v", resp.Series[1])
	}
}

func TestAnalytics_CacheAndInvalidate(t *testing.T) {
	store := &fakeAnalyticsStore{}
	svc := newAnalytics(store)
	userID := uuid.New()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Get(ctx, userID, "year"); err != nil {
			t.Fatal(err)
		}
	}
	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1", store.calls)
	}

	if _, err := svc.Get(ctx, uuid.New(), "year"); err != nil {
		t.Fatal(err)
	}
	if store.calls != 2 {
		t.Errorf("cache leaked across users: calls = %d", store.calls)
	}

	svc.Invalidate(userID)
	if _, err := svc.Get(ctx, userID, "year"); err != nil {
		t.Fatal(err)
	}
	if store.calls != 3 {
		t.Errorf("store calls after invalidate = %d, want 3", store.calls)
	}
}
