package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Bucket is the date_trunc unit used to group a series.
type Bucket string

const (
	BucketDay   Bucket = "day"
	BucketMonth Bucket = "month"
)

type SeriesPoint struct {
	Bucket  time.Time
	Income  decimal.Decimal
	Expense decimal.Decimal
}

type CategoryTotal struct {
	Category *string
	Type     string
	Total    decimal.Decimal
}

type PartyBalance struct {
	ID                 uuid.UUID
	Name               string
	OutstandingBalance decimal.Decimal
}

type AnalyticsStore interface {
	Series(ctx context.Context, userID uuid.UUID, from, to time.Time, bucket Bucket) ([]SeriesPoint, error)
	Categories(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]CategoryTotal, error)
	TopCustomers(ctx context.Context, userID uuid.UUID, limit uint64) ([]PartyBalance, error)
	TopVendors(ctx context.Context, userID uuid.UUID, limit uint64) ([]PartyBalance, error)
}

type AnalyticsRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewAnalyticsRepository(db DBTX, logger *zap.Logger) *AnalyticsRepository {
	return &AnalyticsRepository{
		db:     db,
		logger: logger,
	}
}

func (r *AnalyticsRepository) Series(ctx context.Context, userID uuid.UUID, from, to time.Time, bucket Bucket) ([]SeriesPoint, error) {
	if bucket != BucketDay && bucket != BucketMonth {
		return nil, fmt.Errorf("unsupported bucket %q", bucket)
	}
	trunc := fmt.Sprintf("date_trunc('%s', date)::date", bucket)

	query := squirrel.Select(
		trunc+" AS bucket",
		"COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'INCOME'), 0)",
		"COALESCE(SUM(amount) FILTER (WHERE transaction_type = 'EXPENSE'), 0)",
	).
		From("transactions").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.LtOrEq{"date": to}).
		GroupBy("bucket").
		OrderBy("bucket").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []SeriesPoint
	for rows.Next() {
		var p SeriesPoint
		if err := rows.Scan(&p.Bucket, &p.Income, &p.Expense); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (r *AnalyticsRepository) Categories(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]CategoryTotal, error) {
	query := squirrel.Select("category", "transaction_type", "SUM(amount) AS total").
		From("transactions").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.GtOrEq{"date": from}).
		Where(squirrel.LtOrEq{"date": to}).
		GroupBy("category", "transaction_type").
		OrderBy("total DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var totals []CategoryTotal
	for rows.Next() {
		var c CategoryTotal
		if err := rows.Scan(&c.Category, &c.Type, &c.Total); err != nil {
			return nil, err
		}
		totals = append(totals, c)
	}
	return totals, rows.Err()
}

func (r *AnalyticsRepository) TopCustomers(ctx context.Context, userID uuid.UUID, limit uint64) ([]PartyBalance, error) {
	return r.topParties(ctx, "customers", "total_receivable - total_received", userID, limit)
}

func (r *AnalyticsRepository) TopVendors(ctx context.Context, userID uuid.UUID, limit uint64) ([]PartyBalance, error) {
	return r.topParties(ctx, "vendors", "total_payable - total_paid", userID, limit)
}

// table and balance are package constants, never user input.
func (r *AnalyticsRepository) topParties(ctx context.Context, table, balance string, userID uuid.UUID, limit uint64) ([]PartyBalance, error) {
	query := squirrel.Select("id", "name", balance+" AS outstanding").
		From(table).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("outstanding DESC", "name").
		Limit(limit).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var parties []PartyBalance
	for rows.Next() {
		var p PartyBalance
		if err := rows.Scan(&p.ID, &p.Name, &p.OutstandingBalance); err != nil {
			return nil, err
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}
