package repository

import (
	"context"
	"time"

	"counto/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

var transactionColumns = []string{
	"id", "user_id", "date", "description", "category", "transaction_type", "amount",
	"customer_id", "vendor_id", "payment_method", "reference_number", "notes", "created_at", "updated_at",
}

type TransactionRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewTransactionRepository(db DBTX, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	query := squirrel.Insert("transactions").
		Columns(transactionColumns...).
		Values(tx.ID, tx.UserID, tx.Date, tx.Description, tx.Category, tx.Type, tx.Amount,
			tx.CustomerID, tx.VendorID, tx.PaymentMethod, tx.ReferenceNumber, tx.Notes, tx.CreatedAt, tx.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err, "transaction", tx.ID)
}

func (r *TransactionRepository) Get(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	tx, err := scanTransaction(r.db.QueryRow(ctx, sql, args...))
	return tx, mapError(err, "transaction", id)
}

func (r *TransactionRepository) List(ctx context.Context, f TransactionFilter) ([]*models.Transaction, error) {
	query := squirrel.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{"user_id": f.UserID}).
		OrderBy("date DESC", "created_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	if f.Type != nil {
		query = query.Where(squirrel.Eq{"transaction_type": *f.Type})
	}
	if f.From != nil {
		query = query.Where(squirrel.GtOrEq{"date": *f.From})
	}
	if f.To != nil {
		query = query.Where(squirrel.LtOrEq{"date": *f.To})
	}
	if f.Search != "" {
		query = query.Where(squirrel.Or{
			squirrel.ILike{"description": "%" + f.Search + "%"},
			squirrel.ILike{"category": "%" + f.Search + "%"},
		})
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transactions []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func (r *TransactionRepository) Update(ctx context.Context, tx *models.Transaction) error {
	tx.UpdatedAt = time.Now()
	query := squirrel.Update("transactions").
		Set("date", tx.Date).
		Set("description", tx.Description).
		Set("category", tx.Category).
		Set("transaction_type", tx.Type).
		Set("amount", tx.Amount).
		Set("customer_id", tx.CustomerID).
		Set("vendor_id", tx.VendorID).
		Set("payment_method", tx.PaymentMethod).
		Set("reference_number", tx.ReferenceNumber).
		Set("notes", tx.Notes).
		Set("updated_at", tx.UpdatedAt).
		Where(squirrel.Eq{"id": tx.ID, "user_id": tx.UserID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, "transaction", tx.ID)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "transaction", tx.ID)
	}
	return nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := squirrel.Delete("transactions").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "transaction", id)
	}
	return nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var tx models.Transaction
	err := row.Scan(
		&tx.ID, &tx.UserID, &tx.Date, &tx.Description, &tx.Category, &tx.Type, &tx.Amount,
		&tx.CustomerID, &tx.VendorID, &tx.PaymentMethod, &tx.ReferenceNumber, &tx.Notes, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &tx, nil
}
