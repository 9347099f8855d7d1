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

var pendingColumns = []string{
	"id", "user_id", "conversation_id", "date", "description", "category", "transaction_type",
	"amount", "party", "payment_method", "reference_number", "notes", "created_at",
}

type PendingRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPendingRepository(db DBTX, logger *zap.Logger) *PendingRepository {
	return &PendingRepository{
		db:     db,
		logger: logger,
	}
}

func (r *PendingRepository) Create(ctx context.Context, p *models.PendingTransaction) error {
	query := squirrel.Insert("pending_transactions").
		Columns(pendingColumns...).
		Values(p.ID, p.UserID, p.ConversationID, p.Date, p.Description, p.Category, p.Type,
			p.Amount, p.Party, p.PaymentMethod, p.ReferenceNumber, p.Notes, p.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err, "pending transaction", p.ID)
}

func (r *PendingRepository) Latest(ctx context.Context, conversationID uuid.UUID) (*models.PendingTransaction, error) {
	query := squirrel.Select(pendingColumns...).
		From("pending_transactions").
		Where(squirrel.Eq{"conversation_id": conversationID}).
		OrderBy("created_at DESC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar)

	p, err := r.scanOne(ctx, query)
	return p, mapError(err, "pending transaction", conversationID)
}

func (r *PendingRepository) Get(ctx context.Context, id, userID uuid.UUID) (*models.PendingTransaction, error) {
	query := squirrel.Select(pendingColumns...).
		From("pending_transactions").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	p, err := r.scanOne(ctx, query)
	return p, mapError(err, "pending transaction", id)
}

func (r *PendingRepository) Update(ctx context.Context, p *models.PendingTransaction) error {
	query := squirrel.Update("pending_transactions").
		Set("date", p.Date).
		Set("description", p.Description).
		Set("category", p.Category).
		Set("transaction_type", p.Type).
		Set("amount", p.Amount).
		Set("party", p.Party).
		Set("payment_method", p.PaymentMethod).
		Set("reference_number", p.ReferenceNumber).
		Set("notes", p.Notes).
		Where(squirrel.Eq{"id": p.ID}).
		PlaceholderFormat(squirrel.Dollar)

	return r.execOne(ctx, query, p.ID)
}

// Delete reports whether a row was removed, which lets concurrent confirms
// detect that another request already consumed the pending transaction.
func (r *PendingRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := r.exec(ctx, squirrel.Delete("pending_transactions").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar))
	return n == 1, err
}

func (r *PendingRepository) DeleteByConversation(ctx context.Context, conversationID uuid.UUID) (int64, error) {
	return r.exec(ctx, squirrel.Delete("pending_transactions").
		Where(squirrel.Eq{"conversation_id": conversationID}).
		PlaceholderFormat(squirrel.Dollar))
}

func (r *PendingRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := r.exec(ctx, squirrel.Delete("pending_transactions").
		Where(squirrel.Lt{"created_at": cutoff}).
		PlaceholderFormat(squirrel.Dollar))
	if err == nil && n > 0 {
		r.logger.Info("Purged expired pending transactions", zap.Int64("count", n), zap.Time("cutoff", cutoff))
	}
	return n, err
}

func (r *PendingRepository) scanOne(ctx context.Context, query squirrel.SelectBuilder) (*models.PendingTransaction, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	return scanPending(r.db.QueryRow(ctx, sql, args...))
}

func (r *PendingRepository) execOne(ctx context.Context, query squirrel.UpdateBuilder, id uuid.UUID) error {
	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, "pending transaction", id)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "pending transaction", id)
	}
	return nil
}

func (r *PendingRepository) exec(ctx context.Context, query squirrel.DeleteBuilder) (int64, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func scanPending(row pgx.Row) (*models.PendingTransaction, error) {
	var p models.PendingTransaction
	err := row.Scan(
		&p.ID, &p.UserID, &p.ConversationID, &p.Date, &p.Description, &p.Category, &p.Type,
		&p.Amount, &p.Party, &p.PaymentMethod, &p.ReferenceNumber, &p.Notes, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
