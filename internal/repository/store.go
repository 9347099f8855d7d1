package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"counto/internal/domain"
	"counto/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so every repository
// can run inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type ConversationStore interface {
	Create(ctx context.Context, c *models.Conversation) error
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error)
	Touch(ctx context.Context, id uuid.UUID, at time.Time) error
	AppendMessage(ctx context.Context, m *models.Message) error
	// Messages returns the last limit messages in chronological order; limit <= 0 returns all.
	Messages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Message, error)
}

type PendingStore interface {
	Create(ctx context.Context, p *models.PendingTransaction) error
	Latest(ctx context.Context, conversationID uuid.UUID) (*models.PendingTransaction, error)
	Get(ctx context.Context, id, userID uuid.UUID) (*models.PendingTransaction, error)
	Update(ctx context.Context, p *models.PendingTransaction) error
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	DeleteByConversation(ctx context.Context, conversationID uuid.UUID) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type CustomerStore interface {
	Create(ctx context.Context, c *models.Customer) error
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Customer, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID, name string) (*models.Customer, bool, error)
	List(ctx context.Context, userID uuid.UUID, active *bool) ([]*models.Customer, error)
	Update(ctx context.Context, c *models.Customer) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	AddReceived(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*models.Customer, error)
}

type VendorStore interface {
	Create(ctx context.Context, v *models.Vendor) error
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Vendor, error)
	GetOrCreate(ctx context.Context, userID uuid.UUID, name string) (*models.Vendor, bool, error)
	List(ctx context.Context, userID uuid.UUID, active *bool) ([]*models.Vendor, error)
	Update(ctx context.Context, v *models.Vendor) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
	AddPaid(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*models.Vendor, error)
}

type TransactionFilter struct {
	UserID uuid.UUID
	Type   *models.TransactionType
	From   *time.Time
	To     *time.Time
	Search string
	Limit  uint64
}

type TransactionStore interface {
	Create(ctx context.Context, t *models.Transaction) error
	Get(ctx context.Context, id, userID uuid.UUID) (*models.Transaction, error)
	List(ctx context.Context, f TransactionFilter) ([]*models.Transaction, error)
	Update(ctx context.Context, t *models.Transaction) error
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// Ledger groups the bookkeeping stores behind one unit of work.
type Ledger interface {
	Conversations() ConversationStore
	Pending() PendingStore
	Customers() CustomerStore
	Vendors() VendorStore
	Transactions() TransactionStore
	// InTx runs fn against a ledger bound to a single database transaction.
	// fn's error rolls everything back.
	InTx(ctx context.Context, fn func(Ledger) error) error
}

type PgLedger struct {
	pool   *pgxpool.Pool
	db     DBTX
	logger *zap.Logger
}

func NewLedger(pool *pgxpool.Pool, logger *zap.Logger) *PgLedger {
	return &PgLedger{pool: pool, db: pool, logger: logger}
}

func (l *PgLedger) Conversations() ConversationStore {
	return NewConversationRepository(l.db, l.logger)
}

func (l *PgLedger) Pending() PendingStore {
	return NewPendingRepository(l.db, l.logger)
}

func (l *PgLedger) Customers() CustomerStore {
	return NewCustomerRepository(l.db, l.logger)
}

func (l *PgLedger) Vendors() VendorStore {
	return NewVendorRepository(l.db, l.logger)
}

func (l *PgLedger) Transactions() TransactionStore {
	return NewTransactionRepository(l.db, l.logger)
}

func (l *PgLedger) InTx(ctx context.Context, fn func(Ledger) error) error {
	// already inside a transaction: join it
	if l.pool == nil {
		return fn(l)
	}

	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			l.logger.Warn("Transaction rollback failed", zap.Error(rbErr))
		}
	}()

	if err := fn(&PgLedger{db: tx, logger: l.logger}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapError converts driver errors into the domain taxonomy.
func mapError(err error, resource string, id any) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.ErrNotFound{Resource: resource, ID: fmt.Sprint(id)}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &domain.ErrConflict{Message: fmt.Sprintf("%s %v already exists", resource, id)}
		case pgForeignKeyViolation:
			return &domain.ErrNotFound{Resource: pgErr.ConstraintName, ID: fmt.Sprint(id)}
		}
	}
	return err
}
