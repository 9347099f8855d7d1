package repository

import (
	"context"
	"strings"
	"time"

	"counto/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var customerColumns = []string{
	"id", "user_id", "name", "email", "phone", "gst_number", "address",
	"total_receivable", "total_received", "is_active", "notes", "created_at", "updated_at",
}

type CustomerRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewCustomerRepository(db DBTX, logger *zap.Logger) *CustomerRepository {
	return &CustomerRepository{
		db:     db,
		logger: logger,
	}
}

func (r *CustomerRepository) Create(ctx context.Context, c *models.Customer) error {
	query := squirrel.Insert("customers").
		Columns(customerColumns...).
		Values(c.ID, c.UserID, c.Name, c.Email, c.Phone, c.GSTNumber, c.Address,
			c.TotalReceivable, c.TotalReceived, c.IsActive, c.Notes, c.CreatedAt, c.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err, "customer", c.Name)
}

func (r *CustomerRepository) Get(ctx context.Context, id, userID uuid.UUID) (*models.Customer, error) {
	c, err := r.selectOne(ctx, squirrel.Eq{"id": id, "user_id": userID})
	return c, mapError(err, "customer", id)
}

// GetOrCreate resolves a customer by (user, name), inserting an empty one if
// none exists. The bool reports whether a row was created.
func (r *CustomerRepository) GetOrCreate(ctx context.Context, userID uuid.UUID, name string) (*models.Customer, bool, error) {
	name = strings.TrimSpace(name)
	fresh := models.NewCustomer(userID, name)

	query := squirrel.Insert("customers").
		Columns(customerColumns...).
		Values(fresh.ID, fresh.UserID, fresh.Name, fresh.Email, fresh.Phone, fresh.GSTNumber, fresh.Address,
			fresh.TotalReceivable, fresh.TotalReceived, fresh.IsActive, fresh.Notes, fresh.CreatedAt, fresh.UpdatedAt).
		Suffix("ON CONFLICT (user_id, name) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, false, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return nil, false, mapError(err, "customer", name)
	}
	if tag.RowsAffected() == 1 {
		return fresh, true, nil
	}

	c, err := r.selectOne(ctx, squirrel.Eq{"user_id": userID, "name": name})
	return c, false, mapError(err, "customer", name)
}

func (r *CustomerRepository) List(ctx context.Context, userID uuid.UUID, active *bool) ([]*models.Customer, error) {
	query := squirrel.Select(customerColumns...).
		From("customers").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("name ASC").
		PlaceholderFormat(squirrel.Dollar)
	if active != nil {
		query = query.Where(squirrel.Eq{"is_active": *active})
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

	var customers []*models.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (r *CustomerRepository) Update(ctx context.Context, c *models.Customer) error {
	c.UpdatedAt = time.Now()
	query := squirrel.Update("customers").
		Set("name", c.Name).
		Set("email", c.Email).
		Set("phone", c.Phone).
		Set("gst_number", c.GSTNumber).
		Set("address", c.Address).
		Set("total_receivable", c.TotalReceivable).
		Set("is_active", c.IsActive).
		Set("notes", c.Notes).
		Set("updated_at", c.UpdatedAt).
		Where(squirrel.Eq{"id": c.ID, "user_id": c.UserID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, "customer", c.Name)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "customer", c.ID)
	}
	return nil
}

func (r *CustomerRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := squirrel.Delete("customers").
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
		return mapError(pgx.ErrNoRows, "customer", id)
	}
	return nil
}

// AddReceived increments total_received in a single statement so concurrent
// confirmations cannot lose updates.
func (r *CustomerRepository) AddReceived(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*models.Customer, error) {
	query := squirrel.Update("customers").
		Set("total_received", squirrel.Expr("total_received + ?", amount)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(customerColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	c, err := scanCustomer(r.db.QueryRow(ctx, sql, args...))
	return c, mapError(err, "customer", id)
}

func (r *CustomerRepository) selectOne(ctx context.Context, where squirrel.Eq) (*models.Customer, error) {
	query := squirrel.Select(customerColumns...).
		From("customers").
		Where(where).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	return scanCustomer(r.db.QueryRow(ctx, sql, args...))
}

func scanCustomer(row pgx.Row) (*models.Customer, error) {
	var c models.Customer
	err := row.Scan(
		&c.ID, &c.UserID, &c.Name, &c.Email, &c.Phone, &c.GSTNumber, &c.Address,
		&c.TotalReceivable, &c.TotalReceived, &c.IsActive, &c.Notes, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
