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

var vendorColumns = []string{
	"id", "user_id", "name", "email", "phone", "gst_number", "address",
	"total_payable", "total_paid", "is_active", "notes", "created_at", "updated_at",
}

type VendorRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewVendorRepository(db DBTX, logger *zap.Logger) *VendorRepository {
	return &VendorRepository{
		db:     db,
		logger: logger,
	}
}

func (r *VendorRepository) Create(ctx context.Context, v *models.Vendor) error {
	query := squirrel.Insert("vendors").
		Columns(vendorColumns...).
		Values(v.ID, v.UserID, v.Name, v.Email, v.Phone, v.GSTNumber, v.Address,
			v.TotalPayable, v.TotalPaid, v.IsActive, v.Notes, v.CreatedAt, v.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err, "vendor", v.Name)
}

func (r *VendorRepository) Get(ctx context.Context, id, userID uuid.UUID) (*models.Vendor, error) {
	v, err := r.selectOne(ctx, squirrel.Eq{"id": id, "user_id": userID})
	return v, mapError(err, "vendor", id)
}

// GetOrCreate resolves a vendor by (user, name), inserting an empty one if
// none exists. The bool reports whether a row was created.
func (r *VendorRepository) GetOrCreate(ctx context.Context, userID uuid.UUID, name string) (*models.Vendor, bool, error) {
	name = strings.TrimSpace(name)
	fresh := models.NewVendor(userID, name)

	query := squirrel.Insert("vendors").
		Columns(vendorColumns...).
		Values(fresh.ID, fresh.UserID, fresh.Name, fresh.Email, fresh.Phone, fresh.GSTNumber, fresh.Address,
			fresh.TotalPayable, fresh.TotalPaid, fresh.IsActive, fresh.Notes, fresh.CreatedAt, fresh.UpdatedAt).
		Suffix("ON CONFLICT (user_id, name) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, false, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return nil, false, mapError(err, "vendor", name)
	}
	if tag.RowsAffected() == 1 {
		return fresh, true, nil
	}

	v, err := r.selectOne(ctx, squirrel.Eq{"user_id": userID, "name": name})
	return v, false, mapError(err, "vendor", name)
}

func (r *VendorRepository) List(ctx context.Context, userID uuid.UUID, active *bool) ([]*models.Vendor, error) {
	query := squirrel.Select(vendorColumns...).
		From("vendors").
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

	var vendors []*models.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, v)
	}
	return vendors, rows.Err()
}

func (r *VendorRepository) Update(ctx context.Context, v *models.Vendor) error {
	v.UpdatedAt = time.Now()
	query := squirrel.Update("vendors").
		Set("name", v.Name).
		Set("email", v.Email).
		Set("phone", v.Phone).
		Set("gst_number", v.GSTNumber).
		Set("address", v.Address).
		Set("total_payable", v.TotalPayable).
		Set("is_active", v.IsActive).
		Set("notes", v.Notes).
		Set("updated_at", v.UpdatedAt).
		Where(squirrel.Eq{"id": v.ID, "user_id": v.UserID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err, "vendor", v.Name)
	}
	if tag.RowsAffected() == 0 {
		return mapError(pgx.ErrNoRows, "vendor", v.ID)
	}
	return nil
}

func (r *VendorRepository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	query := squirrel.Delete("vendors").
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
		return mapError(pgx.ErrNoRows, "vendor", id)
	}
	return nil
}

// AddPaid is the vendor counterpart of CustomerRepository.AddReceived.
func (r *VendorRepository) AddPaid(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (*models.Vendor, error) {
	query := squirrel.Update("vendors").
		Set("total_paid", squirrel.Expr("total_paid + ?", amount)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(vendorColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	v, err := scanVendor(r.db.QueryRow(ctx, sql, args...))
	return v, mapError(err, "vendor", id)
}

func (r *VendorRepository) selectOne(ctx context.Context, where squirrel.Eq) (*models.Vendor, error) {
	query := squirrel.Select(vendorColumns...).
		From("vendors").
		Where(where).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	return scanVendor(r.db.QueryRow(ctx, sql, args...))
}

func scanVendor(row pgx.Row) (*models.Vendor, error) {
	var v models.Vendor
	err := row.Scan(
		&v.ID, &v.UserID, &v.Name, &v.Email, &v.Phone, &v.GSTNumber, &v.Address,
		&v.TotalPayable, &v.TotalPaid, &v.IsActive, &v.Notes, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
