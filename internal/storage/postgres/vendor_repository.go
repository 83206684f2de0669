package postgres

import (
	"context"
	"fmt"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VendorRepository struct {
	pool *pgxpool.Pool
}

func NewVendorRepository(pool *pgxpool.Pool) *VendorRepository {
	return &VendorRepository{pool: pool}
}

func (r *VendorRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const vendorColumns = `id, email, business_name, created_at`

func scanVendor(row pgx.Row) (domain.Vendor, error) {
	var v domain.Vendor
	err := row.Scan(&v.ID, &v.Email, &v.BusinessName, &v.CreatedAt)
	return v, err
}

func (r *VendorRepository) Create(ctx context.Context, v domain.Vendor) error {
	const stmt = `
INSERT INTO vendors (id, email, business_name, created_at)
VALUES ($1, $2, $3, $4)`

	_, err := runner(ctx, r.pool).Exec(ctx, stmt, v.ID, v.Email, v.BusinessName, v.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVendorEmailExists
		}
		return fmt.Errorf("create vendor: %w", err)
	}
	return nil
}

func (r *VendorRepository) GetByID(ctx context.Context, id string) (domain.Vendor, error) {
	const query = `SELECT ` + vendorColumns + ` FROM vendors WHERE id = $1`
	v, err := scanVendor(runner(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Vendor{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Vendor{}, domain.ErrVendorNotFound
		}
		return domain.Vendor{}, fmt.Errorf("get vendor: %w", err)
	}
	return v, nil
}

func (r *VendorRepository) GetByEmail(ctx context.Context, email string) (domain.Vendor, error) {
	const query = `SELECT ` + vendorColumns + ` FROM vendors WHERE email = $1`
	v, err := scanVendor(runner(ctx, r.pool).QueryRow(ctx, query, email))
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Vendor{}, domain.ErrVendorNotFound
		}
		return domain.Vendor{}, fmt.Errorf("get vendor by email: %w", err)
	}
	return v, nil
}

func (r *VendorRepository) List(ctx context.Context) ([]domain.Vendor, error) {
	const query = `SELECT ` + vendorColumns + ` FROM vendors ORDER BY created_at ASC`
	rows, err := runner(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var vendors []domain.Vendor
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate vendors: %w", rows.Err())
	}
	return vendors, nil
}

func (r *VendorRepository) Update(ctx context.Context, v domain.Vendor) error {
	const stmt = `UPDATE vendors SET email = $2, business_name = $3 WHERE id = $1`
	tag, err := runner(ctx, r.pool).Exec(ctx, stmt, v.ID, v.Email, v.BusinessName)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrVendorEmailExists
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update vendor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVendorNotFound
	}
	return nil
}

func (r *VendorRepository) Delete(ctx context.Context, id string) error {
	const stmt = `DELETE FROM vendors WHERE id = $1`
	tag, err := runner(ctx, r.pool).Exec(ctx, stmt, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrVendorHasBookings
		}
		return fmt.Errorf("delete vendor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVendorNotFound
	}
	return nil
}

// HasActiveReservations reports whether the vendor still holds stalls through
// a non-cancelled reservation.
func (r *VendorRepository) HasActiveReservations(ctx context.Context, vendorID string) (bool, error) {
	const query = `
SELECT EXISTS (
	SELECT 1 FROM reservations
	WHERE vendor_id = $1 AND status <> 'CANCELLED'
)`
	var exists bool
	if err := runner(ctx, r.pool).QueryRow(ctx, query, vendorID).Scan(&exists); err != nil {
		if isInvalidUUID(err) {
			return false, domain.ErrInvalidID
		}
		return false, fmt.Errorf("check vendor reservations: %w", err)
	}
	return exists, nil
}
