package postgres

import (
	"context"
	"fmt"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

// GetVendorByEmailForUpdate locks the vendor row so concurrent reservations by
// the same vendor serialize on the quota check.
func (r *ReservationRepository) GetVendorByEmailForUpdate(ctx context.Context, email string) (domain.Vendor, error) {
	const query = `
SELECT id, email, business_name, created_at
FROM vendors
WHERE email = $1
FOR UPDATE`

	var v domain.Vendor
	err := runner(ctx, r.pool).QueryRow(ctx, query, email).
		Scan(&v.ID, &v.Email, &v.BusinessName, &v.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Vendor{}, domain.ErrVendorNotFound
		}
		return domain.Vendor{}, fmt.Errorf("get vendor by email: %w", err)
	}
	return v, nil
}

// CountActiveStalls sums the stalls across the vendor's non-cancelled
// reservations. Runs against the same snapshot as the locks taken around it.
func (r *ReservationRepository) CountActiveStalls(ctx context.Context, vendorID string) (int, error) {
	const query = `
SELECT COUNT(s.id)
FROM reservations res
JOIN stalls s ON s.reservation_id = res.id
WHERE res.vendor_id = $1 AND res.status <> 'CANCELLED'`

	var total int
	if err := runner(ctx, r.pool).QueryRow(ctx, query, vendorID).Scan(&total); err != nil {
		return 0, fmt.Errorf("count active stalls: %w", err)
	}
	return total, nil
}

// LockStalls loads and row-locks the candidate stalls in a stable order so
// overlapping allocations cannot deadlock. Missing ids simply shorten the
// result; the caller compares lengths.
func (r *ReservationRepository) LockStalls(ctx context.Context, stallIDs []string) ([]domain.Stall, error) {
	const query = `
SELECT ` + stallColumns + `
FROM stalls
WHERE id = ANY($1)
ORDER BY id
FOR UPDATE`

	rows, err := runner(ctx, r.pool).Query(ctx, query, stallIDs)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("lock stalls: %w", err)
	}
	defer rows.Close()

	var stalls []domain.Stall
	for rows.Next() {
		s, err := scanStall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stall: %w", err)
		}
		stalls = append(stalls, s)
	}
	if rows.Err() != nil {
		if isInvalidUUID(rows.Err()) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("iterate stalls: %w", rows.Err())
	}
	return stalls, nil
}

// MarkReserved binds the stalls to the reservation and flips them to RESERVED
// in one statement. The caller holds row locks on every id.
func (r *ReservationRepository) MarkReserved(ctx context.Context, stallIDs []string, reservationID string) error {
	const stmt = `
UPDATE stalls SET status = 'RESERVED', reservation_id = $2
WHERE id = ANY($1)`

	tag, err := runner(ctx, r.pool).Exec(ctx, stmt, stallIDs, reservationID)
	if err != nil {
		return fmt.Errorf("mark stalls reserved: %w", err)
	}
	if int(tag.RowsAffected()) != len(stallIDs) {
		return domain.ErrStallNotFound
	}
	return nil
}

// ReleaseStalls returns every stall bound to the reservation to AVAILABLE and
// clears the binding. Idempotent: already-released stalls are untouched.
func (r *ReservationRepository) ReleaseStalls(ctx context.Context, reservationID string) error {
	const stmt = `
UPDATE stalls SET status = 'AVAILABLE', reservation_id = NULL
WHERE reservation_id = $1`

	if _, err := runner(ctx, r.pool).Exec(ctx, stmt, reservationID); err != nil {
		return fmt.Errorf("release stalls: %w", err)
	}
	return nil
}

func (r *ReservationRepository) Create(ctx context.Context, res domain.Reservation) error {
	const stmt = `
INSERT INTO reservations (id, vendor_id, total_amount, status, created_at)
VALUES ($1, $2, $3, $4, $5)`

	_, err := runner(ctx, r.pool).Exec(ctx, stmt, res.ID, res.VendorID, res.TotalAmount, res.Status, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("create reservation: %w", err)
	}
	return nil
}

const reservationColumns = `id, vendor_id, total_amount, status, created_at`

func scanReservation(row pgx.Row) (domain.Reservation, error) {
	var res domain.Reservation
	err := row.Scan(&res.ID, &res.VendorID, &res.TotalAmount, &res.Status, &res.CreatedAt)
	return res, err
}

func (r *ReservationRepository) GetForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
	const query = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1 FOR UPDATE`
	res, err := scanReservation(runner(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation for update: %w", err)
	}
	return res, nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (domain.Reservation, error) {
	const query = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(runner(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Reservation{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Reservation{}, domain.ErrReservationNotFound
		}
		return domain.Reservation{}, fmt.Errorf("get reservation: %w", err)
	}
	stalls, err := r.StallsByReservation(ctx, id)
	if err != nil {
		return domain.Reservation{}, err
	}
	res.Stalls = stalls
	return res, nil
}

func (r *ReservationRepository) ListAll(ctx context.Context) ([]domain.Reservation, error) {
	const query = `SELECT ` + reservationColumns + ` FROM reservations ORDER BY created_at ASC`
	return r.queryReservations(ctx, query)
}

func (r *ReservationRepository) ListByVendor(ctx context.Context, vendorID string) ([]domain.Reservation, error) {
	const query = `SELECT ` + reservationColumns + ` FROM reservations WHERE vendor_id = $1 ORDER BY created_at ASC`
	return r.queryReservations(ctx, query, vendorID)
}

func (r *ReservationRepository) UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) error {
	const stmt = `UPDATE reservations SET status = $2 WHERE id = $1`
	tag, err := runner(ctx, r.pool).Exec(ctx, stmt, id, status)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) Delete(ctx context.Context, id string) error {
	const stmt = `DELETE FROM reservations WHERE id = $1`
	tag, err := runner(ctx, r.pool).Exec(ctx, stmt, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete reservation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *ReservationRepository) StallsByReservation(ctx context.Context, reservationID string) ([]domain.Stall, error) {
	const query = `SELECT ` + stallColumns + ` FROM stalls WHERE reservation_id = $1 ORDER BY code ASC`
	rows, err := runner(ctx, r.pool).Query(ctx, query, reservationID)
	if err != nil {
		return nil, fmt.Errorf("stalls by reservation: %w", err)
	}
	defer rows.Close()

	var stalls []domain.Stall
	for rows.Next() {
		s, err := scanStall(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stall: %w", err)
		}
		stalls = append(stalls, s)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate stalls: %w", rows.Err())
	}
	return stalls, nil
}

func (r *ReservationRepository) queryReservations(ctx context.Context, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := runner(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, res)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate reservations: %w", rows.Err())
	}

	for i := range reservations {
		stalls, err := r.StallsByReservation(ctx, reservations[i].ID)
		if err != nil {
			return nil, err
		}
		reservations[i].Stalls = stalls
	}
	return reservations, nil
}
