package postgres

import (
	"context"
	"fmt"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type StallRepository struct {
	pool *pgxpool.Pool
}

func NewStallRepository(pool *pgxpool.Pool) *StallRepository {
	return &StallRepository{pool: pool}
}

func (r *StallRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const stallColumns = `id, code, size, price, status, reservation_id`

func scanStall(row pgx.Row) (domain.Stall, error) {
	var s domain.Stall
	err := row.Scan(&s.ID, &s.Code, &s.Size, &s.Price, &s.Status, &s.ReservationID)
	return s, err
}

func (r *StallRepository) Create(ctx context.Context, stall domain.Stall) error {
	const stmt = `
INSERT INTO stalls (id, code, size, price, status)
VALUES ($1, $2, $3, $4, $5)`

	_, err := runner(ctx, r.pool).Exec(ctx, stmt, stall.ID, stall.Code, stall.Size, stall.Price, stall.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrStallCodeExists
		}
		return fmt.Errorf("create stall: %w", err)
	}
	return nil
}

func (r *StallRepository) GetByID(ctx context.Context, id string) (domain.Stall, error) {
	const query = `SELECT ` + stallColumns + ` FROM stalls WHERE id = $1`
	s, err := scanStall(runner(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Stall{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Stall{}, domain.ErrStallNotFound
		}
		return domain.Stall{}, fmt.Errorf("get stall: %w", err)
	}
	return s, nil
}

// GetForUpdate locks the stall row for the rest of the surrounding transaction.
func (r *StallRepository) GetForUpdate(ctx context.Context, id string) (domain.Stall, error) {
	const query = `SELECT ` + stallColumns + ` FROM stalls WHERE id = $1 FOR UPDATE`
	s, err := scanStall(runner(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Stall{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Stall{}, domain.ErrStallNotFound
		}
		return domain.Stall{}, fmt.Errorf("get stall for update: %w", err)
	}
	return s, nil
}

func (r *StallRepository) List(ctx context.Context) ([]domain.Stall, error) {
	const query = `SELECT ` + stallColumns + ` FROM stalls ORDER BY code ASC`
	return r.queryStalls(ctx, query)
}

func (r *StallRepository) ListByStatus(ctx context.Context, status domain.StallStatus) ([]domain.Stall, error) {
	const query = `SELECT ` + stallColumns + ` FROM stalls WHERE status = $1 ORDER BY code ASC`
	return r.queryStalls(ctx, query, status)
}

func (r *StallRepository) ListBySize(ctx context.Context, size domain.StallSize) ([]domain.Stall, error) {
	const query = `SELECT ` + stallColumns + ` FROM stalls WHERE size = $1 ORDER BY code ASC`
	return r.queryStalls(ctx, query, size)
}

func (r *StallRepository) Update(ctx context.Context, stall domain.Stall) error {
	const stmt = `
UPDATE stalls SET code = $2, size = $3, price = $4, status = $5
WHERE id = $1`

	tag, err := runner(ctx, r.pool).Exec(ctx, stmt, stall.ID, stall.Code, stall.Size, stall.Price, stall.Status)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrStallCodeExists
		}
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("update stall: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStallNotFound
	}
	return nil
}

func (r *StallRepository) Delete(ctx context.Context, id string) error {
	const stmt = `DELETE FROM stalls WHERE id = $1`
	tag, err := runner(ctx, r.pool).Exec(ctx, stmt, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete stall: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStallNotFound
	}
	return nil
}

// ReservationStatus reads the status of the reservation currently bound to a
// stall, for the ledger's transition guards.
func (r *StallRepository) ReservationStatus(ctx context.Context, reservationID string) (domain.ReservationStatus, error) {
	const query = `SELECT status FROM reservations WHERE id = $1`
	var status domain.ReservationStatus
	if err := runner(ctx, r.pool).QueryRow(ctx, query, reservationID).Scan(&status); err != nil {
		if err == pgx.ErrNoRows {
			return "", domain.ErrReservationNotFound
		}
		return "", fmt.Errorf("reservation status: %w", err)
	}
	return status, nil
}

func (r *StallRepository) queryStalls(ctx context.Context, query string, args ...any) ([]domain.Stall, error) {
	rows, err := runner(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stalls: %w", err)
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
