package postgres

import (
	"context"
	"fmt"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PassRepository struct {
	pool *pgxpool.Pool
}

func NewPassRepository(pool *pgxpool.Pool) *PassRepository {
	return &PassRepository{pool: pool}
}

func (r *PassRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

func (r *PassRepository) GetByReservationID(ctx context.Context, reservationID string) (*domain.Pass, error) {
	const query = `SELECT id, reservation_id, token, created_at FROM passes WHERE reservation_id = $1`
	var p domain.Pass
	err := runner(ctx, r.pool).QueryRow(ctx, query, reservationID).
		Scan(&p.ID, &p.ReservationID, &p.Token, &p.CreatedAt)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get pass by reservation: %w", err)
	}
	return &p, nil
}

func (r *PassRepository) Create(ctx context.Context, p domain.Pass) error {
	const stmt = `
INSERT INTO passes (id, reservation_id, token, created_at)
VALUES ($1, $2, $3, $4)`

	_, err := runner(ctx, r.pool).Exec(ctx, stmt, p.ID, p.ReservationID, p.Token, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// unique reservation_id is the storage-level backstop for
			// at-most-one pass per reservation
			return domain.ErrPassExists
		}
		return fmt.Errorf("create pass: %w", err)
	}
	return nil
}

// SummaryByToken resolves a presented gate token to its reservation
// projection. Read-only; safe to repeat.
func (r *PassRepository) SummaryByToken(ctx context.Context, token string) (domain.ReservationSummary, error) {
	const query = `
SELECT res.id, res.vendor_id, res.status, res.created_at
FROM passes p
JOIN reservations res ON res.id = p.reservation_id
WHERE p.token = $1`

	var s domain.ReservationSummary
	err := runner(ctx, r.pool).QueryRow(ctx, query, token).
		Scan(&s.ReservationID, &s.VendorID, &s.Status, &s.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.ReservationSummary{}, domain.ErrInvalidToken
		}
		return domain.ReservationSummary{}, fmt.Errorf("summary by token: %w", err)
	}

	const codesQuery = `SELECT code FROM stalls WHERE reservation_id = $1 ORDER BY code ASC`
	rows, err := runner(ctx, r.pool).Query(ctx, codesQuery, s.ReservationID)
	if err != nil {
		return domain.ReservationSummary{}, fmt.Errorf("stall codes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return domain.ReservationSummary{}, fmt.Errorf("scan stall code: %w", err)
		}
		s.StallCodes = append(s.StallCodes, code)
	}
	if rows.Err() != nil {
		return domain.ReservationSummary{}, fmt.Errorf("iterate stall codes: %w", rows.Err())
	}
	return s, nil
}
