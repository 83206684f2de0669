package postgres

import (
	"context"
	"fmt"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const paymentColumns = `id, reservation_id, amount, method, transaction_ref, status, created_at`

func scanPayment(row pgx.Row) (domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.ReservationID, &p.Amount, &p.Method, &p.TransactionRef, &p.Status, &p.CreatedAt)
	return p, err
}

func (r *PaymentRepository) GetReservationForUpdate(ctx context.Context, id string) (domain.Reservation, error) {
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

func (r *PaymentRepository) GetReservation(ctx context.Context, id string) (domain.Reservation, error) {
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
	return res, nil
}

func (r *PaymentRepository) SetReservationStatus(ctx context.Context, reservationID string, status domain.ReservationStatus) error {
	const stmt = `UPDATE reservations SET status = $2 WHERE id = $1`
	tag, err := runner(ctx, r.pool).Exec(ctx, stmt, reservationID, status)
	if err != nil {
		return fmt.Errorf("set reservation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrReservationNotFound
	}
	return nil
}

func (r *PaymentRepository) VendorEmail(ctx context.Context, vendorID string) (string, error) {
	const query = `SELECT email FROM vendors WHERE id = $1`
	var email string
	if err := runner(ctx, r.pool).QueryRow(ctx, query, vendorID).Scan(&email); err != nil {
		if err == pgx.ErrNoRows {
			return "", domain.ErrVendorNotFound
		}
		return "", fmt.Errorf("vendor email: %w", err)
	}
	return email, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id string) (domain.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(runner(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Payment{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("get payment: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetForUpdate(ctx context.Context, id string) (domain.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 FOR UPDATE`
	p, err := scanPayment(runner(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		if isInvalidUUID(err) {
			return domain.Payment{}, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("get payment for update: %w", err)
	}
	return p, nil
}

func (r *PaymentRepository) GetByReservationID(ctx context.Context, reservationID string) (*domain.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments WHERE reservation_id = $1`
	p, err := scanPayment(runner(ctx, r.pool).QueryRow(ctx, query, reservationID))
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment by reservation: %w", err)
	}
	return &p, nil
}

func (r *PaymentRepository) Create(ctx context.Context, p domain.Payment) error {
	const stmt = `
INSERT INTO payments (id, reservation_id, amount, method, transaction_ref, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := runner(ctx, r.pool).Exec(ctx, stmt,
		p.ID, p.ReservationID, p.Amount, p.Method, p.TransactionRef, p.Status, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrPaymentExists
		}
		if isForeignKeyViolation(err) {
			return domain.ErrReservationNotFound
		}
		return fmt.Errorf("create payment: %w", err)
	}
	return nil
}

func (r *PaymentRepository) Update(ctx context.Context, p domain.Payment) error {
	const stmt = `
UPDATE payments SET amount = $2, method = $3, transaction_ref = $4, status = $5
WHERE id = $1`

	tag, err := runner(ctx, r.pool).Exec(ctx, stmt, p.ID, p.Amount, p.Method, p.TransactionRef, p.Status)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepository) Delete(ctx context.Context, id string) error {
	const stmt = `DELETE FROM payments WHERE id = $1`
	tag, err := runner(ctx, r.pool).Exec(ctx, stmt, id)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		return fmt.Errorf("delete payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepository) ListAll(ctx context.Context) ([]domain.Payment, error) {
	const query = `SELECT ` + paymentColumns + ` FROM payments ORDER BY created_at ASC`
	return r.queryPayments(ctx, query)
}

func (r *PaymentRepository) ListByVendor(ctx context.Context, vendorID string) ([]domain.Payment, error) {
	const query = `
SELECT p.id, p.reservation_id, p.amount, p.method, p.transaction_ref, p.status, p.created_at
FROM payments p
JOIN reservations res ON res.id = p.reservation_id
WHERE res.vendor_id = $1
ORDER BY p.created_at ASC`
	return r.queryPayments(ctx, query, vendorID)
}

func (r *PaymentRepository) queryPayments(ctx context.Context, query string, args ...any) ([]domain.Payment, error) {
	rows, err := runner(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate payments: %w", rows.Err())
	}
	return payments, nil
}
