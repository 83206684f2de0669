package domain

import (
	"errors"
	"fmt"
)

var (
	// Validation failures (bad input).
	ErrInvalidID            = errors.New("invalid id")
	ErrInvalidStallCount    = errors.New("a reservation must cover between 1 and 3 stalls")
	ErrInvalidStatus        = errors.New("invalid status")
	ErrInvalidPrice         = errors.New("price must be positive")
	ErrStallCodeRequired    = errors.New("stall code required")
	ErrVendorEmailRequired  = errors.New("vendor email required")
	ErrGenreNameRequired    = errors.New("genre name required")
	ErrCashConfirmRequired  = errors.New("cash payments must be confirmed through the cash path")
	ErrNotCashPayment       = errors.New("payment method is not cash")
	ErrUnsupportedMethod    = errors.New("unsupported payment method")

	// Missing entities.
	ErrStallNotFound       = errors.New("stall not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrVendorNotFound      = errors.New("vendor not found")
	ErrGenreNotFound       = errors.New("genre not found")
	ErrInvalidToken        = errors.New("invalid token")

	// Invariant conflicts.
	ErrStallCodeExists     = errors.New("stall code already exists")
	ErrStallUnavailable    = errors.New("stall is not available")
	ErrStallHasReservation = errors.New("stall belongs to a confirmed reservation")
	ErrPaymentExists       = errors.New("payment already exists for this reservation")
	ErrPassExists          = errors.New("pass already issued for this reservation")
	ErrPaymentRetained     = errors.New("pending or successful payments cannot be deleted")
	ErrVendorEmailExists   = errors.New("vendor email already exists")
	ErrVendorHasBookings   = errors.New("vendor has active reservations")
	ErrGenreExists         = errors.New("genre already exists")

	// Vendor stall quota.
	ErrQuotaExceeded = errors.New("vendor stall limit exceeded")

	// Disallowed state changes.
	ErrStallStatusLocked = errors.New("stall has a live reservation; release it through the reservation flow")
	ErrReservationClosed = errors.New("reservation is no longer awaiting payment")
	ErrPaymentDeclined   = errors.New("payment was declined by the gateway")
)

// GatewayError marks a failure talking to an external payment provider, as
// opposed to the provider declining the charge. Callers may retry these.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}
