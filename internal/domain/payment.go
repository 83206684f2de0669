package domain

import "time"

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentPayPal PaymentMethod = "PAYPAL"
)

func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentPayPal:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentSuccess PaymentStatus = "SUCCESS"
	PaymentFailed  PaymentStatus = "FAILED"
)

func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentSuccess, PaymentFailed:
		return true
	}
	return false
}

// Payment tracks the single settlement attempt chain for a reservation.
// Amount is copied from the reservation at creation. TransactionRef holds the
// external gateway order reference and is nil for cash.
type Payment struct {
	ID             string
	ReservationID  string
	Amount         float64
	Method         PaymentMethod
	TransactionRef *string
	Status         PaymentStatus
	CreatedAt      time.Time
}
