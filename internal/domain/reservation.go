package domain

import "time"

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "PENDING"
	ReservationConfirmed ReservationStatus = "CONFIRMED"
	ReservationCancelled ReservationStatus = "CANCELLED"
	ReservationRejected  ReservationStatus = "REJECTED"
)

func ValidReservationStatus(s ReservationStatus) bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationCancelled, ReservationRejected:
		return true
	}
	return false
}

// Active reports whether the reservation still holds its stalls.
func (s ReservationStatus) Active() bool {
	return s == ReservationPending || s == ReservationConfirmed
}

// Reservation is a vendor's claim on 1–3 stalls. TotalAmount is computed from
// the stall prices at creation and never recomputed.
type Reservation struct {
	ID          string
	VendorID    string
	Stalls      []Stall
	TotalAmount float64
	Status      ReservationStatus
	CreatedAt   time.Time
}

// StallCodes returns the codes of the reservation's stalls in load order.
func (r Reservation) StallCodes() []string {
	codes := make([]string, 0, len(r.Stalls))
	for _, s := range r.Stalls {
		codes = append(codes, s.Code)
	}
	return codes
}

// ReservationSummary is the read-only projection returned at gate verification.
type ReservationSummary struct {
	ReservationID string
	VendorID      string
	StallCodes    []string
	CreatedAt     time.Time
	Status        ReservationStatus
}
