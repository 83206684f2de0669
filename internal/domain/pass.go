package domain

import "time"

// Pass is the single-issue entry token bound to a confirmed reservation.
// Immutable after creation.
type Pass struct {
	ID            string
	ReservationID string
	Token         string
	CreatedAt     time.Time
}
