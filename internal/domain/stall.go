package domain

type StallStatus string

const (
	StallAvailable   StallStatus = "AVAILABLE"
	StallReserved    StallStatus = "RESERVED"
	StallMaintenance StallStatus = "MAINTENANCE"
	StallBlocked     StallStatus = "BLOCKED"
)

// ValidStallStatus reports whether s names a known stall status.
func ValidStallStatus(s StallStatus) bool {
	switch s {
	case StallAvailable, StallReserved, StallMaintenance, StallBlocked:
		return true
	}
	return false
}

type StallSize string

const (
	StallSmall  StallSize = "SMALL"
	StallMedium StallSize = "MEDIUM"
	StallLarge  StallSize = "LARGE"
)

func ValidStallSize(s StallSize) bool {
	switch s {
	case StallSmall, StallMedium, StallLarge:
		return true
	}
	return false
}

// Stall is a physical booth inventory unit. ReservationID is a derived
// lookup to the reservation that currently holds the stall; the reservation
// owns the relationship.
type Stall struct {
	ID            string
	Code          string
	Size          StallSize
	Price         float64
	Status        StallStatus
	ReservationID *string
}
