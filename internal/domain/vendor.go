package domain

import "time"

// Vendor is an exhibitor account. Identity and auth live elsewhere; the
// service only needs the email and display attributes.
type Vendor struct {
	ID           string
	Email        string
	BusinessName string
	CreatedAt    time.Time
}

// Genre is a simple tag vendors attach to their catalogue.
type Genre struct {
	ID   string
	Name string
}
