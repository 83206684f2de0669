package http

import (
	"context"
	"net/http"
	"time"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
)

// PassVerifier is the minimal interface needed to verify an entry pass.
type PassVerifier interface {
	Verify(ctx context.Context, token string) (domain.ReservationSummary, error)
}

// HandleVerifyPass returns an HTTP handler for gate-side pass verification.
// The token is never consumed; a pass scans clean any number of times.
func HandleVerifyPass(svc PassVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}

		summary, err := svc.Verify(r.Context(), r.URL.Query().Get("token"))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, verifyPassResponse{
			ReservationID: summary.ReservationID,
			VendorID:      summary.VendorID,
			StallCodes:    summary.StallCodes,
			Status:        string(summary.Status),
			CreatedAt:     summary.CreatedAt,
		})
	}
}

type verifyPassResponse struct {
	ReservationID string    `json:"reservation_id"`
	VendorID      string    `json:"vendor_id"`
	StallCodes    []string  `json:"stall_codes"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}
