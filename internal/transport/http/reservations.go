package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/app"
	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
)

// ReservationService is the minimal interface needed for reservation endpoints.
type ReservationService interface {
	Create(ctx context.Context, in app.CreateReservationInput) (domain.Reservation, error)
	GetByID(ctx context.Context, id string) (domain.Reservation, error)
	ListAll(ctx context.Context) ([]domain.Reservation, error)
	Cancel(ctx context.Context, id string) (domain.Reservation, error)
	UpdateStatus(ctx context.Context, id, target string) (domain.Reservation, error)
	Delete(ctx context.Context, id string) error
}

// HandleReservations returns an HTTP handler for creating and listing
// reservations.
func HandleReservations(svc ReservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			reservations, err := svc.ListAll(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, reservationResponses(reservations))
		case http.MethodPost:
			var req createReservationRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			reservation, err := svc.Create(r.Context(), app.CreateReservationInput{
				VendorEmail: req.VendorEmail,
				StallIDs:    req.StallIDs,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toReservationResponse(reservation))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleReservationByID routes /reservations/{id} plus the cancel and
// status sub-actions.
func HandleReservationByID(svc ReservationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, action, ok := parseResourceSubPath(r.URL.Path, "reservations"); ok {
			handleReservationAction(w, r, svc, id, action)
			return
		}

		id, ok := parseResourcePath(r.URL.Path, "reservations")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			reservation, err := svc.GetByID(r.Context(), id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toReservationResponse(reservation))
		case http.MethodDelete:
			if err := svc.Delete(r.Context(), id); err != nil {
				writeDomainError(w, err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

func handleReservationAction(w http.ResponseWriter, r *http.Request, svc ReservationService, id, action string) {
	if r.Method != http.MethodPut {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}

	switch action {
	case "cancel":
		reservation, err := svc.Cancel(r.Context(), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReservationResponse(reservation))
	case "status":
		var req updateReservationStatusRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}

		reservation, err := svc.UpdateStatus(r.Context(), id, req.Status)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toReservationResponse(reservation))
	default:
		writeError(w, http.StatusNotFound, codeNotFound, "not found")
	}
}

type createReservationRequest struct {
	VendorEmail string   `json:"vendor_email"`
	StallIDs    []string `json:"stall_ids"`
}

type updateReservationStatusRequest struct {
	Status string `json:"status"`
}

type reservationResponse struct {
	ID          string          `json:"id"`
	VendorID    string          `json:"vendor_id"`
	Stalls      []stallResponse `json:"stalls"`
	TotalAmount float64         `json:"total_amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}

func toReservationResponse(reservation domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:          reservation.ID,
		VendorID:    reservation.VendorID,
		Stalls:      stallResponses(reservation.Stalls),
		TotalAmount: reservation.TotalAmount,
		Status:      string(reservation.Status),
		CreatedAt:   reservation.CreatedAt,
	}
}

func reservationResponses(reservations []domain.Reservation) []reservationResponse {
	resp := make([]reservationResponse, 0, len(reservations))
	for _, reservation := range reservations {
		resp = append(resp, toReservationResponse(reservation))
	}
	return resp
}
