package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/app"
	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
)

// VendorService is the minimal interface needed for vendor endpoints.
type VendorService interface {
	Create(ctx context.Context, in app.CreateVendorInput) (domain.Vendor, error)
	GetByID(ctx context.Context, id string) (domain.Vendor, error)
	List(ctx context.Context) ([]domain.Vendor, error)
	Update(ctx context.Context, id string, in app.UpdateVendorInput) (domain.Vendor, error)
	Delete(ctx context.Context, id string) error
}

// VendorReservationLister lists a vendor's reservations.
type VendorReservationLister interface {
	ListByVendor(ctx context.Context, vendorID string) ([]domain.Reservation, error)
}

// VendorGenreService covers the genre sub-resource under a vendor.
type VendorGenreService interface {
	ListByVendor(ctx context.Context, vendorID string) ([]domain.Genre, error)
	Attach(ctx context.Context, vendorID string, genreIDs []string) error
}

// HandleVendors returns an HTTP handler for creating and listing vendors.
func HandleVendors(svc VendorService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			vendors, err := svc.List(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, vendorResponses(vendors))
		case http.MethodPost:
			var req createVendorRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			vendor, err := svc.Create(r.Context(), app.CreateVendorInput{
				Email:        req.Email,
				BusinessName: req.BusinessName,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toVendorResponse(vendor))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleVendorByID routes /vendors/{id} plus the reservations and genres
// sub-resources.
func HandleVendorByID(svc VendorService, reservations VendorReservationLister, genres VendorGenreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if id, sub, ok := parseResourceSubPath(r.URL.Path, "vendors"); ok {
			switch sub {
			case "reservations":
				handleVendorReservations(w, r, reservations, id)
			case "genres":
				handleVendorGenres(w, r, genres, id)
			default:
				writeError(w, http.StatusNotFound, codeNotFound, "not found")
			}
			return
		}

		id, ok := parseResourcePath(r.URL.Path, "vendors")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			vendor, err := svc.GetByID(r.Context(), id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toVendorResponse(vendor))
		case http.MethodPut:
			var req updateVendorRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			vendor, err := svc.Update(r.Context(), id, app.UpdateVendorInput{
				Email:        req.Email,
				BusinessName: req.BusinessName,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toVendorResponse(vendor))
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

func handleVendorReservations(w http.ResponseWriter, r *http.Request, svc VendorReservationLister, vendorID string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	list, err := svc.ListByVendor(r.Context(), vendorID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationResponses(list))
}

func handleVendorGenres(w http.ResponseWriter, r *http.Request, svc VendorGenreService, vendorID string) {
	switch r.Method {
	case http.MethodGet:
		list, err := svc.ListByVendor(r.Context(), vendorID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, genreResponses(list))
	case http.MethodPost:
		var req attachGenresRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
			return
		}
		if err := svc.Attach(r.Context(), vendorID, req.GenreIDs); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
	}
}

type createVendorRequest struct {
	Email        string `json:"email"`
	BusinessName string `json:"business_name"`
}

type updateVendorRequest struct {
	Email        *string `json:"email,omitempty"`
	BusinessName *string `json:"business_name,omitempty"`
}

type attachGenresRequest struct {
	GenreIDs []string `json:"genre_ids"`
}

type vendorResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	BusinessName string    `json:"business_name"`
	CreatedAt    time.Time `json:"created_at"`
}

func toVendorResponse(vendor domain.Vendor) vendorResponse {
	return vendorResponse{
		ID:           vendor.ID,
		Email:        vendor.Email,
		BusinessName: vendor.BusinessName,
		CreatedAt:    vendor.CreatedAt,
	}
}

func vendorResponses(vendors []domain.Vendor) []vendorResponse {
	resp := make([]vendorResponse, 0, len(vendors))
	for _, vendor := range vendors {
		resp = append(resp, toVendorResponse(vendor))
	}
	return resp
}
