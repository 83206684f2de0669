package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/app"
	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
)

// StallService is the minimal interface needed for stall endpoints.
type StallService interface {
	Create(ctx context.Context, in app.CreateStallInput) (domain.Stall, error)
	GetByID(ctx context.Context, id string) (domain.Stall, error)
	List(ctx context.Context) ([]domain.Stall, error)
	ListAvailable(ctx context.Context) ([]domain.Stall, error)
	ListBySize(ctx context.Context, size domain.StallSize) ([]domain.Stall, error)
	Update(ctx context.Context, id string, in app.UpdateStallInput) (domain.Stall, error)
	Delete(ctx context.Context, id string) error
}

// HandleStalls returns an HTTP handler for creating and listing stalls.
func HandleStalls(svc StallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			var (
				stalls []domain.Stall
				err    error
			)
			if size := r.URL.Query().Get("size"); size != "" {
				stalls, err = svc.ListBySize(r.Context(), domain.StallSize(strings.ToUpper(size)))
			} else {
				stalls, err = svc.List(r.Context())
			}
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, stallResponses(stalls))
		case http.MethodPost:
			var req createStallRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			stall, err := svc.Create(r.Context(), app.CreateStallInput{
				Code:  req.Code,
				Size:  domain.StallSize(strings.ToUpper(req.Size)),
				Price: req.Price,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toStallResponse(stall))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleAvailableStalls returns an HTTP handler for the public availability
// listing. Reads go through the cache when one is configured.
func HandleAvailableStalls(svc StallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
			return
		}
		stalls, err := svc.ListAvailable(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stallResponses(stalls))
	}
}

// HandleStallByID returns an HTTP handler for fetching, updating and
// deleting a single stall.
func HandleStallByID(svc StallService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := parseResourcePath(r.URL.Path, "stalls")
		if !ok {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		switch r.Method {
		case http.MethodGet:
			stall, err := svc.GetByID(r.Context(), id)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toStallResponse(stall))
		case http.MethodPut:
			var req updateStallRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			in := app.UpdateStallInput{
				Code:  req.Code,
				Price: req.Price,
			}
			if req.Size != nil {
				size := domain.StallSize(strings.ToUpper(*req.Size))
				in.Size = &size
			}
			if req.Status != nil {
				status := domain.StallStatus(strings.ToUpper(*req.Status))
				in.Status = &status
			}

			stall, err := svc.Update(r.Context(), id, in)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, toStallResponse(stall))
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

type createStallRequest struct {
	Code  string  `json:"code"`
	Size  string  `json:"size"`
	Price float64 `json:"price"`
}

type updateStallRequest struct {
	Code   *string  `json:"code,omitempty"`
	Size   *string  `json:"size,omitempty"`
	Price  *float64 `json:"price,omitempty"`
	Status *string  `json:"status,omitempty"`
}

type stallResponse struct {
	ID            string  `json:"id"`
	Code          string  `json:"code"`
	Size          string  `json:"size"`
	Price         float64 `json:"price"`
	Status        string  `json:"status"`
	ReservationID *string `json:"reservation_id,omitempty"`
}

func toStallResponse(stall domain.Stall) stallResponse {
	return stallResponse{
		ID:            stall.ID,
		Code:          stall.Code,
		Size:          string(stall.Size),
		Price:         stall.Price,
		Status:        string(stall.Status),
		ReservationID: stall.ReservationID,
	}
}

func stallResponses(stalls []domain.Stall) []stallResponse {
	resp := make([]stallResponse, 0, len(stalls))
	for _, stall := range stalls {
		resp = append(resp, toStallResponse(stall))
	}
	return resp
}

// parseResourcePath extracts the trailing id from /<resource>/<id>.
func parseResourcePath(path, resource string) (string, bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 2 || parts[0] != resource || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// parseResourceSubPath extracts id and action from /<resource>/<id>/<action>.
func parseResourceSubPath(path, resource string) (id, action string, ok bool) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 || parts[0] != resource || parts[1] == "" || parts[2] == "" {
		return "", "", false
	}
	return parts[1], parts[2], true
}
