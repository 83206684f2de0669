package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
)

// GenreService is the minimal interface needed for the genre catalogue.
type GenreService interface {
	Create(ctx context.Context, name string) (domain.Genre, error)
	List(ctx context.Context) ([]domain.Genre, error)
}

// HandleGenres returns an HTTP handler for creating and listing genres.
func HandleGenres(svc GenreService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			genres, err := svc.List(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, genreResponses(genres))
		case http.MethodPost:
			var req createGenreRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			genre, err := svc.Create(r.Context(), req.Name)
			if err != nil {
				writeDomainError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, toGenreResponse(genre))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

type createGenreRequest struct {
	Name string `json:"name"`
}

type genreResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func toGenreResponse(genre domain.Genre) genreResponse {
	return genreResponse{ID: genre.ID, Name: genre.Name}
}

func genreResponses(genres []domain.Genre) []genreResponse {
	resp := make([]genreResponse, 0, len(genres))
	for _, genre := range genres {
		resp = append(resp, toGenreResponse(genre))
	}
	return resp
}
