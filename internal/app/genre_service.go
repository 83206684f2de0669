package app

import (
	"context"
	"strings"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
)

type GenreRepository interface {
	Create(ctx context.Context, g domain.Genre) error
	List(ctx context.Context) ([]domain.Genre, error)
	ListByVendor(ctx context.Context, vendorID string) ([]domain.Genre, error)
	Attach(ctx context.Context, vendorID string, genreIDs []string) error
}

// GenreService manages the catalogue tags vendors attach to their profile.
type GenreService struct {
	repo GenreRepository
}

func NewGenreService(repo GenreRepository) *GenreService {
	return &GenreService{repo: repo}
}

func (s *GenreService) Create(ctx context.Context, name string) (domain.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Genre{}, domain.ErrGenreNameRequired
	}

	genre := domain.Genre{ID: newID(), Name: name}
	if err := s.repo.Create(ctx, genre); err != nil {
		return domain.Genre{}, err
	}
	return genre, nil
}

func (s *GenreService) List(ctx context.Context) ([]domain.Genre, error) {
	return s.repo.List(ctx)
}

func (s *GenreService) ListByVendor(ctx context.Context, vendorID string) ([]domain.Genre, error) {
	return s.repo.ListByVendor(ctx, vendorID)
}

func (s *GenreService) Attach(ctx context.Context, vendorID string, genreIDs []string) error {
	genreIDs = dedupe(genreIDs)
	if len(genreIDs) == 0 {
		return domain.ErrGenreNameRequired
	}
	return s.repo.Attach(ctx, vendorID, genreIDs)
}
