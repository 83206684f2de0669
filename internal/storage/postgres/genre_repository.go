package postgres

import (
	"context"
	"fmt"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type GenreRepository struct {
	pool *pgxpool.Pool
}

func NewGenreRepository(pool *pgxpool.Pool) *GenreRepository {
	return &GenreRepository{pool: pool}
}

func (r *GenreRepository) Create(ctx context.Context, g domain.Genre) error {
	const stmt = `INSERT INTO genres (id, name) VALUES ($1, $2)`
	_, err := r.pool.Exec(ctx, stmt, g.ID, g.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrGenreExists
		}
		return fmt.Errorf("create genre: %w", err)
	}
	return nil
}

func (r *GenreRepository) List(ctx context.Context) ([]domain.Genre, error) {
	const query = `SELECT id, name FROM genres ORDER BY name ASC`
	return r.queryGenres(ctx, query)
}

func (r *GenreRepository) ListByVendor(ctx context.Context, vendorID string) ([]domain.Genre, error) {
	const query = `
SELECT g.id, g.name
FROM genres g
JOIN vendor_genres vg ON vg.genre_id = g.id
WHERE vg.vendor_id = $1
ORDER BY g.name ASC`
	return r.queryGenres(ctx, query, vendorID)
}

// Attach links genres to a vendor; already-linked pairs are skipped.
func (r *GenreRepository) Attach(ctx context.Context, vendorID string, genreIDs []string) error {
	const stmt = `
INSERT INTO vendor_genres (vendor_id, genre_id)
SELECT $1, g.id FROM genres g WHERE g.id = ANY($2)
ON CONFLICT DO NOTHING`

	_, err := r.pool.Exec(ctx, stmt, vendorID, genreIDs)
	if err != nil {
		if isInvalidUUID(err) {
			return domain.ErrInvalidID
		}
		if isForeignKeyViolation(err) {
			return domain.ErrVendorNotFound
		}
		return fmt.Errorf("attach genres: %w", err)
	}
	return nil
}

func (r *GenreRepository) queryGenres(ctx context.Context, query string, args ...any) ([]domain.Genre, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, domain.ErrInvalidID
		}
		return nil, fmt.Errorf("list genres: %w", err)
	}
	defer rows.Close()

	var genres []domain.Genre
	for rows.Next() {
		var g domain.Genre
		if err := rows.Scan(&g.ID, &g.Name); err != nil {
			return nil, fmt.Errorf("scan genre: %w", err)
		}
		genres = append(genres, g)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate genres: %w", rows.Err())
	}
	return genres, nil
}
