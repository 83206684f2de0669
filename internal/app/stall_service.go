package app

import (
	"context"
	"strings"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"go.uber.org/zap"
)

// StallRepository is the storage surface the ledger needs. Stall status is
// mutated only through this service and the reservation engine's allocation
// path; nothing else writes stall rows.
type StallRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, stall domain.Stall) error
	GetByID(ctx context.Context, id string) (domain.Stall, error)
	GetForUpdate(ctx context.Context, id string) (domain.Stall, error)
	List(ctx context.Context) ([]domain.Stall, error)
	ListByStatus(ctx context.Context, status domain.StallStatus) ([]domain.Stall, error)
	ListBySize(ctx context.Context, size domain.StallSize) ([]domain.Stall, error)
	Update(ctx context.Context, stall domain.Stall) error
	Delete(ctx context.Context, id string) error
	ReservationStatus(ctx context.Context, reservationID string) (domain.ReservationStatus, error)
}

// AvailabilityCache is the optional read cache over the availability listing.
type AvailabilityCache interface {
	GetAvailable(ctx context.Context) ([]domain.Stall, bool, error)
	SetAvailable(ctx context.Context, stalls []domain.Stall) error
	Invalidate(ctx context.Context) error
}

// StallService is the stall ledger: the single source of truth for stall
// availability and the one choke point for status transitions.
type StallService struct {
	repo   StallRepository
	cache  AvailabilityCache
	logger *zap.Logger
}

type StallServiceOption func(*StallService)

// WithAvailabilityCache plugs in the redis cache for ListAvailable.
func WithAvailabilityCache(c AvailabilityCache) StallServiceOption {
	return func(s *StallService) {
		s.cache = c
	}
}

func NewStallService(repo StallRepository, logger *zap.Logger, opts ...StallServiceOption) *StallService {
	svc := &StallService{
		repo:   repo,
		logger: logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CreateStallInput struct {
	Code  string
	Size  domain.StallSize
	Price float64
}

func (s *StallService) Create(ctx context.Context, in CreateStallInput) (domain.Stall, error) {
	if strings.TrimSpace(in.Code) == "" {
		return domain.Stall{}, domain.ErrStallCodeRequired
	}
	if !domain.ValidStallSize(in.Size) {
		return domain.Stall{}, domain.ErrInvalidStatus
	}
	if in.Price <= 0 {
		return domain.Stall{}, domain.ErrInvalidPrice
	}

	stall := domain.Stall{
		ID:     newID(),
		Code:   strings.TrimSpace(in.Code),
		Size:   in.Size,
		Price:  in.Price,
		Status: domain.StallAvailable,
	}

	if err := s.repo.Create(ctx, stall); err != nil {
		return domain.Stall{}, err
	}
	s.invalidateCache(ctx)
	return stall, nil
}

func (s *StallService) GetByID(ctx context.Context, id string) (domain.Stall, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *StallService) List(ctx context.Context) ([]domain.Stall, error) {
	return s.repo.List(ctx)
}

// ListAvailable serves the vendor-facing availability listing, through the
// cache when one is configured.
func (s *StallService) ListAvailable(ctx context.Context) ([]domain.Stall, error) {
	if s.cache != nil {
		stalls, hit, err := s.cache.GetAvailable(ctx)
		if err != nil {
			s.logger.Warn("stall cache read failed", zap.Error(err))
		} else if hit {
			return stalls, nil
		}
	}

	stalls, err := s.repo.ListByStatus(ctx, domain.StallAvailable)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetAvailable(ctx, stalls); err != nil {
			s.logger.Warn("stall cache write failed", zap.Error(err))
		}
	}
	return stalls, nil
}

func (s *StallService) ListBySize(ctx context.Context, size domain.StallSize) ([]domain.Stall, error) {
	if !domain.ValidStallSize(size) {
		return nil, domain.ErrInvalidStatus
	}
	return s.repo.ListBySize(ctx, size)
}

type UpdateStallInput struct {
	Code   *string
	Size   *domain.StallSize
	Price  *float64
	Status *domain.StallStatus
}

// Update applies attribute changes. A status change is refused while the
// stall belongs to a live reservation, unless the target is RESERVED: an
// operator may not overwrite a booking by hand, the stall has to be released
// through the reservation lifecycle.
func (s *StallService) Update(ctx context.Context, id string, in UpdateStallInput) (domain.Stall, error) {
	var updated domain.Stall

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		stall, err := s.repo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}

		if in.Code != nil {
			if strings.TrimSpace(*in.Code) == "" {
				return domain.ErrStallCodeRequired
			}
			stall.Code = strings.TrimSpace(*in.Code)
		}
		if in.Size != nil {
			if !domain.ValidStallSize(*in.Size) {
				return domain.ErrInvalidStatus
			}
			stall.Size = *in.Size
		}
		if in.Price != nil {
			if *in.Price <= 0 {
				return domain.ErrInvalidPrice
			}
			stall.Price = *in.Price
		}
		if in.Status != nil && *in.Status != stall.Status {
			if !domain.ValidStallStatus(*in.Status) {
				return domain.ErrInvalidStatus
			}
			if stall.ReservationID != nil && *in.Status != domain.StallReserved {
				resStatus, err := s.repo.ReservationStatus(txCtx, *stall.ReservationID)
				if err != nil {
					return err
				}
				if resStatus.Active() {
					return domain.ErrStallStatusLocked
				}
			}
			stall.Status = *in.Status
		}

		if err := s.repo.Update(txCtx, stall); err != nil {
			return err
		}
		updated = stall
		return nil
	})
	if err != nil {
		return domain.Stall{}, err
	}

	s.invalidateCache(ctx)
	return updated, nil
}

// Delete removes a stall unless it belongs to a confirmed (paid) reservation.
func (s *StallService) Delete(ctx context.Context, id string) error {
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		stall, err := s.repo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if stall.ReservationID != nil {
			resStatus, err := s.repo.ReservationStatus(txCtx, *stall.ReservationID)
			if err != nil {
				return err
			}
			if resStatus == domain.ReservationConfirmed {
				return domain.ErrStallHasReservation
			}
		}
		return s.repo.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.invalidateCache(ctx)
	return nil
}

func (s *StallService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("stall cache invalidation failed", zap.Error(err))
	}
}
