package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/clock"
	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
	"go.uber.org/zap"
)

// maxStallsPerVendor caps the stalls a vendor may hold across all
// non-cancelled reservations.
const maxStallsPerVendor = 3

type ReservationRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	GetVendorByEmailForUpdate(ctx context.Context, email string) (domain.Vendor, error)
	CountActiveStalls(ctx context.Context, vendorID string) (int, error)
	LockStalls(ctx context.Context, stallIDs []string) ([]domain.Stall, error)
	MarkReserved(ctx context.Context, stallIDs []string, reservationID string) error
	ReleaseStalls(ctx context.Context, reservationID string) error
	Create(ctx context.Context, res domain.Reservation) error
	GetForUpdate(ctx context.Context, id string) (domain.Reservation, error)
	GetByID(ctx context.Context, id string) (domain.Reservation, error)
	ListAll(ctx context.Context) ([]domain.Reservation, error)
	ListByVendor(ctx context.Context, vendorID string) ([]domain.Reservation, error)
	UpdateStatus(ctx context.Context, id string, status domain.ReservationStatus) error
	Delete(ctx context.Context, id string) error
	StallsByReservation(ctx context.Context, reservationID string) ([]domain.Stall, error)
}

// ReservationService drives the reservation lifecycle against the stall
// ledger. All allocation happens inside a single transaction: the vendor row
// lock serializes the quota check, the stall row locks serialize the
// availability check, and the RESERVED write commits atomically with the
// reservation row.
type ReservationService struct {
	repo   ReservationRepository
	cache  AvailabilityCache
	clock  clock.Clock
	logger *zap.Logger
}

type ReservationServiceOption func(*ReservationService)

func WithReservationCache(c AvailabilityCache) ReservationServiceOption {
	return func(s *ReservationService) {
		s.cache = c
	}
}

func NewReservationService(repo ReservationRepository, clk clock.Clock, logger *zap.Logger, opts ...ReservationServiceOption) *ReservationService {
	svc := &ReservationService{
		repo:   repo,
		clock:  clk,
		logger: logger,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type CreateReservationInput struct {
	VendorEmail string
	StallIDs    []string
}

func (s *ReservationService) Create(ctx context.Context, in CreateReservationInput) (domain.Reservation, error) {
	stallIDs := dedupe(in.StallIDs)
	if len(stallIDs) < 1 || len(stallIDs) > maxStallsPerVendor {
		return domain.Reservation{}, domain.ErrInvalidStallCount
	}

	now := s.clock.Now()
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		// Vendor row lock serializes concurrent creates by the same vendor,
		// so the quota check below sees a settled count.
		vendor, err := s.repo.GetVendorByEmailForUpdate(txCtx, in.VendorEmail)
		if err != nil {
			return err
		}

		active, err := s.repo.CountActiveStalls(txCtx, vendor.ID)
		if err != nil {
			return err
		}
		if active+len(stallIDs) > maxStallsPerVendor {
			return domain.ErrQuotaExceeded
		}

		locked, err := s.repo.LockStalls(txCtx, stallIDs)
		if err != nil {
			return err
		}
		if len(locked) != len(stallIDs) {
			return domain.ErrStallNotFound
		}

		byID := make(map[string]domain.Stall, len(locked))
		for _, stall := range locked {
			byID[stall.ID] = stall
		}

		var total float64
		stalls := make([]domain.Stall, 0, len(stallIDs))
		for _, id := range stallIDs {
			stall := byID[id]
			if stall.Status != domain.StallAvailable {
				return fmt.Errorf("%w: %s", domain.ErrStallUnavailable, stall.Code)
			}
			total += stall.Price
			stalls = append(stalls, stall)
		}

		res := domain.Reservation{
			ID:          newID(),
			VendorID:    vendor.ID,
			TotalAmount: total,
			Status:      domain.ReservationPending,
			CreatedAt:   now,
		}
		if err := s.repo.Create(txCtx, res); err != nil {
			return err
		}
		if err := s.repo.MarkReserved(txCtx, stallIDs, res.ID); err != nil {
			return err
		}

		for i := range stalls {
			stalls[i].Status = domain.StallReserved
			stalls[i].ReservationID = &res.ID
		}
		res.Stalls = stalls
		result = res
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.invalidateCache(ctx)
	return result, nil
}

// Cancel releases the reservation's stalls and marks it CANCELLED. Cancelling
// an already-cancelled reservation is a no-op returning the current state.
func (s *ReservationService) Cancel(ctx context.Context, id string) (domain.Reservation, error) {
	var result domain.Reservation

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		res, err := s.repo.GetForUpdate(txCtx, id)
		if err != nil {
			return err
		}
		if res.Status == domain.ReservationCancelled {
			result = res
			return nil
		}

		stalls, err := s.repo.StallsByReservation(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.repo.UpdateStatus(txCtx, id, domain.ReservationCancelled); err != nil {
			return err
		}
		if err := s.repo.ReleaseStalls(txCtx, id); err != nil {
			return err
		}

		for i := range stalls {
			stalls[i].Status = domain.StallAvailable
			stalls[i].ReservationID = nil
		}
		res.Status = domain.ReservationCancelled
		res.Stalls = stalls
		result = res
		return nil
	})
	if err != nil {
		return domain.Reservation{}, err
	}

	s.invalidateCache(ctx)
	return result, nil
}

// UpdateStatus is the admin override. A CANCELLED target goes through Cancel
// so stalls are released; other targets set the status directly and leave
// stall and payment consistency to the calling flow.
func (s *ReservationService) UpdateStatus(ctx context.Context, id, target string) (domain.Reservation, error) {
	status := domain.ReservationStatus(strings.ToUpper(strings.TrimSpace(target)))
	if !domain.ValidReservationStatus(status) {
		return domain.Reservation{}, domain.ErrInvalidStatus
	}
	if status == domain.ReservationCancelled {
		return s.Cancel(ctx, id)
	}

	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetForUpdate(txCtx, id); err != nil {
			return err
		}
		return s.repo.UpdateStatus(txCtx, id, status)
	})
	if err != nil {
		return domain.Reservation{}, err
	}
	return s.repo.GetByID(ctx, id)
}

// Delete is the destructive admin path: stalls are released whatever the
// reservation's status, then the record goes away.
func (s *ReservationService) Delete(ctx context.Context, id string) error {
	err := s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetForUpdate(txCtx, id); err != nil {
			return err
		}
		if err := s.repo.ReleaseStalls(txCtx, id); err != nil {
			return err
		}
		return s.repo.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	s.invalidateCache(ctx)
	return nil
}

func (s *ReservationService) GetByID(ctx context.Context, id string) (domain.Reservation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ReservationService) ListAll(ctx context.Context) ([]domain.Reservation, error) {
	return s.repo.ListAll(ctx)
}

func (s *ReservationService) ListByVendor(ctx context.Context, vendorID string) ([]domain.Reservation, error) {
	return s.repo.ListByVendor(ctx, vendorID)
}

func (s *ReservationService) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("stall cache invalidation failed", zap.Error(err))
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
