package app

import (
	"context"
	"strings"

	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/clock"
	"github.com/VihangaKulathilake/bookfair-reservation-system/internal/domain"
)

type VendorRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Create(ctx context.Context, v domain.Vendor) error
	GetByID(ctx context.Context, id string) (domain.Vendor, error)
	GetByEmail(ctx context.Context, email string) (domain.Vendor, error)
	List(ctx context.Context) ([]domain.Vendor, error)
	Update(ctx context.Context, v domain.Vendor) error
	Delete(ctx context.Context, id string) error
	HasActiveReservations(ctx context.Context, vendorID string) (bool, error)
}

// VendorService is plain profile CRUD. The only cross-entity rule: a vendor
// with live reservations cannot be removed.
type VendorService struct {
	repo  VendorRepository
	clock clock.Clock
}

func NewVendorService(repo VendorRepository, clk clock.Clock) *VendorService {
	return &VendorService{repo: repo, clock: clk}
}

type CreateVendorInput struct {
	Email        string
	BusinessName string
}

func (s *VendorService) Create(ctx context.Context, in CreateVendorInput) (domain.Vendor, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.Vendor{}, domain.ErrVendorEmailRequired
	}

	vendor := domain.Vendor{
		ID:           newID(),
		Email:        email,
		BusinessName: strings.TrimSpace(in.BusinessName),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.repo.Create(ctx, vendor); err != nil {
		return domain.Vendor{}, err
	}
	return vendor, nil
}

func (s *VendorService) GetByID(ctx context.Context, id string) (domain.Vendor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *VendorService) GetByEmail(ctx context.Context, email string) (domain.Vendor, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *VendorService) List(ctx context.Context) ([]domain.Vendor, error) {
	return s.repo.List(ctx)
}

type UpdateVendorInput struct {
	Email        *string
	BusinessName *string
}

func (s *VendorService) Update(ctx context.Context, id string, in UpdateVendorInput) (domain.Vendor, error) {
	vendor, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Vendor{}, err
	}

	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email == "" || !strings.Contains(email, "@") {
			return domain.Vendor{}, domain.ErrVendorEmailRequired
		}
		vendor.Email = email
	}
	if in.BusinessName != nil {
		vendor.BusinessName = strings.TrimSpace(*in.BusinessName)
	}

	if err := s.repo.Update(ctx, vendor); err != nil {
		return domain.Vendor{}, err
	}
	return vendor, nil
}

func (s *VendorService) Delete(ctx context.Context, id string) error {
	return s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if _, err := s.repo.GetByID(txCtx, id); err != nil {
			return err
		}
		active, err := s.repo.HasActiveReservations(txCtx, id)
		if err != nil {
			return err
		}
		if active {
			return domain.ErrVendorHasBookings
		}
		return s.repo.Delete(txCtx, id)
	})
}
